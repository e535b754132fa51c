// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package stor

import (
	"time"
)

// DongleEdit data model.
// One record is created per changed attribute per update; the log is
// append-only and records are only ever created by the dongle update
// transaction, so the repository exposes reads only.
type DongleEdit struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	DongleID     string    `json:"dongle_id" gorm:"type:varchar(100);index"` // implicit reference to the related dongle
	FieldChanged string    `json:"field_changed" gorm:"type:varchar(100)"`   // Default Owner | State | Notes
	OldValue     string    `json:"old_value"`
	NewValue     string    `json:"new_value"`
	ChangedBy    string    `json:"changed_by" gorm:"type:varchar(100)"`
	ChangeDate   time.Time `json:"change_date" gorm:"index"`
	Notes        string    `json:"notes"`
}

// EditFilter restricts an edit history query; empty fields match all.
type EditFilter struct {
	DongleID     string
	ChangedBy    string
	FieldChanged string
}

// ForDongle returns the most recent edit records of a dongle.
func (s editStore) ForDongle(dongleID string, limit int) (*[]DongleEdit, error) {
	edits := []DongleEdit{}
	return &edits, s.db.Where("dongle_id = ?", dongleID).
		Order("change_date DESC, id DESC").Limit(limit).Find(&edits).Error
}

// History returns edit records matching the filter, newest first.
func (s editStore) History(filter EditFilter, limit int) (*[]DongleEdit, error) {
	edits := []DongleEdit{}

	query := s.db.Order("change_date DESC, id DESC").Limit(limit)
	if filter.DongleID != "" {
		query = query.Where("dongle_id = ?", filter.DongleID)
	}
	if filter.ChangedBy != "" {
		query = query.Where("changed_by = ?", filter.ChangedBy)
	}
	if filter.FieldChanged != "" {
		query = query.Where("field_changed = ?", filter.FieldChanged)
	}
	return &edits, query.Find(&edits).Error
}

func (s editStore) DistinctEditors() ([]string, error) {
	var editors []string
	return editors, s.db.Model(&DongleEdit{}).Distinct().
		Where("changed_by <> ''").
		Order("changed_by ASC").Pluck("changed_by", &editors).Error
}

func (s editStore) DistinctFields() ([]string, error) {
	var fields []string
	return fields, s.db.Model(&DongleEdit{}).Distinct().
		Order("field_changed ASC").Pluck("field_changed", &fields).Error
}
