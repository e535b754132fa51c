// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package stor

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// AssignmentEvent data model.
// We don't include the full gorm model here, as no update nor soft deletion
// occurs on events: the log is append-only. The auto-increment id doubles as
// a monotonic sequence number, disambiguating events which share the same
// second-granularity timestamp.
type AssignmentEvent struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	DongleID   string    `json:"dongle_id" gorm:"type:varchar(100);index"` // implicit reference to the related dongle
	AssignedTo string    `json:"assigned_to" gorm:"type:varchar(100)"`     // empty on check-in events
	Action     string    `json:"action" gorm:"type:varchar(100)"`          // check_out | check_in
	Date       time.Time `json:"date" gorm:"index"`
	Notes      string    `json:"notes"`
}

// TableName keeps the table name used by earlier versions of the tracker.
func (AssignmentEvent) TableName() string {
	return "assignments"
}

// ActiveAssignment is the derived "who holds this dongle now" state.
// EventID is the sequence number of the winning check-out event.
type ActiveAssignment struct {
	AssignedTo string    `json:"assigned_to"`
	Date       time.Time `json:"date"`
	EventID    uint      `json:"-"`
}

// CheckedOutDongle is one entry of the checked-out listing.
type CheckedOutDongle struct {
	DongleID   string    `json:"dongle_id"`
	AssignedTo string    `json:"assigned_to"`
	Date       time.Time `json:"date"`
}

// AssignmentFilter restricts an assignment history query; empty fields match all.
type AssignmentFilter struct {
	DongleID   string
	AssignedTo string
	Action     string
}

// activeAssignments derives the active assignment of every dongle from the
// event log: a single pass over the events in (date, id) order keeps the
// latest event per dongle; the dongle is held if and only if that event is a
// check-out. Shared with the dongle store for the availability listing.
func activeAssignments(db *gorm.DB) (map[string]ActiveAssignment, error) {
	events := []AssignmentEvent{}
	err := db.Order("date ASC, id ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}

	latest := map[string]AssignmentEvent{}
	for _, e := range events {
		latest[e.DongleID] = e
	}

	active := map[string]ActiveAssignment{}
	for dongleID, e := range latest {
		if e.Action == ACTION_CHECK_OUT {
			active[dongleID] = ActiveAssignment{AssignedTo: e.AssignedTo, Date: e.Date, EventID: e.ID}
		}
	}
	return active, nil
}

func (s assignmentStore) Active() (map[string]ActiveAssignment, error) {
	return activeAssignments(s.db)
}

// CheckedOut lists the dongles with an active assignment,
// most recent checkout first.
func (s assignmentStore) CheckedOut() ([]CheckedOutDongle, error) {
	active, err := activeAssignments(s.db)
	if err != nil {
		return nil, err
	}

	checkedOut := []CheckedOutDongle{}
	eventIDs := map[string]uint{}
	for dongleID, a := range active {
		checkedOut = append(checkedOut, CheckedOutDongle{
			DongleID:   dongleID,
			AssignedTo: a.AssignedTo,
			Date:       a.Date,
		})
		eventIDs[dongleID] = a.EventID
	}
	// most recent first; same-second checkouts resolve by sequence number
	sort.Slice(checkedOut, func(i, j int) bool {
		if !checkedOut[i].Date.Equal(checkedOut[j].Date) {
			return checkedOut[i].Date.After(checkedOut[j].Date)
		}
		return eventIDs[checkedOut[i].DongleID] > eventIDs[checkedOut[j].DongleID]
	})
	return checkedOut, nil
}

// CheckOut appends a check-out event. This is a pure append: availability is
// enforced by the caller, which serializes the derive-then-append sequence.
func (s assignmentStore) CheckOut(dongleID, assignedTo, notes string) error {
	event := AssignmentEvent{
		DongleID:   dongleID,
		AssignedTo: assignedTo,
		Action:     ACTION_CHECK_OUT,
		Date:       time.Now().Truncate(time.Second),
		Notes:      notes,
	}
	return s.db.Create(&event).Error
}

// CheckIn appends a check-in event, with an empty assignee.
func (s assignmentStore) CheckIn(dongleID, notes string) error {
	event := AssignmentEvent{
		DongleID: dongleID,
		Action:   ACTION_CHECK_IN,
		Date:     time.Now().Truncate(time.Second),
		Notes:    notes,
	}
	return s.db.Create(&event).Error
}

// History returns assignment events matching the filter, newest first.
func (s assignmentStore) History(filter AssignmentFilter, limit int) (*[]AssignmentEvent, error) {
	events := []AssignmentEvent{}

	query := s.db.Order("date DESC, id DESC").Limit(limit)
	if filter.DongleID != "" {
		query = query.Where("dongle_id = ?", filter.DongleID)
	}
	if filter.AssignedTo != "" {
		query = query.Where("assigned_to = ?", filter.AssignedTo)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	return &events, query.Find(&events).Error
}

func (s assignmentStore) DistinctDongleIDs() ([]string, error) {
	var dongleIDs []string
	return dongleIDs, s.db.Model(&AssignmentEvent{}).Distinct().
		Order("dongle_id ASC").Pluck("dongle_id", &dongleIDs).Error
}

func (s assignmentStore) DistinctAssignees() ([]string, error) {
	var assignees []string
	return assignees, s.db.Model(&AssignmentEvent{}).Distinct().
		Where("assigned_to <> ''").
		Order("assigned_to ASC").Pluck("assigned_to", &assignees).Error
}
