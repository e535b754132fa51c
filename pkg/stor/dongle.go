// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package stor

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Dongle data model.
// The dongle identifier is immutable once created; updates only touch notes,
// default owner and state, and go through Update so that each change is audited.
// Dongles are never deleted: retirement is a state transition.
type Dongle struct {
	ID            uint      `json:"-" gorm:"primaryKey"`
	DongleID      string    `json:"dongle_id" validate:"required" gorm:"type:varchar(100);uniqueIndex"`
	HalconVersion string    `json:"halcon_version" gorm:"type:varchar(100)"`
	Notes         string    `json:"notes"`
	DefaultOwner  string    `json:"default_owner" gorm:"type:varchar(100);default:Admin"`
	State         string    `json:"state" validate:"omitempty,oneof='Working' 'Not Working' 'Missing' 'Retired'" gorm:"type:varchar(100);default:Working;index"`
	CreatedDate   time.Time `json:"created_date"`
}

// Validate checks required fields and values
func (d *Dongle) Validate() error {

	validate := validator.New()
	return validate.Struct(d)
}

// applyDefaults fills attributes which may be empty on rows
// created before a schema migration ran.
func (d *Dongle) applyDefaults() {
	if d.HalconVersion == "" {
		d.HalconVersion = DEFAULT_VERSION
	}
	if d.DefaultOwner == "" {
		d.DefaultOwner = DEFAULT_OWNER
	}
	if d.State == "" {
		d.State = DEFAULT_STATE
	}
}

func (s dongleStore) List() (*[]Dongle, error) {
	dongles := []Dongle{}
	err := s.db.Order("dongle_id ASC").Find(&dongles).Error
	if err != nil {
		return &dongles, err
	}
	for i := range dongles {
		dongles[i].applyDefaults()
	}
	return &dongles, nil
}

// ListAvailable returns the identifiers of working dongles with no active
// assignment, in ascending order.
func (s dongleStore) ListAvailable() ([]string, error) {
	var working []string
	err := s.db.Model(&Dongle{}).Where("state = ?", STATE_WORKING).
		Order("dongle_id ASC").Pluck("dongle_id", &working).Error
	if err != nil {
		return nil, err
	}

	active, err := activeAssignments(s.db)
	if err != nil {
		return nil, err
	}

	available := []string{}
	for _, dongleID := range working {
		if _, checkedOut := active[dongleID]; !checkedOut {
			available = append(available, dongleID)
		}
	}
	return available, nil
}

func (s dongleStore) Count() (int64, error) {
	var count int64
	return count, s.db.Model(Dongle{}).Count(&count).Error
}

func (s dongleStore) Get(dongleID string) (*Dongle, error) {
	var dongle Dongle
	err := s.db.Where("dongle_id = ?", dongleID).First(&dongle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDongleNotFound
	}
	if err != nil {
		return nil, err
	}
	dongle.applyDefaults()
	return &dongle, nil
}

func (s dongleStore) Create(newDongle *Dongle) error {
	if newDongle.CreatedDate.IsZero() {
		newDongle.CreatedDate = time.Now().Truncate(time.Second)
	}
	err := s.db.Create(newDongle).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateID
	}
	return err
}

// Update compares the stored notes, default owner and state with the new
// values, appends one edit record per changed attribute and rewrites the
// dongle row if anything changed. It returns the list of changed attributes,
// empty when the update was a no-op.
// The edit records and the row update are committed in a single transaction.
func (s dongleStore) Update(dongleID string, notes, defaultOwner, state, changedBy, changeNotes string) ([]string, error) {

	changed := []string{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var current Dongle
		err := tx.Where("dongle_id = ?", dongleID).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDongleNotFound
		}
		if err != nil {
			return err
		}

		now := time.Now().Truncate(time.Second)

		record := func(field, oldValue, newValue string) error {
			return tx.Create(&DongleEdit{
				DongleID:     dongleID,
				FieldChanged: field,
				OldValue:     oldValue,
				NewValue:     newValue,
				ChangedBy:    changedBy,
				ChangeDate:   now,
				Notes:        changeNotes,
			}).Error
		}

		if defaultOwner != current.DefaultOwner {
			changed = append(changed, "default_owner")
			if err := record(FIELD_DEFAULT_OWNER, current.DefaultOwner, defaultOwner); err != nil {
				return err
			}
		}
		if state != current.State {
			changed = append(changed, "state")
			if err := record(FIELD_STATE, current.State, state); err != nil {
				return err
			}
		}
		if notes != current.Notes {
			changed = append(changed, "notes")
			if err := record(FIELD_NOTES, current.Notes, notes); err != nil {
				return err
			}
		}

		if len(changed) == 0 {
			// nothing differs, leave the row untouched
			return nil
		}

		return tx.Model(&Dongle{}).Where("dongle_id = ?", dongleID).
			Updates(map[string]interface{}{
				"notes":         notes,
				"default_owner": defaultOwner,
				"state":         state,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return changed, nil
}
