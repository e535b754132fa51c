// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// The track package implements the dongle tracking operations:
// it validates each command against the current derived state before
// issuing the corresponding store mutation.
package track

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/edrlab/dongle-tracker/pkg/conf"
	"github.com/edrlab/dongle-tracker/pkg/stor"
)

// Errors signaled by the tracker
var (
	ErrNotAvailable  = errors.New("dongle is not available for checkout")
	ErrNotCheckedOut = errors.New("dongle is not checked out")
	ErrInvalidState  = errors.New("invalid dongle state")
)

type (
	// DongleView is a dongle augmented with its derived active assignment.
	DongleView struct {
		stor.Dongle
		AssignedTo     string     `json:"assigned_to,omitempty"`
		AssignmentDate *time.Time `json:"assignment_date,omitempty"`
	}

	// Tracker orchestrates dongle commands on top of the store.
	Tracker struct {
		*conf.Config
		stor.Store

		// serializes derive-availability-then-append sequences, so that two
		// concurrent checkouts of the same dongle cannot both succeed
		mu sync.Mutex
	}
)

func NewTracker(cf *conf.Config, st stor.Store) *Tracker {
	return &Tracker{
		Config: cf,
		Store:  st,
	}
}

// validStates lists the accepted dongle states.
var validStates = map[string]bool{
	stor.STATE_WORKING:     true,
	stor.STATE_NOT_WORKING: true,
	stor.STATE_MISSING:     true,
	stor.STATE_RETIRED:     true,
}

// checkState verifies a state string against the known enum values.
func checkState(state string) error {
	if !validStates[state] {
		return fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	return nil
}

// AddDongle creates a new dongle record.
func (t *Tracker) AddDongle(dongleID, halconVersion, notes, defaultOwner, state string) (*stor.Dongle, error) {

	if err := checkState(state); err != nil {
		return nil, err
	}

	dongle := &stor.Dongle{
		DongleID:      dongleID,
		HalconVersion: halconVersion,
		Notes:         notes,
		DefaultOwner:  defaultOwner,
		State:         state,
	}
	if err := dongle.Validate(); err != nil {
		return nil, err
	}

	if err := t.Store.Dongle().Create(dongle); err != nil {
		return nil, err
	}
	log.Infof("Dongle %s added, owner %s, state %s", dongleID, defaultOwner, state)
	return dongle, nil
}

// Overview returns every dongle with its derived active assignment,
// ordered by identifier.
func (t *Tracker) Overview() ([]DongleView, error) {

	dongles, err := t.Store.Dongle().List()
	if err != nil {
		return nil, err
	}
	active, err := t.Store.Assignment().Active()
	if err != nil {
		return nil, err
	}

	views := make([]DongleView, 0, len(*dongles))
	for _, d := range *dongles {
		view := DongleView{Dongle: d}
		if a, ok := active[d.DongleID]; ok {
			view.AssignedTo = a.AssignedTo
			date := a.Date
			view.AssignmentDate = &date
		}
		views = append(views, view)
	}
	return views, nil
}

// Available returns the identifiers of dongles open for checkout.
func (t *Tracker) Available() ([]string, error) {
	return t.Store.Dongle().ListAvailable()
}

// CheckedOut returns the currently checked out dongles, most recent first.
func (t *Tracker) CheckedOut() ([]stor.CheckedOutDongle, error) {
	return t.Store.Assignment().CheckedOut()
}

// CheckOut assigns an available dongle to someone.
// Availability is recomputed and the event appended under a single lock.
func (t *Tracker) CheckOut(dongleID, assignedTo, notes string) error {

	t.mu.Lock()
	defer t.mu.Unlock()

	// the dongle must exist
	dongle, err := t.Store.Dongle().Get(dongleID)
	if err != nil {
		return err
	}

	// the dongle must be in the available set: working, not checked out
	available, err := t.Store.Dongle().ListAvailable()
	if err != nil {
		return err
	}
	if !contains(available, dongleID) {
		if dongle.State != stor.STATE_WORKING {
			return fmt.Errorf("%w: its state is %q", ErrNotAvailable, dongle.State)
		}
		return fmt.Errorf("%w: already checked out", ErrNotAvailable)
	}

	if err = t.Store.Assignment().CheckOut(dongleID, assignedTo, notes); err != nil {
		return err
	}
	log.Infof("Dongle %s checked out to %s", dongleID, assignedTo)
	return nil
}

// CheckIn releases a checked out dongle.
func (t *Tracker) CheckIn(dongleID, notes string) error {

	t.mu.Lock()
	defer t.mu.Unlock()

	// the dongle must exist
	if _, err := t.Store.Dongle().Get(dongleID); err != nil {
		return err
	}

	// the dongle must currently be checked out
	active, err := t.Store.Assignment().Active()
	if err != nil {
		return err
	}
	if _, checkedOut := active[dongleID]; !checkedOut {
		return ErrNotCheckedOut
	}

	if err = t.Store.Assignment().CheckIn(dongleID, notes); err != nil {
		return err
	}
	log.Infof("Dongle %s checked in", dongleID)
	return nil
}

// Update applies new notes, default owner and state to a dongle and
// returns the list of changed attributes. Each changed attribute yields
// one edit record; an unchanged update yields none and leaves the row alone.
func (t *Tracker) Update(dongleID, notes, defaultOwner, state, changedBy, changeNotes string) ([]string, error) {

	if err := checkState(state); err != nil {
		return nil, err
	}

	changed, err := t.Store.Dongle().Update(dongleID, notes, defaultOwner, state, changedBy, changeNotes)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		log.Infof("Dongle %s updated by %s, changed: %v", dongleID, changedBy, changed)
	}
	return changed, nil
}

// EditHistory returns the most recent edit records of a dongle.
func (t *Tracker) EditHistory(dongleID string, limit int) (*[]stor.DongleEdit, error) {
	if limit <= 0 {
		limit = 5
	}
	return t.Store.Edit().ForDongle(dongleID, limit)
}

// AssignmentHistory returns assignment events matching the filter, newest
// first. The action filter accepts the display labels used by the selection
// lists ("Check Out" / "Check In") as well as the stored values.
func (t *Tracker) AssignmentHistory(filter stor.AssignmentFilter, limit int) (*[]stor.AssignmentEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	switch filter.Action {
	case "Check Out":
		filter.Action = stor.ACTION_CHECK_OUT
	case "Check In":
		filter.Action = stor.ACTION_CHECK_IN
	}
	return t.Store.Assignment().History(filter, limit)
}

// EditLog returns edit records matching the filter, newest first.
func (t *Tracker) EditLog(filter stor.EditFilter, limit int) (*[]stor.DongleEdit, error) {
	if limit <= 0 {
		limit = 200
	}
	return t.Store.Edit().History(filter, limit)
}

// FilterOptions lists the distinct values seen in the logs, used to
// populate the history filter dropdowns.
type FilterOptions struct {
	DongleIDs []string `json:"dongle_ids"`
	Assignees []string `json:"assignees"`
	Editors   []string `json:"editors"`
	Fields    []string `json:"fields"`
}

func (t *Tracker) FilterOptions() (*FilterOptions, error) {

	dongleIDs, err := t.Store.Assignment().DistinctDongleIDs()
	if err != nil {
		return nil, err
	}
	assignees, err := t.Store.Assignment().DistinctAssignees()
	if err != nil {
		return nil, err
	}
	editors, err := t.Store.Edit().DistinctEditors()
	if err != nil {
		return nil, err
	}
	fields, err := t.Store.Edit().DistinctFields()
	if err != nil {
		return nil, err
	}

	return &FilterOptions{
		DongleIDs: dongleIDs,
		Assignees: assignees,
		Editors:   editors,
		Fields:    fields,
	}, nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
