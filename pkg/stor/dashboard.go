// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package stor

import (
	"time"
)

// DashboardData data model
type StateCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type AssigneeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type DashboardData struct {
	TotalDongles      int             `json:"totalDongles"`
	CheckedOutDongles int             `json:"checkedOutDongles"`
	AvailableDongles  int             `json:"availableDongles"`
	TotalEvents       int             `json:"totalEvents"`
	TotalEdits        int             `json:"totalEdits"`
	EventsLastMonth   int             `json:"eventsLastMonth"`
	EventsLastWeek    int             `json:"eventsLastWeek"`
	OldestDongleDate  string          `json:"oldestDongleDate"`
	LatestEventDate   string          `json:"latestEventDate"`
	DongleStates      []StateCount    `json:"dongleStates"`
	TopAssignees      []AssigneeCount `json:"topAssignees"`
}

// GetDashboard provides a summary of key metrics about the dongle pool.
func (s dashboardStore) GetDashboard() (*DashboardData, error) {
	var data DashboardData

	// Temporary variables for counts (GORM uses int64)
	var totalDongles, totalEvents, totalEdits int64

	// Count total dongles
	if err := s.db.Model(&Dongle{}).Count(&totalDongles).Error; err != nil {
		return nil, err
	}
	data.TotalDongles = int(totalDongles)

	// Count total assignment events
	if err := s.db.Model(&AssignmentEvent{}).Count(&totalEvents).Error; err != nil {
		return nil, err
	}
	data.TotalEvents = int(totalEvents)

	// Count total edit records
	if err := s.db.Model(&DongleEdit{}).Count(&totalEdits).Error; err != nil {
		return nil, err
	}
	data.TotalEdits = int(totalEdits)

	// Dates for period calculations
	now := time.Now()
	lastMonth := now.AddDate(0, -1, 0)
	lastWeek := now.AddDate(0, 0, -7)

	var eventsLastMonth, eventsLastWeek int64

	// Count events from the last month
	if err := s.db.Model(&AssignmentEvent{}).Where("date >= ?", lastMonth).Count(&eventsLastMonth).Error; err != nil {
		return nil, err
	}
	data.EventsLastMonth = int(eventsLastMonth)

	// Count events from the last week
	if err := s.db.Model(&AssignmentEvent{}).Where("date >= ?", lastWeek).Count(&eventsLastWeek).Error; err != nil {
		return nil, err
	}
	data.EventsLastWeek = int(eventsLastWeek)

	// Date of the oldest dongle
	var oldestDongle Dongle
	if err := s.db.Model(&Dongle{}).Order("created_date ASC").First(&oldestDongle).Error; err == nil {
		data.OldestDongleDate = oldestDongle.CreatedDate.Format("2006-01-02")
	}

	// Date of the most recent assignment event
	var latestEvent AssignmentEvent
	if err := s.db.Model(&AssignmentEvent{}).Order("date DESC").First(&latestEvent).Error; err == nil {
		data.LatestEventDate = latestEvent.Date.Format("2006-01-02")
	}

	// Dongles per state
	var states []struct {
		State string
		Count int64
	}
	if err := s.db.Model(&Dongle{}).Select("state, count(*) as count").Group("state").Scan(&states).Error; err != nil {
		return nil, err
	}
	data.DongleStates = make([]StateCount, len(states))
	for i, st := range states {
		name := st.State
		if name == "" {
			name = DEFAULT_STATE
		}
		data.DongleStates[i] = StateCount{Name: name, Count: int(st.Count)}
	}

	// Most active assignees, by number of checkouts
	var assignees []struct {
		AssignedTo string
		Count      int64
	}
	if err := s.db.Model(&AssignmentEvent{}).
		Select("assigned_to, count(*) as count").
		Where("action = ? AND assigned_to <> ''", ACTION_CHECK_OUT).
		Group("assigned_to").Order("count DESC").Limit(5).
		Scan(&assignees).Error; err != nil {
		return nil, err
	}
	data.TopAssignees = make([]AssigneeCount, len(assignees))
	for i, a := range assignees {
		data.TopAssignees[i] = AssigneeCount{Name: a.AssignedTo, Count: int(a.Count)}
	}

	// Derived counts: checked out and available right now
	active, err := activeAssignments(s.db)
	if err != nil {
		return nil, err
	}
	data.CheckedOutDongles = len(active)

	var working []string
	if err := s.db.Model(&Dongle{}).Where("state = ?", STATE_WORKING).Pluck("dongle_id", &working).Error; err != nil {
		return nil, err
	}
	available := 0
	for _, dongleID := range working {
		if _, checkedOut := active[dongleID]; !checkedOut {
			available++
		}
	}
	data.AvailableDongles = available

	return &data, nil
}
