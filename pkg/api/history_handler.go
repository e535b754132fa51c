// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"

	"github.com/edrlab/dongle-tracker/pkg/stor"
)

// DongleEditHistory returns the most recent edit records of a dongle.
func (a *APICtrl) DongleEditHistory(w http.ResponseWriter, r *http.Request) {

	var dongleID string
	if dongleID = getDongleID(w, r); dongleID == "" {
		return
	}

	edits, err := a.Tracker.EditHistory(dongleID, getLimit(r, 5))
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	render.JSON(w, r, edits)
}

// AssignmentHistory returns assignment events, newest first, optionally
// filtered by dongle, assignee and action.
func (a *APICtrl) AssignmentHistory(w http.ResponseWriter, r *http.Request) {
	log.Debug("Assignment History")

	q := r.URL.Query()
	filter := stor.AssignmentFilter{
		DongleID:   q.Get("dongle"),
		AssignedTo: q.Get("assignee"),
		Action:     q.Get("action"),
	}

	events, err := a.Tracker.AssignmentHistory(filter, getLimit(r, 100))
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	render.JSON(w, r, events)
}

// EditHistory returns edit records, newest first, optionally filtered by
// dongle, editor and field name.
func (a *APICtrl) EditHistory(w http.ResponseWriter, r *http.Request) {
	log.Debug("Edit History")

	q := r.URL.Query()
	filter := stor.EditFilter{
		DongleID:     q.Get("dongle"),
		ChangedBy:    q.Get("editor"),
		FieldChanged: q.Get("field"),
	}

	edits, err := a.Tracker.EditLog(filter, getLimit(r, 200))
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	render.JSON(w, r, edits)
}

// FilterOptions returns the distinct values seen in the logs, used to
// populate the history filter dropdowns.
func (a *APICtrl) FilterOptions(w http.ResponseWriter, r *http.Request) {

	options, err := a.Tracker.FilterOptions()
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	render.JSON(w, r, options)
}

// getLimit reads the limit query parameter, falling back to a default.
func getLimit(r *http.Request, fallback int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			return val
		}
	}
	return fallback
}
