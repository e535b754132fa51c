// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// CheckOut assigns an available dongle to someone.
func (a *APICtrl) CheckOut(w http.ResponseWriter, r *http.Request) {

	var dongleID string
	if dongleID = getDongleID(w, r); dongleID == "" {
		return
	}

	// get the payload
	data := &CheckOutRequest{}
	if err := render.Bind(r, data); err != nil {
		log.Errorf("error binding a Check Out request: %v", err)
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := a.Tracker.CheckOut(dongleID, data.AssignedTo, data.Notes); err != nil {
		render.Render(w, r, ErrCommand(err))
		return
	}

	checkedOut, err := a.Tracker.CheckedOut()
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, checkedOut)
}

// CheckIn releases a checked out dongle.
func (a *APICtrl) CheckIn(w http.ResponseWriter, r *http.Request) {

	var dongleID string
	if dongleID = getDongleID(w, r); dongleID == "" {
		return
	}

	// get the payload; notes are optional on check-in
	data := &CheckInRequest{}
	if err := render.Bind(r, data); err != nil {
		log.Errorf("error binding a Check In request: %v", err)
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := a.Tracker.CheckIn(dongleID, data.Notes); err != nil {
		render.Render(w, r, ErrCommand(err))
		return
	}

	checkedOut, err := a.Tracker.CheckedOut()
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	render.JSON(w, r, checkedOut)
}

// ListCheckedOut lists the currently checked out dongles, most recent first.
func (a *APICtrl) ListCheckedOut(w http.ResponseWriter, r *http.Request) {

	checkedOut, err := a.Tracker.CheckedOut()
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	render.JSON(w, r, checkedOut)
}

// --
// local functions
// --

func getDongleID(w http.ResponseWriter, r *http.Request) (dongleID string) {

	if dongleID = chi.URLParam(r, "dongleID"); dongleID == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("missing required dongle identifier")))
	}
	return
}

// --
// Request payloads for the REST api.
// --

// CheckOutRequest is the request payload for checkouts.
type CheckOutRequest struct {
	AssignedTo string `json:"assigned_to" validate:"required"`
	Notes      string `json:"notes"`
}

// Bind post-processes requests after unmarshalling.
func (c *CheckOutRequest) Bind(r *http.Request) error {
	validate := validator.New()
	return validate.Struct(c)
}

// CheckInRequest is the request payload for checkins.
type CheckInRequest struct {
	Notes string `json:"notes"`
}

// Bind post-processes requests after unmarshalling.
func (c *CheckInRequest) Bind(r *http.Request) error {
	return nil
}
