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

	"github.com/edrlab/dongle-tracker/pkg/stor"
	"github.com/edrlab/dongle-tracker/pkg/track"
)

// ListDongles lists every dongle with its derived active assignment.
func (a *APICtrl) ListDongles(w http.ResponseWriter, r *http.Request) {
	log.Debug("List Dongles")

	dongles, err := a.Tracker.Overview()
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	if err := render.RenderList(w, r, NewDongleListResponse(dongles)); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}
}

// AvailableDongles lists the identifiers of dongles open for checkout.
func (a *APICtrl) AvailableDongles(w http.ResponseWriter, r *http.Request) {

	available, err := a.Tracker.Available()
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	render.JSON(w, r, available)
}

// CreateDongle adds a new dongle to the pool.
func (a *APICtrl) CreateDongle(w http.ResponseWriter, r *http.Request) {

	// get the payload
	data := &DongleRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	dongle, err := a.Tracker.AddDongle(data.DongleID, data.HalconVersion, data.Notes, data.DefaultOwner, data.State)
	if err != nil {
		render.Render(w, r, ErrCommand(err))
		return
	}

	render.Status(r, http.StatusCreated)
	if err := render.Render(w, r, NewDongleResponse(dongle)); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}
}

// GetDongle returns a specific dongle.
func (a *APICtrl) GetDongle(w http.ResponseWriter, r *http.Request) {

	var dongle *stor.Dongle
	var err error

	if dongleID := chi.URLParam(r, "dongleID"); dongleID != "" {
		dongle, err = a.Store.Dongle().Get(dongleID)
	} else {
		render.Render(w, r, ErrInvalidRequest(errors.New("missing required dongle identifier")))
		return
	}
	if err != nil {
		render.Render(w, r, ErrCommand(err))
		return
	}
	if err := render.Render(w, r, NewDongleResponse(dongle)); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}
}

// UpdateDongle updates the mutable attributes of a dongle and returns the
// list of changed attributes, empty when nothing differed.
func (a *APICtrl) UpdateDongle(w http.ResponseWriter, r *http.Request) {

	var dongleID string
	if dongleID = chi.URLParam(r, "dongleID"); dongleID == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("missing required dongle identifier")))
		return
	}

	// get the payload
	data := &DongleUpdateRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	changed, err := a.Tracker.Update(dongleID, data.Notes, data.DefaultOwner, data.State, data.ChangedBy, data.ChangeNotes)
	if err != nil {
		render.Render(w, r, ErrCommand(err))
		return
	}

	render.JSON(w, r, UpdateResult{Changed: changed})
}

// --
// Request and Response payloads for the REST api.
// --

// DongleRequest is the request payload for dongle creation.
type DongleRequest struct {
	DongleID      string `json:"dongle_id" validate:"required"`
	HalconVersion string `json:"halcon_version"`
	Notes         string `json:"notes"`
	DefaultOwner  string `json:"default_owner"`
	State         string `json:"state"`
}

// Bind post-processes requests after unmarshalling.
func (d *DongleRequest) Bind(r *http.Request) error {
	if d.DefaultOwner == "" {
		d.DefaultOwner = stor.DEFAULT_OWNER
	}
	if d.State == "" {
		d.State = stor.DEFAULT_STATE
	}
	validate := validator.New()
	return validate.Struct(d)
}

// DongleUpdateRequest is the request payload for dongle updates.
type DongleUpdateRequest struct {
	Notes        string `json:"notes"`
	DefaultOwner string `json:"default_owner" validate:"required"`
	State        string `json:"state" validate:"required"`
	ChangedBy    string `json:"changed_by" validate:"required"`
	ChangeNotes  string `json:"change_notes"`
}

// Bind post-processes requests after unmarshalling.
func (d *DongleUpdateRequest) Bind(r *http.Request) error {
	validate := validator.New()
	return validate.Struct(d)
}

// UpdateResult reports which attributes an update changed.
type UpdateResult struct {
	Changed []string `json:"changed"`
}

// DongleResponse is the response payload for dongles.
type DongleResponse struct {
	*stor.Dongle
}

// NewDongleResponse creates a rendered dongle.
func NewDongleResponse(dongle *stor.Dongle) *DongleResponse {
	return &DongleResponse{Dongle: dongle}
}

// Render processes responses before marshalling.
func (d *DongleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// DongleViewResponse is the response payload for the dongle overview.
type DongleViewResponse struct {
	*track.DongleView
}

// NewDongleListResponse creates a rendered list of dongle views.
func NewDongleListResponse(dongles []track.DongleView) []render.Renderer {
	list := []render.Renderer{}
	for i := 0; i < len(dongles); i++ {
		list = append(list, &DongleViewResponse{DongleView: &dongles[i]})
	}
	return list
}

// Render processes responses before marshalling.
func (d *DongleViewResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
