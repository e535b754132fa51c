// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/edrlab/dongle-tracker/pkg/stor"
	"github.com/edrlab/dongle-tracker/pkg/track"
)

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	ErrorText  string `json:"error,omitempty"` // application-level error message
}

// Render processes error responses before marshalling.
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// ErrInvalidRequest maps a request error to a 400 response.
func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

// ErrConflict maps a command precondition failure to a 409 response.
func ErrConflict(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusConflict,
		StatusText:     "Conflicting request.",
		ErrorText:      err.Error(),
	}
}

// ErrServer maps a storage error to a 500 response.
func ErrServer(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Server error.",
		ErrorText:      err.Error(),
	}
}

// ErrRender maps a marshalling error to a 422 response.
func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

// ErrNotFound is the generic 404 response.
var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}

// ErrCommand maps a tracker error to the proper response, so that every
// handler surfaces the same status code for the same failure.
func ErrCommand(err error) render.Renderer {
	switch {
	case errors.Is(err, stor.ErrDongleNotFound):
		return ErrNotFound
	case errors.Is(err, stor.ErrDuplicateID),
		errors.Is(err, track.ErrNotAvailable),
		errors.Is(err, track.ErrNotCheckedOut):
		return ErrConflict(err)
	case errors.Is(err, track.ErrInvalidState):
		return ErrInvalidRequest(err)
	default:
		return ErrServer(err)
	}
}
