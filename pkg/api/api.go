// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Package api manages the api controllers
package api

import (
	"github.com/edrlab/dongle-tracker/pkg/conf"
	"github.com/edrlab/dongle-tracker/pkg/stor"
	"github.com/edrlab/dongle-tracker/pkg/track"
)

// APICtrl contains the context required by http handlers.
type APICtrl struct {
	*conf.Config
	stor.Store
	Tracker *track.Tracker
}

// NewAPICtrl returns a new API controller
func NewAPICtrl(cf *conf.Config, st stor.Store) *APICtrl {
	return &APICtrl{
		Config:  cf,
		Store:   st,
		Tracker: track.NewTracker(cf, st),
	}
}
