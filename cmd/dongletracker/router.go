// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/edrlab/dongle-tracker/pkg/api"
)

func (s *Server) setRoutes() *chi.Mux {

	// Set api controller dependencies
	a := api.NewAPICtrl(s.Config, s.Store)

	// Define the router
	r := chi.NewRouter()

	// Recovery middleware
	r.Use(middleware.Recoverer)

	// Heartbeat (excluded from logs)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("The Dongle Tracker is running!"))
	})

	// Group for all other routes
	r.Group(func(r chi.Router) {
		// Logger middleware
		r.Use(middleware.Logger)

		r.NotFound(notFoundProblemDetail)

		// CORS Configuration
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:8090", "http://localhost:8091"}, // URLs of the web frontend
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300, // Maximum value not ignored by any of major browsers
		}))

		// Private Routes
		// Require Authentication
		credentials := make(map[string]string)
		credentials[s.Config.Access.Username] = s.Config.Access.Password

		r.Group(func(r chi.Router) {
			r.Use(middleware.BasicAuth("restricted", credentials))
			r.Use(render.SetContentType(render.ContentTypeJSON))

			// Dongles: no delete route, retirement is a state change
			r.Route("/dongles", func(r chi.Router) {
				r.Get("/", a.ListDongles)               // GET /dongles
				r.Post("/", a.CreateDongle)             // POST /dongles
				r.Get("/available", a.AvailableDongles) // GET /dongles/available

				r.Route("/{dongleID}", func(r chi.Router) {
					r.Get("/", a.GetDongle)              // GET /dongles/123
					r.Put("/", a.UpdateDongle)           // PUT /dongles/123
					r.Get("/edits", a.DongleEditHistory) // GET /dongles/123/edits
				})
			})

			// Checkout / checkin
			r.Post("/checkout/{dongleID}", a.CheckOut) // POST /checkout/123
			r.Put("/checkin/{dongleID}", a.CheckIn)    // PUT /checkin/123
			r.Get("/checkedout", a.ListCheckedOut)     // GET /checkedout

			// History logs and their filter options
			r.Route("/history", func(r chi.Router) {
				r.Get("/assignments", a.AssignmentHistory) // GET /history/assignments{?dongle,assignee,action,limit}
				r.Get("/edits", a.EditHistory)             // GET /history/edits{?dongle,editor,field,limit}
				r.Get("/filters", a.FilterOptions)         // GET /history/filters
			})
		})

		// Dashboard data
		r.Post("/dashdata/login", Login(s.Config)) // POST /dashdata/login
		// Require JWT Authentication
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(s.Config))
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Route("/dashdata", func(r chi.Router) {
				r.Get("/data", a.GetDashboardData) // GET /dashdata/data
			})
		})

	})

	return r
}

// notFoundProblemDetail formats not found errors as problem details, for the sake of consistency.
func notFoundProblemDetail(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{"type": "about:blank", "title": "Endpoint not found."}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)

	json.NewEncoder(w).Encode(response)
}
