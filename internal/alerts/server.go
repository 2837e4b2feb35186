// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package alerts implements the alert webhook receiver used as the
// notification endpoint of the time-series lab: three POST endpoints
// accepting alert payloads and answering plain-text acknowledgments. There
// is no logic behind them; they exist to make alert rules observable.
package alerts

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// payload is the minimal shape of an alert notification. Alerting systems
// put the human-readable text in the _message field.
type payload struct {
	Message string `json:"_message"`
}

// Server handles the alert webhook requests.
type Server struct{}

// NewServer returns a webhook receiver.
func NewServer() *Server { return &Server{} }

// RegisterRoutes sets up the webhook routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleWelcome)
	mux.HandleFunc("/co2", s.handleAlert("co2"))
	mux.HandleFunc("/down", s.handleAlert("down"))
	mux.HandleFunc("/diff", s.handleAlert("diff"))
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, "Welcome to the building telemetry alert test service!")
}

// handleAlert returns the handler for one alert channel. The body must be
// JSON with a _message field; the message is logged and acknowledged.
func (s *Server) handleAlert(channel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
			return
		}
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		log.Printf("alert on %s: %s", channel, p.Message)
		fmt.Fprintf(w, "Notification sent to %s", channel)
	}
}

// ListenAndServe starts the webhook receiver on addr.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Printf("alert webhook receiver listening on %s", addr)
	return httpServer.ListenAndServe()
}
