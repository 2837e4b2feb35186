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

// alertsvc is the alert webhook receiver: point your alerting rules at
// POST /co2, /down, or /diff with a JSON body carrying a _message field
// and watch the notifications arrive in the log.
package main

import (
	"flag"
	"log"

	"envsim/internal/alerts"
)

func main() {
	httpAddr := flag.String("http", ":5000", "HTTP listen address")
	flag.Parse()

	if err := alerts.NewServer().ListenAndServe(*httpAddr); err != nil {
		log.Fatalf("alertsvc: %v", err)
	}
}
