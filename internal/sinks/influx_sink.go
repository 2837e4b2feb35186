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

package sinks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"envsim/internal/sim"
)

// Influx writes points to an InfluxDB 2.x write endpoint using the line
// protocol, one line per point with a single float field named value.
type Influx struct {
	writeURL string
	token    string
	client   *http.Client
}

// NewInflux returns a sink posting to baseURL (e.g. "http://localhost:8086")
// with token auth in the given org and bucket.
func NewInflux(baseURL, token, org, bucket string) (*Influx, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("influx sink: base URL is required")
	}
	if org == "" || bucket == "" {
		return nil, fmt.Errorf("influx sink: org and bucket are required")
	}
	q := url.Values{}
	q.Set("org", org)
	q.Set("bucket", bucket)
	q.Set("precision", "ns")
	return &Influx{
		writeURL: strings.TrimRight(baseURL, "/") + "/api/v2/write?" + q.Encode(),
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *Influx) Write(ctx context.Context, p sim.Point) error {
	body := lineProtocol(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.writeURL, strings.NewReader(body))
	if err != nil {
		return err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Token "+s.token)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("influx write: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (s *Influx) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// lineProtocol renders one point as an Influx line. Tags are sorted for a
// stable representation.
func lineProtocol(p sim.Point) string {
	var b strings.Builder
	b.WriteString(escapeLP(p.Measurement))
	keys := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(escapeLP(k))
		b.WriteByte('=')
		b.WriteString(escapeLP(p.Tags[k]))
	}
	fmt.Fprintf(&b, " value=%g %d", p.Value, p.Time.UnixNano())
	return b.String()
}

// escapeLP escapes the characters the line protocol reserves in
// measurements, tag keys, and tag values.
func escapeLP(s string) string {
	r := strings.NewReplacer(",", `\,`, " ", `\ `, "=", `\=`)
	return r.Replace(s)
}
