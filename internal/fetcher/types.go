// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fetcher is the Fetcher interface (imported) of spec.md §6:
// start()/stop()/fetch({url,host}) → PageData. The Fetch Scheduler only
// needs a scheduler.FetchFunc; this package also caches each fetch's full
// PageData so an orchestrator.ExtractFunc closure can look it up by URL
// without widening scheduler.FetchResult's already-specified shape.
package fetcher

import (
	"context"
	"time"
)

// Request is one fetch request.
type Request struct {
	URL  string
	Host string
}

// NetworkResponse is one captured subresource response, spec.md §6's
// PageData.networkResponses[] entry.
type NetworkResponse struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// Telemetry is spec.md §6's PageData.fetchTelemetry.
type Telemetry struct {
	ElapsedMs       int64
	Redirect        bool
	BlockedByRobots bool
}

// PageData is spec.md §6's PageData: url, finalUrl, status, title, html,
// ldjsonBlocks, embeddedState, networkResponses[], pdfBlocks?, fetchTelemetry.
type PageData struct {
	URL              string
	FinalURL         string
	Status           int
	Title            string
	HTML             string
	LDJSONBlocks      []string
	EmbeddedState     map[string]any
	NetworkResponses  []NetworkResponse
	PDFBlocks         []string
	FetchTelemetry    Telemetry
	FetchedAt         time.Time
}

// Fetcher is the imported external collaborator. start()/stop() bracket a
// fetch session (e.g. a headless browser pool); fetch() performs one fetch.
type Fetcher interface {
	Start() error
	Stop() error
	Fetch(ctx context.Context, req Request) (PageData, error)
}
