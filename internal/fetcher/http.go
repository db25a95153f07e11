// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fetcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
)

// HTTPFetcher is the plain-HTTP tier of the Fetch Scheduler's fallback
// ladder (scheduler.ModeHTTP): no JS execution, html/ldjson extraction only
// from the server-rendered response body.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewHTTPFetcher builds an HTTPFetcher with a bounded per-request timeout.
func NewHTTPFetcher(timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		logger: logger,
	}
}

func (f *HTTPFetcher) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *HTTPFetcher) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	f.client.CloseIdleConnections()
	return nil
}

// Fetch performs one GET request and parses title/ld+json blocks out of the
// response HTML. ctx bounds the request; spec.md §5's pageGotoTimeoutMs is
// the caller's responsibility via ctx deadline.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (PageData, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return PageData{}, err
	}
	httpReq.Header.Set("User-Agent", "spec-harvester/1.0 (+field-harvest)")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return PageData{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return PageData{}, err
	}

	htmlText := string(body)
	title, ldjson := extractTitleAndLDJSON(htmlText)

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return PageData{
		URL:          req.URL,
		FinalURL:     finalURL,
		Status:       resp.StatusCode,
		Title:        title,
		HTML:         htmlText,
		LDJSONBlocks: ldjson,
		FetchTelemetry: Telemetry{
			ElapsedMs: time.Since(start).Milliseconds(),
			Redirect:  finalURL != req.URL,
		},
		FetchedAt: time.Now(),
	}, nil
}

// extractTitleAndLDJSON walks the parsed HTML tree once, collecting the
// <title> text and every <script type="application/ld+json"> body.
func extractTitleAndLDJSON(doc string) (string, []string) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", nil
	}

	var title string
	var ldjson []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil {
					title = n.FirstChild.Data
				}
			case "script":
				if isLDJSONScript(n) && n.FirstChild != nil {
					ldjson = append(ldjson, n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return title, ldjson
}

func isLDJSONScript(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "type" && strings.EqualFold(attr.Val, "application/ld+json") {
			return true
		}
	}
	return false
}
