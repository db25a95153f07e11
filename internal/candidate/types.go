// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package candidate is the Candidate Pipeline: converts {fetchResult,
// pageData} into scored, identity-gated, provenance-tagged Candidates per
// spec.md §4.5, modeling the teacher's duck-typed tool-call shapes as a
// tagged Surface variant the way routing/prefilter.go tags tool candidates.
package candidate

import "time"

// Surface tags which extraction family a raw key/value pair came from.
type Surface string

const (
	SurfaceHTMLTable Surface = "html_table"
	SurfaceJSONLD    Surface = "ldjson"
	SurfaceNetworkJSON Surface = "network_json"
	SurfacePDFTable  Surface = "pdf_table"
	SurfacePDFKV     Surface = "pdf_kv"
	SurfaceDOM       Surface = "dom"
	SurfaceLLM       Surface = "llm_extract"
	SurfaceHelper    Surface = "helper_supportive"
)

// methodPriority is the base scoring table from spec.md §4.5 step 4.
var methodPriority = map[Surface]int{
	SurfaceNetworkJSON: 5,
	SurfaceJSONLD:      5,
	SurfaceHTMLTable:   4,
	SurfacePDFTable:    4,
	SurfacePDFKV:       3,
	SurfaceDOM:         2,
	SurfaceLLM:         1,
	SurfaceHelper:      1,
}

// RawField is one (key, value, path) surface-extraction hit, before
// normalization or identity gating.
type RawField struct {
	Key        string
	Value      string
	Path       string
	Surface    Surface
	RowID      string
	TableID    string
	Quote      string
	QuoteSpan  [2]int
	SnippetID  string
	SnippetHash string
}

// IdentityGateSet is the set of fields subject to the stricter identity-gate
// confidence cap, per spec.md §4.5 step 3.
var IdentityGateSet = map[string]bool{
	"brand":      true,
	"model":      true,
	"variant":    true,
	"sku":        true,
	"base_model": true,
}

// identityGateStricterCap is the additional confidence ceiling applied to
// identity-gated fields when a source fails the identity gate.
const identityGateStricterCap = 0.25

// Evidence is a single quoted span supporting a Candidate's value.
type Evidence struct {
	SnippetID   string
	SnippetHash string
	Quote       string
	QuoteSpan   [2]int
}

// Candidate is a single (field, value) extraction attempt with evidence,
// score, and provenance. The sextuple (Field, Value, Method, KeyPath,
// SourceID, SnippetID) identifies a candidate per spec.md §3.
type Candidate struct {
	Field               string
	Value               any
	Method              Surface
	SourceID            string
	URL                 string
	Host                string
	Tier                int
	KeyPath             string
	Confidence          float64
	OriginalConfidence  *float64
	Evidence            Evidence
	TargetMatchPassed   bool
	TargetMatchScore    float64
	IdentityRejectReason string
	RetrievedAt         time.Time
}

// dedupeKey identifies a unique candidate per spec.md §4.5 step 5.
func (c Candidate) dedupeKey() string {
	return c.Field + "\x1f" + toComparable(c.Value) + "\x1f" + string(c.Method) + "\x1f" + c.KeyPath
}

// EvidenceEntry is a provenance-entry evidence row per spec.md §3.
type EvidenceEntry struct {
	URL         string
	Host        string
	RootDomain  string
	Tier        int
	Method      Surface
	Quote       string
	RetrievedAt time.Time
}

// ProvenanceEntry is the durable per-field merge result of the pipeline.
type ProvenanceEntry struct {
	Value                 any
	Confidence            float64
	Evidence              []EvidenceEntry
	Confirmations         int
	ApprovedConfirmations int
	PassTarget            float64
	MeetsPassTarget       bool
	RetrievedAt           time.Time
	RejectedEvidence      []EvidenceEntry
}
