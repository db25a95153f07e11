// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package urlnorm is the single definition of "the same URL" shared by the
// Source Planner and the Frontier Store: lowercase host, strip "www.",
// strip fragment, collapse a trailing slash.
package urlnorm

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes raw for dedup comparison. Unparsable input is
// returned lowercased and trimmed as a best-effort fallback.
func Normalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}

	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")
	u.Fragment = ""

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String()
}

// Host extracts the normalized (lowercased, "www."-stripped) host from raw.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// ParentPath returns the parent directory of a URL's path, used to group
// sibling URLs for the Frontier Store's path-dead pattern detection. The
// parent of "/a/b/c" is "/a/b"; the parent of "/a" or "/" is "/".
func ParentPath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "/"
	}
	path := strings.TrimSuffix(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}
