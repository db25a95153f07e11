// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import "context"

// Store is the external persistence boundary the orchestrator writes
// through: final merged records, provenance bundles, and review-state
// snapshots all go through Store rather than talking to a filesystem or
// Badger instance directly, so swapping backends never touches caller code.
type Store interface {
	// ReadJSONOrNull decodes the object stored at key into out. Returns
	// (false, nil) if key does not exist — callers treat that as "null",
	// not an error.
	ReadJSONOrNull(ctx context.Context, key string, out any) (bool, error)

	// WriteObject JSON-encodes v and stores it at key, overwriting any
	// existing value.
	WriteObject(ctx context.Context, key string, v any) error

	// AppendText appends line plus a trailing newline to the object at key,
	// creating it if absent. Used for append-only audit/provenance logs.
	AppendText(ctx context.Context, key string, line string) error

	// ObjectExists reports whether key has been written.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// ResolveOutputKey builds the canonical storage key for a product's
	// output artifact within a category, e.g. "{category}/{productId}/{suffix}".
	ResolveOutputKey(category, productID, suffix string) string
}
