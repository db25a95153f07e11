// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

// ApplyMigrations renames fields per the compiled key_map in the migration
// manifest. Keys absent from the migration map pass through unchanged.
func (e *Engine) ApplyMigrations(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		newKey, renamed := e.keyMigrations[key]
		if !renamed {
			newKey = key
		}
		out[newKey] = value
	}
	return out
}
