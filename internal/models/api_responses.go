// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package models

import "time"

// APIResponse is the standardized envelope used by every HTTP endpoint.
//
// Status is "success" or "error". Data carries the payload on success;
// Error carries structured details on failure. Metadata is always
// present for observability.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError represents a structured error payload.
//
// Codes used by Postlens:
//   - VALIDATION_ERROR     invalid request parameters
//   - IMPORT_DECODE_ERROR  the upload cannot be parsed as CSV at all
//   - PAYLOAD_TOO_LARGE    upload exceeds the configured size cap
//   - DATABASE_ERROR       storage engine failure
//   - TOKENIZER_ERROR      morphological analyzer unavailable
//   - NOT_FOUND            unknown resource
//   - UNAUTHORIZED         missing or invalid credentials
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
