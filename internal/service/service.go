// Package service contains the business logic layer of gthanks.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept plain Go values and return domain errors from
// internal/apperror. They never see an *http.Request and never pick a status
// code; the handler layer translates errors to HTTP.
//
// DEPENDENCY INJECTION:
// Every service takes repository interfaces, not *sqlite.DB. Tests pass the
// real SQLite store opened on ":memory:" or a hand-written fake.
//
// WHO MAY DO WHAT:
// PermissionService is the single place that answers "can actor X do Y to
// resource Z". The other services ask it instead of comparing owner IDs
// themselves, so the rules stay in one file.
package service

import (
	"errors"
	"strings"

	"github.com/sakif/gthanks/internal/apperror"
)

// Pagination limits for owner listings.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200

	// MaxBatchIDs caps how many IDs one request may name (status queries,
	// bulk membership edits).
	MaxBatchIDs = 100
)

// uniqueIDs trims, drops empties and removes duplicates, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// isNotFound is a shorthand used when a missing row is an expected outcome.
func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
