// Package records defines the typed shapes stored in planner collections.
//
// The document store and the mirror only see opaque maps; these types give
// modules a checked view of them. Field names follow the stored JSON so
// records written by older clients decode unchanged.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/loveeagles/planner/internal/docstore"
)

// Per-user collection names.
const (
	CollectionAssignments    = "assignments"
	CollectionGoals          = "goals"
	CollectionNotes          = "notes"
	CollectionMoods          = "moods"
	CollectionStudySessions  = "studySessions"
	CollectionJournalEntries = "journalEntries"
)

// DateLayout is the calendar-day key used by dated records.
const DateLayout = "2006-01-02"

// DateKey returns the local calendar day of t.
func DateKey(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// ParseDate parses a DateLayout day as local midnight. Full RFC 3339
// timestamps are accepted too.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// NewID returns a time-derived id (Unix milliseconds).
func NewID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a rejected field. No write is attempted when one
// is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

// ToRecord converts a typed value into a store record.
func ToRecord(v any) (docstore.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var rec docstore.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return rec, nil
}

// FromRecord decodes a store record into T.
func FromRecord[T any](rec docstore.Record) (T, error) {
	var out T
	data, err := json.Marshal(rec)
	if err != nil {
		return out, fmt.Errorf("failed to decode record: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode record %s: %w", rec.ID(), err)
	}
	return out, nil
}

// Decode converts a record list, skipping records that do not decode.
// It returns the number skipped.
func Decode[T any](recs []docstore.Record) ([]T, int) {
	out := make([]T, 0, len(recs))
	skipped := 0
	for _, rec := range recs {
		v, err := FromRecord[T](rec)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped
}
