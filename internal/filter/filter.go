// Package filter implements the in-memory event filter: a pure function
// from (event list, free-text query, filter set) to the matching subset,
// plus the active-filter count shown on the UI badge.
package filter

import (
	"strings"
	"time"

	"github.com/campusbridge/exchange-events/internal/model"
)

// Filters bundles every selectable predicate. The zero value returned by
// DefaultFilters matches all events.
type Filters struct {
	Categories       []string `json:"categories"`
	Location         string   `json:"location"`
	Date             string   `json:"date"`
	TimeFrom         string   `json:"time_from"`
	TimeTo           string   `json:"time_to"`
	MinParticipants  *int     `json:"min_participants"`
	MaxParticipants  *int     `json:"max_participants"`
	Languages        []string `json:"languages"`
	MaxFee           *int     `json:"max_fee"`
	InOutdoor        string   `json:"inoutdoor"`
	ExcludeCompleted bool     `json:"exclude_completed"`
}

// DefaultFilters returns the documented empty filter set.
func DefaultFilters() Filters {
	return Filters{
		Categories: []string{},
		Languages:  []string{},
	}
}

// Keys clearable through Clear, one per filter dimension.
const (
	KeyCategories       = "categories"
	KeyLocation         = "location"
	KeyDate             = "date"
	KeyTimeFrom         = "time_from"
	KeyTimeTo           = "time_to"
	KeyMinParticipants  = "min_participants"
	KeyMaxParticipants  = "max_participants"
	KeyLanguages        = "languages"
	KeyMaxFee           = "max_fee"
	KeyInOutdoor        = "inoutdoor"
	KeyExcludeCompleted = "exclude_completed"
)

// Clear resets exactly one dimension to its default value. Unknown keys
// are ignored.
func (f Filters) Clear(key string) Filters {
	switch key {
	case KeyCategories:
		f.Categories = []string{}
	case KeyLocation:
		f.Location = ""
	case KeyDate:
		f.Date = ""
	case KeyTimeFrom:
		f.TimeFrom = ""
	case KeyTimeTo:
		f.TimeTo = ""
	case KeyMinParticipants:
		f.MinParticipants = nil
	case KeyMaxParticipants:
		f.MaxParticipants = nil
	case KeyLanguages:
		f.Languages = []string{}
	case KeyMaxFee:
		f.MaxFee = nil
	case KeyInOutdoor:
		f.InOutdoor = ""
	case KeyExcludeCompleted:
		f.ExcludeCompleted = false
	}
	return f
}

// ActiveCount returns how many of the eleven dimensions hold a
// non-default value.
func (f Filters) ActiveCount() int {
	n := 0
	if len(f.Categories) > 0 {
		n++
	}
	if f.Location != "" {
		n++
	}
	if f.Date != "" {
		n++
	}
	if f.TimeFrom != "" {
		n++
	}
	if f.TimeTo != "" {
		n++
	}
	if f.MinParticipants != nil {
		n++
	}
	if f.MaxParticipants != nil {
		n++
	}
	if len(f.Languages) > 0 {
		n++
	}
	if f.MaxFee != nil {
		n++
	}
	if f.InOutdoor != "" {
		n++
	}
	if f.ExcludeCompleted {
		n++
	}
	return n
}

// Apply returns the events matching the query and every active
// predicate. Matching is a logical AND; each predicate defaults to
// match-all when its filter value is empty.
func Apply(events []model.Event, query string, f Filters, now time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if Matches(&e, query, f, now) {
			out = append(out, e)
		}
	}
	return out
}

// Matches evaluates a single event against the query and filters.
func Matches(e *model.Event, query string, f Filters, now time.Time) bool {
	if q := strings.TrimSpace(query); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(e.Title), q) &&
			!strings.Contains(strings.ToLower(e.Description), q) {
			return false
		}
	}
	if len(f.Categories) > 0 && !contains(f.Categories, e.Category) {
		return false
	}
	if f.Location != "" && !strings.Contains(e.Location, f.Location) {
		return false
	}
	if f.Date != "" && !strings.HasPrefix(e.Date, f.Date) {
		return false
	}
	if !matchesTimeRange(e, f.TimeFrom, f.TimeTo) {
		return false
	}
	// Both participant bounds compare against the event's capacity.
	if f.MinParticipants != nil && e.MaxParticipants < *f.MinParticipants {
		return false
	}
	if f.MaxParticipants != nil && e.MaxParticipants > *f.MaxParticipants {
		return false
	}
	if len(f.Languages) > 0 && !intersects(f.Languages, e.Languages) {
		return false
	}
	if f.MaxFee != nil {
		fee := 0
		if e.Fee != nil {
			fee = *e.Fee
		}
		if fee > *f.MaxFee {
			return false
		}
	}
	if f.InOutdoor != "" && string(e.InOutdoor) != f.InOutdoor {
		return false
	}
	if f.ExcludeCompleted && e.Completed(now) {
		return false
	}
	return true
}

// matchesTimeRange fails closed: an event without a time portion never
// matches when either bound is set. "HH:MM" strings compare correctly
// as plain strings.
func matchesTimeRange(e *model.Event, from, to string) bool {
	if from == "" && to == "" {
		return true
	}
	t := e.TimePart()
	if t == "" {
		return false
	}
	if from != "" && t < from {
		return false
	}
	if to != "" && t > to {
		return false
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}
