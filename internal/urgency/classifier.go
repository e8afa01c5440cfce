// Package urgency turns a competition deadline into a discrete urgency tier and a
// relative-time label. Every function takes the evaluation instant explicitly.
package urgency

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tier is the urgency classification of a competition
type Tier string

const (
	TierCritical Tier = "critical" // due today or already past
	TierUrgent   Tier = "urgent"   // less than UrgentBelow days left
	TierOpen     Tier = "open"
	TierHiring   Tier = "hiring" // recruitment potential overrides the time-based tiers
)

const secondsPerDay = 24 * 60 * 60

// Default thresholds, in whole days
const (
	DefaultCriticalBelow = 1
	DefaultUrgentBelow   = 3
)

// ErrInvalidTimestamp is matched by every ClassificationError
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ClassificationError reports a start date that cannot be classified
type ClassificationError struct {
	Input  string
	Reason string
}

func (e *ClassificationError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("cannot classify urgency: %s", e.Reason)
	}
	return fmt.Sprintf("cannot classify urgency of %q: %s", e.Input, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidTimestamp) hold
func (e *ClassificationError) Is(target error) bool {
	return target == ErrInvalidTimestamp
}

// Result is the outcome of a classification
type Result struct {
	Tier      Tier   `json:"tier"`
	DaysUntil int    `json:"daysUntil"`
	Label     string `json:"label"`
}

// Policy holds the day thresholds used for tier assignment
type Policy struct {
	CriticalBelow int
	UrgentBelow   int
}

// DefaultPolicy returns the thresholds used by the explore views
func DefaultPolicy() Policy {
	return Policy{
		CriticalBelow: DefaultCriticalBelow,
		UrgentBelow:   DefaultUrgentBelow,
	}
}

// Classify computes the tier, floored days-until and label using the default policy
func Classify(startDate time.Time, recruitmentPotential bool, now time.Time) (Result, error) {
	return DefaultPolicy().Classify(startDate, recruitmentPotential, now)
}

// Classify computes the tier, floored days-until and label.
// Precedence: hiring, then critical, then urgent, then open.
func (p Policy) Classify(startDate time.Time, recruitmentPotential bool, now time.Time) (Result, error) {
	if startDate.IsZero() {
		return Result{}, &ClassificationError{Reason: "start date is not set"}
	}

	days := DaysUntil(startDate, now)
	res := Result{
		DaysUntil: days,
		Label:     Label(days),
	}

	switch {
	case recruitmentPotential:
		res.Tier = TierHiring
	case days < p.CriticalBelow:
		res.Tier = TierCritical
	case days < p.UrgentBelow:
		res.Tier = TierUrgent
	default:
		res.Tier = TierOpen
	}

	return res, nil
}

// DaysUntil returns floor((startDate - now) / 24h).
// 23 hours ahead is 0, 25 hours ahead is 1, one second ago is -1.
// Works on Unix seconds so that far past or future dates do not saturate time.Duration.
func DaysUntil(startDate, now time.Time) int {
	secs := startDate.Unix() - now.Unix()
	if startDate.Nanosecond() < now.Nanosecond() {
		secs--
	}

	days := secs / secondsPerDay
	if secs%secondsPerDay != 0 && secs < 0 {
		days--
	}
	return int(days)
}

// Label renders days-until as a short human string
func Label(days int) string {
	switch {
	case days < 0:
		return "Ended"
	case days == 0:
		return "Ends Today"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the date formats the catalog sources emit.
// Naive timestamps are read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, &ClassificationError{Input: raw, Reason: "empty timestamp"}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &ClassificationError{Input: raw, Reason: "unrecognised timestamp format"}
}

// ClassifyString parses raw and classifies it in one step
func ClassifyString(raw string, recruitmentPotential bool, now time.Time) (Result, error) {
	startDate, err := ParseTimestamp(raw)
	if err != nil {
		return Result{}, err
	}
	return Classify(startDate, recruitmentPotential, now)
}
