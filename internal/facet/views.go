package facet

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/terra-clan/compete-engine/internal/models"
)

// DistinctValues returns the unique non-empty values of field present in competitions,
// in first-seen order. Unknown fields yield an empty slice.
func DistinctValues(competitions []models.Competition, field models.Field) []string {
	result := make([]string, 0)
	seen := make(map[string]struct{})

	for i := range competitions {
		v, ok := fieldValue(&competitions[i], field)
		if !ok {
			return result
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// Facets enumerates every filterable field at once
func Facets(competitions []models.Competition) map[models.Field][]string {
	return map[models.Field][]string{
		models.FieldCategory:       DistinctValues(competitions, models.FieldCategory),
		models.FieldDifficulty:     DistinctValues(competitions, models.FieldDifficulty),
		models.FieldTimeCommitment: DistinctValues(competitions, models.FieldTimeCommitment),
		models.FieldPlatform:       DistinctValues(competitions, models.FieldPlatform),
	}
}

func fieldValue(c *models.Competition, field models.Field) (string, bool) {
	switch field {
	case models.FieldCategory:
		return c.Category, true
	case models.FieldDifficulty:
		return c.Difficulty, true
	case models.FieldTimeCommitment:
		return string(c.TimeCommitment), true
	case models.FieldPlatform:
		return c.Platform, true
	}
	return "", false
}

// SortKey selects the ordering used by Sort
type SortKey string

const (
	SortByDate           SortKey = "date"
	SortByPrize          SortKey = "prize"
	SortByPortfolioValue SortKey = "portfolioValue"
	SortByDifficulty     SortKey = "difficulty"
)

// ParseSortKey validates a user-supplied sort key
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case SortByDate, SortByPrize, SortByPortfolioValue, SortByDifficulty:
		return k, true
	}
	return "", false
}

var difficultyRank = map[string]float64{
	"beginner":     0,
	"intermediate": 1,
	"mixed":        1.5,
	"advanced":     2,
	"expert":       3,
}

// Sort returns a stably sorted copy. Records with equal keys keep their relative order.
// Unknown keys return an unsorted copy.
func Sort(competitions []models.Competition, key SortKey, ascending bool) []models.Competition {
	result := append([]models.Competition(nil), competitions...)

	var less func(a, b *models.Competition) bool
	switch key {
	case SortByDate:
		less = func(a, b *models.Competition) bool { return dateKey(a).Before(dateKey(b)) }
	case SortByPrize:
		less = func(a, b *models.Competition) bool { return prizeKey(a) < prizeKey(b) }
	case SortByPortfolioValue:
		less = func(a, b *models.Competition) bool { return a.PortfolioValue < b.PortfolioValue }
	case SortByDifficulty:
		less = func(a, b *models.Competition) bool { return difficultyKey(a) < difficultyKey(b) }
	default:
		return result
	}

	sort.SliceStable(result, func(i, j int) bool {
		if ascending {
			return less(&result[i], &result[j])
		}
		return less(&result[j], &result[i])
	})
	return result
}

// dateKey puts undated records last in ascending order
func dateKey(c *models.Competition) time.Time {
	if c.StartDate.IsZero() {
		return time.Unix(1<<62, 0)
	}
	return c.StartDate
}

// prizeKey reads purely numeric prize values, anything else counts as 0
func prizeKey(c *models.Competition) float64 {
	if c.Prize == nil {
		return 0
	}
	v := strings.TrimSpace(c.Prize.Value)
	if v == "" || strings.TrimLeft(v, "0123456789") != "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func difficultyKey(c *models.Competition) float64 {
	return difficultyRank[strings.ToLower(c.Difficulty)]
}

// Upcoming returns records starting within [now, now+days], earliest first
func Upcoming(competitions []models.Competition, now time.Time, days int) []models.Competition {
	end := now.AddDate(0, 0, days)

	result := make([]models.Competition, 0)
	for _, c := range competitions {
		if c.StartDate.IsZero() {
			continue
		}
		if !c.StartDate.Before(now) && !c.StartDate.After(end) {
			result = append(result, c)
		}
	}
	return Sort(result, SortByDate, true)
}

// Summarize counts records per category, difficulty and platform; empty values are skipped
func Summarize(competitions []models.Competition) models.Stats {
	stats := models.Stats{
		Total:        len(competitions),
		ByCategory:   make(map[string]int),
		ByDifficulty: make(map[string]int),
		ByPlatform:   make(map[string]int),
	}

	for _, c := range competitions {
		if c.Category != "" {
			stats.ByCategory[c.Category]++
		}
		if c.Difficulty != "" {
			stats.ByDifficulty[c.Difficulty]++
		}
		if c.Platform != "" {
			stats.ByPlatform[c.Platform]++
		}
	}
	return stats
}
