package urgency

import (
	"time"

	"github.com/terra-clan/compete-engine/internal/models"
)

// DefaultPanicDays is the days-until threshold below which a saved competition is surfaced
const DefaultPanicDays = 5

// PanicRoom returns the competitions whose days-until is below thresholdDays, in input order.
// Records without a start date cannot be classified and are left out.
func PanicRoom(competitions []models.Competition, now time.Time, thresholdDays int) []models.Competition {
	result := make([]models.Competition, 0)
	for _, c := range competitions {
		if c.StartDate.IsZero() {
			continue
		}
		if DaysUntil(c.StartDate, now) < thresholdDays {
			result = append(result, c)
		}
	}
	return result
}
