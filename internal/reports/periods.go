package reports

import (
	"fmt"
	"time"

	"github.com/shopledger/shopledger/internal/shared"
)

// Aggregation periods accepted by the revenue summary.
const (
	PeriodDaily    = "daily"
	PeriodWeekly   = "weekly"
	PeriodMonthly  = "monthly"
	PeriodAnnually = "annually"
)

var truncUnits = map[string]string{
	PeriodDaily:    "day",
	PeriodWeekly:   "week",
	PeriodMonthly:  "month",
	PeriodAnnually: "year",
}

func truncUnit(period string) (string, error) {
	unit, ok := truncUnits[period]
	if !ok {
		return "", fmt.Errorf("%w: invalid period %q, expected daily, weekly, monthly or annually", shared.ErrValidation, period)
	}
	return unit, nil
}

// periodEnd returns the inclusive calendar end of the bucket starting at
// start. The monthly case adds four days to day 28, which always lands in
// the next month, then backs up to its first day.
func periodEnd(start time.Time, period string) time.Time {
	switch period {
	case PeriodWeekly:
		return start.AddDate(0, 0, 6)
	case PeriodMonthly:
		firstOfNext := time.Date(start.Year(), start.Month(), 28, 0, 0, 0, 0, start.Location()).
			AddDate(0, 0, 4)
		firstOfNext = time.Date(firstOfNext.Year(), firstOfNext.Month(), 1, 0, 0, 0, 0, start.Location())
		return firstOfNext.AddDate(0, 0, -1)
	case PeriodAnnually:
		return time.Date(start.Year(), time.December, 31, 0, 0, 0, 0, start.Location())
	default:
		return start
	}
}
