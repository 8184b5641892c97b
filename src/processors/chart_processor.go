package processors

import (
	"sort"
	"time"

	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/utils"
)

// BuildChartData derives every fixed look-back window from the reconciled
// history. Series are recomputed wholesale on each reconciliation, never
// patched incrementally. Input order does not matter; output is ascending.
func BuildChartData(history []models.HistoryEntry, now time.Time) models.ChartData {
	sorted := make([]models.HistoryEntry, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	filterByYears := func(years int) []models.ChartPoint {
		// Entries dated exactly now - N years are included in the window.
		cutoff := utils.FormatDate(now.In(utils.ISTLocation).AddDate(-years, 0, 0))
		points := make([]models.ChartPoint, 0, len(sorted))
		for _, entry := range sorted {
			if entry.Date >= cutoff {
				points = append(points, models.ChartPoint{Date: entry.Date, Price: entry.Price})
			}
		}
		return points
	}

	allTime := make([]models.ChartPoint, 0, len(sorted))
	for _, entry := range sorted {
		allTime = append(allTime, models.ChartPoint{Date: entry.Date, Price: entry.Price})
	}

	return models.ChartData{
		OneYear:   filterByYears(1),
		ThreeYear: filterByYears(3),
		FiveYear:  filterByYears(5),
		TenYear:   filterByYears(10),
		AllTime:   allTime,
	}
}
