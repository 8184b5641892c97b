package processors

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/models"
)

// HistoryLimit bounds the retained history per metal: the 30 most recent
// dates, oldest dropped first.
const HistoryLimit = 30

// SortHistoryAscending returns a copy of history sorted oldest to newest.
// Dates are ISO (YYYY-MM-DD), so string order is chronological order.
func SortHistoryAscending(history []models.HistoryEntry) []models.HistoryEntry {
	sorted := make([]models.HistoryEntry, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	return sorted
}

// ReverseHistory returns a copy in the opposite order. Used to flip between
// the ascending processing order and the newest-first storage order.
func ReverseHistory(history []models.HistoryEntry) []models.HistoryEntry {
	reversed := make([]models.HistoryEntry, len(history))
	for i, entry := range history {
		reversed[len(history)-1-i] = entry
	}
	return reversed
}

// LatestBefore finds the chronologically latest entry strictly before date.
// This is deliberately not "yesterday": when a day was skipped, the diff is
// taken against the last recorded entry, whatever its date.
func LatestBefore(history []models.HistoryEntry, date string) (models.HistoryEntry, bool) {
	var found models.HistoryEntry
	ok := false
	for _, entry := range history {
		if entry.Date < date && (!ok || entry.Date > found.Date) {
			found = entry
			ok = true
		}
	}
	return found, ok
}

// MergeHistoryEntry inserts entry into history, replacing any existing entry
// for the same date, and returns the ascending, bounded result.
//
// When the insert is backdated (an entry already exists after entry.Date),
// the immediately following entry's change is recomputed against the new
// price: changing the past ripples forward exactly one entry.
func MergeHistoryEntry(history []models.HistoryEntry, entry models.HistoryEntry) []models.HistoryEntry {
	merged := make([]models.HistoryEntry, 0, len(history)+1)
	for _, h := range history {
		if h.Date != entry.Date {
			merged = append(merged, h)
		}
	}
	merged = append(merged, entry)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })

	for i, h := range merged {
		if h.Date == entry.Date && i < len(merged)-1 {
			next := &merged[i+1]
			next.Change, _ = CalculateChange(next.Price, entry.Price)
			break
		}
	}

	if len(merged) > HistoryLimit {
		merged = merged[len(merged)-HistoryLimit:]
	}
	return merged
}

// RecalculateChanges recomputes every entry's change strictly from its
// immediate predecessor in ascending order. The first entry's change is 0 by
// policy. This is the repair pass for histories patched by hand; written in
// chronological order through the normal update path, a history already
// satisfies it.
func RecalculateChanges(history []models.HistoryEntry) []models.HistoryEntry {
	sorted := SortHistoryAscending(history)
	out := make([]models.HistoryEntry, len(sorted))
	for i, entry := range sorted {
		out[i] = entry
		if i == 0 {
			out[i].Change = decimal.Zero
			continue
		}
		out[i].Change, _ = CalculateChange(entry.Price, sorted[i-1].Price)
	}
	return out
}
