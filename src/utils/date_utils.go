package utils

import (
	"fmt"
	"time"
)

// All calendar dates in the system are IST (UTC+5:30) dates: price sources
// quote Indian retail prices, and a "day" boundary means the IST midnight.
var ISTLocation = time.FixedZone("IST", 5*3600+30*60)

const DateFormat = "2006-01-02"

// Clock supplies the current time so the reconciler stays deterministic in
// tests. Production code uses ISTClock.
type Clock interface {
	Now() time.Time
}

// ISTClock returns wall-clock time localized to IST.
type ISTClock struct{}

func (ISTClock) Now() time.Time {
	return time.Now().In(ISTLocation)
}

// FormatDate renders t as an IST calendar date (YYYY-MM-DD).
func FormatDate(t time.Time) string {
	return t.In(ISTLocation).Format(DateFormat)
}

// FormatTimestamp renders t as RFC3339 with the IST offset, matching the
// lastUpdated field consumed by the dashboard.
func FormatTimestamp(t time.Time) string {
	return t.In(ISTLocation).Format(time.RFC3339)
}

// ParseDate parses a YYYY-MM-DD string as an IST calendar date.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.ParseInLocation(DateFormat, dateStr, ISTLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", dateStr, err)
	}
	return t, nil
}
