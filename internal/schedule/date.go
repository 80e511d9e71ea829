package schedule

import (
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"januari":   time.January,
	"februari":  time.February,
	"maret":     time.March,
	"april":     time.April,
	"mei":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"agustus":   time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"desember":  time.December,
}

// Location is the timezone SILAT publishes its schedule in (WIB)
var Location = time.FixedZone("WIB", 7*60*60)

// ParseDate parses the Indonesian date text SILAT shows, e.g.
// "Senin, 01 Januari 2024" or "1 Januari 2024".
// Returns time.Time{} (zero value) if parsing fails.
func ParseDate(dateText string) time.Time {
	text := strings.TrimSpace(dateText)
	if _, rest, ok := strings.Cut(text, ","); ok {
		text = rest
	}

	parts := strings.Fields(text)
	if len(parts) != 3 {
		return time.Time{}
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}
	}
	month, ok := months[strings.ToLower(parts[1])]
	if !ok {
		return time.Time{}
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, Location)
	if t.Day() != day {
		// 31 Februari and friends
		return time.Time{}
	}
	return t
}

// Start returns when the session begins, combining Date and StartTime
// ("09:00" or "09.00"). Returns time.Time{} if the date cannot be parsed; an
// unparseable start time falls back to midnight.
func (r Record) Start() time.Time {
	date := ParseDate(r.Date)
	if date.IsZero() {
		return date
	}

	clock := strings.ReplaceAll(strings.TrimSpace(r.StartTime), ".", ":")
	hm, err := time.Parse("15:04", clock)
	if err != nil {
		return date
	}
	return date.Add(time.Duration(hm.Hour())*time.Hour + time.Duration(hm.Minute())*time.Minute)
}
