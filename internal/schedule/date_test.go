package schedule

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{name: "with weekday", text: "Senin, 01 Januari 2024", want: time.Date(2024, time.January, 1, 0, 0, 0, 0, Location)},
		{name: "padded", text: "  Selasa, 02 Januari 2024 ", want: time.Date(2024, time.January, 2, 0, 0, 0, 0, Location)},
		{name: "no weekday", text: "9 Mei 2024", want: time.Date(2024, time.May, 9, 0, 0, 0, 0, Location)},
		{name: "mixed case month", text: "Jumat, 20 DESEMBER 2024", want: time.Date(2024, time.December, 20, 0, 0, 0, 0, Location)},
		{name: "english month", text: "01 January 2024"},
		{name: "impossible day", text: "31 Februari 2024"},
		{name: "missing year", text: "Senin, 01 Januari"},
		{name: "empty", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.text)
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestRecord_Start(t *testing.T) {
	day := time.Date(2024, time.January, 1, 0, 0, 0, 0, Location)

	tests := []struct {
		name  string
		date  string
		start string
		want  time.Time
	}{
		{name: "colon", date: "Senin, 01 Januari 2024", start: "09:30", want: day.Add(9*time.Hour + 30*time.Minute)},
		{name: "dot", date: "Senin, 01 Januari 2024", start: "13.00", want: day.Add(13 * time.Hour)},
		{name: "bad time", date: "Senin, 01 Januari 2024", start: "pagi", want: day},
		{name: "bad date", date: "besok", start: "09:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Record{Date: tt.date, StartTime: tt.start}.Start()
			if !got.Equal(tt.want) {
				t.Errorf("Start() = %v, want %v", got, tt.want)
			}
		})
	}
}
