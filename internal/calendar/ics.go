// Package calendar renders schedule records as an iCalendar (.ics) document
// so recipients can add new exam sessions to their calendars.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pfrederiksen/silat-watch/internal/schedule"
)

// ContentType is the MIME type of a generated document
const ContentType = "text/calendar; charset=utf-8; method=PUBLISH"

const productID = "-//SILAT Watch//silat-watch//ID"

// defaultLength is used when a record's end time is missing or unusable
const defaultLength = time.Hour

// Generate builds an iCalendar document with one VEVENT per record whose date
// can be parsed. n is the number of events written; records without a usable
// date are left out and the document is empty when n is 0.
func Generate(records []schedule.Record, sourceURL string, now time.Time) (doc string, n int) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, r := range records {
		start := r.Start()
		if start.IsZero() {
			continue
		}

		// UID stays stable across runs so re-imports update instead of duplicate
		event := cal.AddEvent(fmt.Sprintf("%s-%s@silat-watch", uidPart(r.StudentID), start.UTC().Format("20060102T1504")))
		event.SetDtStampTime(now)
		event.SetStartAt(start)
		event.SetEndAt(endTime(r, start))
		event.SetSummary(fmt.Sprintf("Ujian %s (%s)", r.Name, r.StudentID))
		event.SetStatus(ics.ObjectStatusConfirmed)
		event.SetTimeTransparency(ics.TransparencyOpaque)

		var desc []string
		if examiners := examinerList(r.Examiners); examiners != "" {
			desc = append(desc, "Penguji: "+examiners)
		}
		if sourceURL != "" {
			desc = append(desc, "Sumber: "+sourceURL)
			event.SetURL(sourceURL)
		}
		if len(desc) > 0 {
			event.SetDescription(strings.Join(desc, "\n"))
		}
		if r.Room != "" {
			event.SetLocation(r.Room)
		}

		n++
	}

	if n == 0 {
		return "", 0
	}
	return cal.Serialize(), n
}

// endTime combines the record's end clock with the start date
func endTime(r schedule.Record, start time.Time) time.Time {
	end := schedule.Record{Date: r.Date, StartTime: r.EndTime}.Start()
	if !end.After(start) {
		return start.Add(defaultLength)
	}
	return end
}

func examinerList(s string) string {
	var names []string
	for _, name := range strings.Split(s, "<br>") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func uidPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return -1
		}
	}, s)
}
