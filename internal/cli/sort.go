package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/silat-watch/internal/schedule"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByPage SortOrder = "page"
	SortByDate SortOrder = "date"
	SortByNIM  SortOrder = "nim"
	SortByName SortOrder = "name"
)

// sortRecords sorts records in place. SortByPage keeps the scraped order.
func sortRecords(records []schedule.Record, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByStart(records[i], records[j])
		})
	case SortByNIM:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].StudentID != records[j].StudentID {
				return records[i].StudentID < records[j].StudentID
			}
			// Same student, earliest session first
			return compareByStart(records[i], records[j])
		})
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			ni, nj := strings.ToLower(records[i].Name), strings.ToLower(records[j].Name)
			if ni != nj {
				return ni < nj
			}
			return compareByStart(records[i], records[j])
		})
	}
}

// compareByStart compares two records by when their session starts.
// Returns true if record i should come before record j
func compareByStart(i, j schedule.Record) bool {
	startI := i.Start()
	startJ := j.Start()

	// If both dates are valid, compare them
	if !startI.IsZero() && !startJ.IsZero() {
		return startI.Before(startJ)
	}

	// If only one date is valid, put the valid one first
	if !startI.IsZero() {
		return true
	}
	if !startJ.IsZero() {
		return false
	}

	// If neither has a valid date, fall back to the room
	return i.Room < j.Room
}

func validSortOrder(s SortOrder) bool {
	switch s {
	case SortByPage, SortByDate, SortByNIM, SortByName:
		return true
	}
	return false
}
