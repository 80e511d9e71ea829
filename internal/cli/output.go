package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/silat-watch/internal/schedule"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt  time.Time         `json:"checked_at"`
	Source     string            `json:"source"`
	Records    int               `json:"records"`
	NewEntries []schedule.Record `json:"new_entries"`
	EntryCount int               `json:"entry_count"`
	Bootstrap  bool              `json:"bootstrap,omitempty"`
	Aborted    bool              `json:"aborted,omitempty"`
	Error      string            `json:"error,omitempty"`
	Notified   int               `json:"notified,omitempty"`
	Failed     int               `json:"failed,omitempty"`
	Saved      bool              `json:"saved"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	if result.NewEntries == nil {
		result.NewEntries = []schedule.Record{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.Aborted {
		fmt.Fprintf(w, "Check aborted: %s\n", result.Error)
		return nil
	}

	if result.EntryCount == 0 {
		fmt.Fprintln(w, "No new schedule entries found.")
		return nil
	}

	if result.Bootstrap {
		fmt.Fprintln(w, "No previous snapshot: every entry counts as new.")
	}

	for _, r := range result.NewEntries {
		fmt.Fprintf(w, "NEW: %s %s-%s  %s (%s)  %s\n", r.Date, r.StartTime, r.EndTime, r.Name, r.StudentID, r.Room)
		if verbose {
			for _, examiner := range strings.Split(r.Examiners, "<br>") {
				if examiner = strings.TrimSpace(examiner); examiner != "" {
					fmt.Fprintf(w, "     Penguji: %s\n", examiner)
				}
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d new of %d scheduled\n", result.EntryCount, result.Records)

	if result.Notified > 0 || result.Failed > 0 {
		fmt.Fprintf(w, "Notified %d subscriber(s), %d failed\n", result.Notified, result.Failed)
	}

	return nil
}
