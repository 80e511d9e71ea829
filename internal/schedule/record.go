package schedule

import "fmt"

// Record represents one scheduled exam session as listed on the SILAT page.
// All fields are kept in their display form.
type Record struct {
	Date      string `json:"tanggal"`
	Name      string `json:"nama"`
	StudentID string `json:"nim"`
	Examiners string `json:"penguji"`
	StartTime string `json:"jam_mulai"`
	EndTime   string `json:"jam_selesai"`
	Room      string `json:"ruang"`
}

// Key identifies a scheduled session. Two records with equal keys are the same
// session even if their other fields differ.
type Key struct {
	StudentID string
	Date      string
	StartTime string
}

// Key returns the identity key of the record
func (r Record) Key() Key {
	return Key{
		StudentID: r.StudentID,
		Date:      r.Date,
		StartTime: r.StartTime,
	}
}

// String renders the key as "studentID-date-startTime".
// Only for display; comparisons use the struct itself.
func (k Key) String() string {
	return fmt.Sprintf("%s-%s-%s", k.StudentID, k.Date, k.StartTime)
}

// Snapshot is the full ordered set of records scraped at one point in time
type Snapshot []Record
