// Package schedule provides types and functions for SILAT exam schedule records.
//
// The schedule package handles record representation, identification, and change
// detection through snapshot-based diffing. Each record is identified by a composite
// Key built from the student ID, the exam date, and the start time, which stays the
// same across scrapes even when other columns (room, examiners) change.
package schedule
