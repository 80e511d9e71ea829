// Package watcher runs the periodic check cycle: scrape the schedule, diff it
// against the stored snapshot, notify subscribers of new entries, and persist
// the new snapshot.
//
// A Watcher is an explicit service object. Start schedules cycles on a fixed
// interval with robfig/cron; cycles never overlap. RunOnce executes a single
// cycle synchronously and is what the CLI's check command uses.
package watcher
