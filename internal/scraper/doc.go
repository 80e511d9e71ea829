// Package scraper provides HTTP fetching and HTML parsing for the SILAT exam schedule.
//
// The scraper package fetches the public SILAT landing page and extracts the exam
// schedule table from the second tab pane (div#2). Each table row with at least eight
// cells becomes one schedule.Record. Examiner cells list several names separated by
// line breaks; those are preserved as "<br>"-joined text.
package scraper
