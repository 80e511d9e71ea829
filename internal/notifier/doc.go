// Package notifier delivers new schedule entries to subscribers by email.
//
// One message is composed per subscriber, each carrying its own signed
// unsubscribe link, a plain-text body and an HTML alternative. Messages are sent
// sequentially over a single SMTP session per notification. A failure for one
// recipient is recorded in the Report and does not stop the fan-out; a failure
// to open the session loses the whole notification.
package notifier
