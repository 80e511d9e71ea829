// Package cli implements the command-line interface for silat-watch.
//
// The cli package provides the Cobra-based commands: serve runs the watcher
// and the subscription form, check runs a single cycle and reports the new
// schedule entries (text/JSON, optionally sorted), and the subscribers and
// token commands manage the subscriber list and unsubscribe links by hand.
// It loads configuration, sets up logging and wires the scraper, storage,
// subscriber, token, notifier, watcher and web packages together.
package cli
