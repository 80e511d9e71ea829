// Package subscriber stores the email addresses that receive schedule updates.
//
// Subscribers live in a single SQLite table keyed by the normalized address, so a
// duplicate subscription is detected by the primary key rather than by a lookup.
// Every operation is one self-contained statement.
package subscriber
