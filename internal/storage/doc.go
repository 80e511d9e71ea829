// Package storage provides JSON-based persistence for schedule snapshots.
//
// The storage package manages the local snapshot file that holds the most recently
// notified set of exam records (data_terakhir.json). The file is always replaced
// wholesale: it is written to a temporary file in the same directory and renamed
// into place, so readers see either the old or the new snapshot, never a mix.
package storage
