package schedule

// Keys returns the set of identity keys present in records
func Keys(records []Record) map[Key]struct{} {
	keys := make(map[Key]struct{}, len(records))
	for _, r := range records {
		keys[r.Key()] = struct{}{}
	}
	return keys
}

// NewEntries returns every record of current whose key does not appear in
// previous, in the order they appear in current.
//
// An empty previous means every current record is new. Duplicate keys within
// current are not collapsed; each occurrence is returned.
func NewEntries(current, previous []Record) []Record {
	seen := Keys(previous)

	entries := make([]Record, 0)
	for _, r := range current {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		entries = append(entries, r)
	}

	return entries
}

// IsBootstrap reports whether previous holds no records, in which case the
// next diff treats the whole current snapshot as new.
func IsBootstrap(previous []Record) bool {
	return len(previous) == 0
}
