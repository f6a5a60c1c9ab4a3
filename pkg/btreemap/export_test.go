package btreemap

// SetCompactMinDead lowers the compaction threshold so tests can trigger it
// with a handful of records.
func SetCompactMinDead[K, V any](m *BTreeMap[K, V], n uint64) {
	m.compactMinDead = n
}

// DataRegion returns the current [start, end) of the record region.
func DataRegion[K, V any](m *BTreeMap[K, V]) (uint64, uint64) {
	return m.dataStart, m.dataEnd
}

// RecordLen exposes the record length check.
func RecordLen(what string, n int) uint32 {
	return recordLen(what, n)
}
