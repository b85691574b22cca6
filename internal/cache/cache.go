// Package cache provides the named-partition cache used by the translation
// service. Entries have no TTL; staleness is prevented solely by explicit
// invalidation after every mutating operation.
package cache

// Partition names. "translations" holds single entities keyed by id,
// "translationExport" holds per-locale export payloads keyed by locale.
const (
	PartitionTranslations      = "translations"
	PartitionTranslationExport = "translationExport"
)

// Cache is a string-valued cache split into named partitions. Callers
// serialize values (JSON) before storing so that all implementations,
// in-process or remote, behave identically.
type Cache interface {
	// Get retrieves a cached value. Returns empty string and false on miss.
	Get(partition, key string) (string, bool)

	// Set stores a value under the partition and key.
	Set(partition, key, value string) error

	// Delete removes a single entry. Deleting a missing entry is a no-op.
	Delete(partition, key string) error

	// Clear removes every entry in the partition.
	Clear(partition string) error
}
