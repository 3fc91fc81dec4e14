// Package cache holds the in-memory train data store with per-entry TTL and
// its on-disk snapshot. An entry never disappears on expiry — expiry only
// flips validity — so readers always have a last-known payload to fall back
// to. The snapshot file lets the process restart with stale-but-present data
// instead of an empty cache.
package cache
