// Package store persists the purchase ledger, notification markers, and
// preferences behind a small key-value contract. Key names match the
// userscript's localStorage keys.
package store

import "context"

// Storage key names carried over from the browser version.
const (
	LedgerKey        = "iglooPurchaseLog"
	NotifySentPrefix = "iglooNotifySent-" // + day key
	NotifyEnabledKey = "iglooNotifyEnabled"
	MinimizedKey     = "iglooMinimized"
)

// KV is the persistence contract: string keys to string values. Absent
// keys are not errors. Concurrent modification of the underlying medium
// by another process is undefined; all writers in this process go through
// the tracker.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes the value for key. The write is atomic from a reader's
	// perspective: a Get never observes a partial value.
	Set(ctx context.Context, key, value string) error
	Close() error
}

// NotifyMarkerKey returns the per-day key recording that the pre-reset
// warning already fired for dayKey.
func NotifyMarkerKey(dayKey string) string {
	return NotifySentPrefix + dayKey
}

// GetBool reads a "1"/"0" flag, returning def when absent or unreadable.
func GetBool(ctx context.Context, kv KV, key string, def bool) bool {
	val, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	return val == "1"
}

// SetBool writes a "1"/"0" flag.
func SetBool(ctx context.Context, kv KV, key string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return kv.Set(ctx, key, val)
}
