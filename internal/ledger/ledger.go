// Package ledger defines the per-day purchase records and their JSON blob
// encoding. Field names match the userscript's localStorage blob, so a
// ledger exported from the browser loads here unchanged.
package ledger

import (
	"encoding/json"
	"regexp"
	"sort"
)

// DailyLimit is the maximum number of igloo purchases counted per NST day.
const DailyLimit = 10

// UnknownKey is the synthetic item key absorbing purchases whose identity
// is unrecoverable (cap fast-fill, unidentifiable item markup).
const UnknownKey = "unknown"

// UnknownName is the display name for the unknown bucket.
const UnknownName = "Unknown Item"

// ItemRecord tracks one item's purchases within a single day.
type ItemRecord struct {
	Name       string   `json:"name"`
	Count      int      `json:"count"`
	Timestamps []string `json:"timestamps"`
}

// DayRecord holds a day's total and per-item breakdown. Total equals the
// sum of item counts except transiently inside a cap fill, which bumps
// Total first and backfills the unknown bucket before returning.
type DayRecord struct {
	Total int                    `json:"total"`
	Items map[string]*ItemRecord `json:"items"`
}

// NewDayRecord returns an empty day record.
func NewDayRecord() *DayRecord {
	return &DayRecord{Items: make(map[string]*ItemRecord)}
}

// Item returns the record for key, creating it with the given name if
// absent. An empty name falls back to UnknownName.
func (d *DayRecord) Item(key, name string) *ItemRecord {
	if d.Items == nil {
		d.Items = make(map[string]*ItemRecord)
	}
	rec, ok := d.Items[key]
	if !ok {
		if name == "" {
			name = UnknownName
		}
		rec = &ItemRecord{Name: name}
		d.Items[key] = rec
	}
	return rec
}

// ItemSum returns the sum of all item counts for the day.
func (d *DayRecord) ItemSum() int {
	sum := 0
	for _, rec := range d.Items {
		sum += rec.Count
	}
	return sum
}

// SortedItems returns the day's items ordered for display: unknown bucket
// last, otherwise by count descending.
func (d *DayRecord) SortedItems() []*ItemRecord {
	items := make([]*ItemRecord, 0, len(d.Items))
	for _, rec := range d.Items {
		items = append(items, rec)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Name == UnknownName && items[j].Name != UnknownName {
			return false
		}
		if items[j].Name == UnknownName && items[i].Name != UnknownName {
			return true
		}
		return items[i].Count > items[j].Count
	})
	return items
}

// Ledger maps NST day keys (YYYY-MM-DD) to day records. Entries are
// created lazily and never deleted; lifetime totals depend on retention.
type Ledger map[string]*DayRecord

var dayKeyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Day returns the record for key, creating it if absent.
func (l Ledger) Day(key string) *DayRecord {
	rec, ok := l[key]
	if !ok {
		rec = NewDayRecord()
		l[key] = rec
	}
	return rec
}

// Days returns all well-formed day keys, newest first.
func (l Ledger) Days() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		if dayKeyRe.MatchString(k) {
			keys = append(keys, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// LifetimeTotal sums every day's total.
func (l Ledger) LifetimeTotal() int {
	total := 0
	for _, day := range l {
		if day != nil {
			total += day.Total
		}
	}
	return total
}

// Clone returns a deep copy, used to hand read-only snapshots to
// presentation code without exposing the writer's maps.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for key, day := range l {
		if day == nil {
			continue
		}
		cp := &DayRecord{Total: day.Total, Items: make(map[string]*ItemRecord, len(day.Items))}
		for ik, rec := range day.Items {
			ts := make([]string, len(rec.Timestamps))
			copy(ts, rec.Timestamps)
			cp.Items[ik] = &ItemRecord{Name: rec.Name, Count: rec.Count, Timestamps: ts}
		}
		out[key] = cp
	}
	return out
}

// Marshal encodes the ledger as the storage blob.
func Marshal(l Ledger) (string, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Unmarshal decodes a storage blob. Empty or malformed input yields an
// empty ledger; persistence corruption degrades to a fresh start rather
// than an error the caller would have to swallow anyway.
func Unmarshal(blob string) Ledger {
	l := make(Ledger)
	if blob == "" {
		return l
	}
	if err := json.Unmarshal([]byte(blob), &l); err != nil {
		return make(Ledger)
	}
	for key, day := range l {
		if day == nil {
			l[key] = NewDayRecord()
			continue
		}
		if day.Items == nil {
			day.Items = make(map[string]*ItemRecord)
		}
	}
	return l
}
