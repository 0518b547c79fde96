package feed

// View is an ordered, deduplicated, optionally bounded list of records.
// It is a pure reducer: no I/O, no locking.
//
// Records are ordered newest first; records with equal timestamps keep
// most recent arrival first. When the bound is exceeded the oldest records
// are evicted.
type View[T Record] struct {
	capacity int // 0 means unbounded
	records  []T
}

// NewView returns an empty view holding at most capacity records
// (0 for no bound).
func NewView[T Record](capacity int) *View[T] {
	return &View[T]{capacity: capacity}
}

// Reset replaces the contents with recs, which are sorted, deduplicated
// and bounded the same way merged records are. Earlier entries in recs
// count as more recent arrivals.
func (v *View[T]) Reset(recs []T) {
	v.records = v.records[:0]
	for i := len(recs) - 1; i >= 0; i-- {
		v.merge(recs[i])
	}
	v.bound()
}

// Merge applies recs one at a time and reports whether the view changed.
//
// A record whose key is already present replaces the existing one only if
// it is complete or the existing one is not.
//
// A record older than everything in a full view is evicted at once and
// does not count as a change.
func (v *View[T]) Merge(recs ...T) bool {
	var merged []string
	for _, rec := range recs {
		if v.merge(rec) {
			merged = append(merged, rec.Key())
		}
	}
	v.bound()
	for _, key := range merged {
		if v.index(key) >= 0 {
			return true
		}
	}
	return false
}

func (v *View[T]) merge(rec T) bool {
	if i := v.index(rec.Key()); i >= 0 {
		if !rec.Complete() && v.records[i].Complete() {
			return false
		}
		v.removeAt(i)
	}
	v.insert(rec)
	return true
}

// insert places rec before the first record that is not newer than it
func (v *View[T]) insert(rec T) {
	ts := rec.Timestamp()
	pos := len(v.records)
	for i, r := range v.records {
		if !r.Timestamp().After(ts) {
			pos = i
			break
		}
	}

	var zero T
	v.records = append(v.records, zero)
	copy(v.records[pos+1:], v.records[pos:])
	v.records[pos] = rec
}

// bound drops the oldest records beyond capacity
func (v *View[T]) bound() {
	if v.capacity <= 0 || len(v.records) <= v.capacity {
		return
	}
	var zero T
	for i := v.capacity; i < len(v.records); i++ {
		v.records[i] = zero
	}
	v.records = v.records[:v.capacity]
}

// Remove drops the record with key, reporting whether it was present
func (v *View[T]) Remove(key string) bool {
	i := v.index(key)
	if i < 0 {
		return false
	}
	v.removeAt(i)
	return true
}

func (v *View[T]) removeAt(i int) {
	var zero T
	copy(v.records[i:], v.records[i+1:])
	v.records[len(v.records)-1] = zero
	v.records = v.records[:len(v.records)-1]
}

func (v *View[T]) index(key string) int {
	for i, r := range v.records {
		if r.Key() == key {
			return i
		}
	}
	return -1
}

// Get returns the record with key
func (v *View[T]) Get(key string) (T, bool) {
	if i := v.index(key); i >= 0 {
		return v.records[i], true
	}
	var zero T
	return zero, false
}

// Oldest returns the last record of the view
func (v *View[T]) Oldest() (T, bool) {
	if len(v.records) == 0 {
		var zero T
		return zero, false
	}
	return v.records[len(v.records)-1], true
}

// Records returns a copy of the records, newest first
func (v *View[T]) Records() []T {
	out := make([]T, len(v.records))
	copy(out, v.records)
	return out
}

func (v *View[T]) Len() int { return len(v.records) }
