package runtime

import "github.com/sirupsen/logrus"

const tableMaxLoad = 0.75

type tableEntry struct {
	key   *ObjString
	value Value
}

// Table is an open-addressed hash table with linear probing, used both
// for the VM's globals (name -> Value) and for the string-interning set.
// Keys are compared by identity, which interning makes equivalent to
// content equality for strings. Deletions leave a tombstone (a nil key
// paired with a true boolean value) so that probe chains broken by a
// delete still resolve correctly on later lookups.
type Table struct {
	count    int
	capacity int
	entries  []tableEntry

	log *logrus.Logger
}

func NewTable() *Table { return &Table{log: newDiscardLogger()} }

// WithLogger attaches a diagnostics logger, used to trace rehash events.
func (t *Table) WithLogger(log *logrus.Logger) *Table {
	if log != nil {
		t.log = log
	}
	return t
}

func (t *Table) Len() int { return t.count }

// findEntry returns the slot a key would occupy: either the entry already
// holding it, the first tombstone encountered on the probe chain (so
// insertion reuses tombstones), or the first true-empty slot.
func findEntry(entries []tableEntry, capacity int, key *ObjString) *tableEntry {
	idx := int(key.Hash) % capacity
	var tombstone *tableEntry
	for {
		e := &entries[idx]
		if e.key == nil {
			if e.value.IsNil() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			// tombstone
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		idx = (idx + 1) % capacity
	}
}

func (t *Table) adjustCapacity(capacity int) {
	if t.log != nil {
		t.log.WithFields(logrus.Fields{"from": t.capacity, "to": capacity}).Trace("table rehash")
	}
	entries := make([]tableEntry, capacity)
	for i := range entries {
		entries[i] = tableEntry{key: nil, value: NilVal()}
	}

	t.count = 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		dest := findEntry(entries, capacity, e.key)
		dest.key = e.key
		dest.value = e.value
		t.count++
	}

	t.entries = entries
	t.capacity = capacity
}

// Set installs value under key, growing the table first if the load
// factor would exceed 0.75. Returns true if key was not previously present.
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(t.capacity)*tableMaxLoad {
		capacity := growCapacity(t.capacity)
		t.adjustCapacity(capacity)
	}

	e := findEntry(t.entries, t.capacity, key)
	isNewKey := e.key == nil
	if isNewKey && e.value.IsNil() {
		t.count++
	}
	e.key = key
	e.value = value
	return isNewKey
}

func (t *Table) Get(key *ObjString) (Value, bool) {
	if t.count == 0 {
		return NilVal(), false
	}
	e := findEntry(t.entries, t.capacity, key)
	if e.key == nil {
		return NilVal(), false
	}
	return e.value, true
}

func (t *Table) Delete(key *ObjString) bool {
	if t.count == 0 {
		return false
	}
	e := findEntry(t.entries, t.capacity, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = BoolVal(true) // tombstone marker
	return true
}

// FindString looks up an interned string by hash, length, and bytes,
// without needing an *ObjString to compare identity against. It is used
// only by the interning path (copyString/takeString) before the
// candidate ObjString exists.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if t.count == 0 {
		return nil
	}
	idx := int(hash) % t.capacity
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if e.value.IsNil() {
				return nil
			}
		} else if e.key.Hash == hash && len(e.key.Chars) == len(chars) && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) % t.capacity
	}
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}
