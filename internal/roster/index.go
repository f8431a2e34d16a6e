package roster

// Entry is one enrolled student: canonical id plus the display name the
// roster declares for it. The roster is the source of truth for naming;
// names embedded in activity rows never override it.
type Entry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Index is the id -> display name lookup built from the roster table.
// Construction order is preserved: it is the tie-break order for
// aggregation output and the reference order for roster-order sorting.
type Index struct {
	entries []Entry
	byID    map[string]int
}

// Build constructs an Index from decoded roster rows. Rows missing an id
// or a name are skipped silently; stray blank lines are normal in roster
// sheets. A duplicate id keeps the first occurrence.
func Build(rows []RawRow) *Index {
	idx := &Index{byID: make(map[string]int)}
	for _, row := range rows {
		id, ok := FirstNonEmpty(row, IDFields)
		if !ok {
			continue
		}
		name, ok := FirstNonEmpty(row, NameFields)
		if !ok {
			continue
		}
		if _, dup := idx.byID[id]; dup {
			continue
		}
		idx.byID[id] = len(idx.entries)
		idx.entries = append(idx.entries, Entry{ID: id, DisplayName: name})
	}
	return idx
}

// Size returns the enrolled count.
func (x *Index) Size() int {
	return len(x.entries)
}

// Lookup returns the display name for an id.
func (x *Index) Lookup(id string) (string, bool) {
	i, ok := x.byID[id]
	if !ok {
		return "", false
	}
	return x.entries[i].DisplayName, true
}

// Position returns the roster order of an id, for stable tie-breaking.
func (x *Index) Position(id string) (int, bool) {
	i, ok := x.byID[id]
	return i, ok
}

// Entries returns the roster in construction order. The returned slice is
// shared; callers must not mutate it.
func (x *Index) Entries() []Entry {
	return x.entries
}
