// Package names interns strings to small integer IDs and hands out the
// disjoint integer ranges the rest of the system uses as error codes.
package names

import "fmt"

// ID is a stable, non-negative index assigned the first time a string is
// interned. IDs are insertion-ordered and never reused.
type ID int

// Table maps name strings to IDs and back, and issues unique error code
// ranges on request.
type Table struct {
	strs    []string
	index   map[string]ID
	errBase int
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		index: make(map[string]ID),
	}
}

// Intern returns the ID for s, adding it to the table if it is not already
// present.
func (t *Table) Intern(s string) ID {
	if id, ok := t.index[s]; ok {
		return id
	}
	id := ID(len(t.strs))
	t.strs = append(t.strs, s)
	t.index[s] = id
	return id
}

// InternAll interns every string in ss, in order, and returns their IDs.
func (t *Table) InternAll(ss []string) []ID {
	ids := make([]ID, len(ss))
	for i, s := range ss {
		ids[i] = t.Intern(s)
	}
	return ids
}

// Query returns the ID for s and true if s has been interned, else
// (0, false).
func (t *Table) Query(s string) (ID, bool) {
	id, ok := t.index[s]
	return id, ok
}

// Get returns the string for id. It panics with OutOfRange for a negative
// id and returns ("", false) for an id past the end of the table: a
// negative index is a caller bug, an index past the end is merely absent.
func (t *Table) Get(id ID) (string, bool) {
	if id < 0 {
		panic(fmt.Sprintf("names: OutOfRange: negative id %d", id))
	}
	if int(id) >= len(t.strs) {
		return "", false
	}
	return t.strs[id], true
}

// ReserveErrorCodes hands out n contiguous integer codes never returned by
// a previous or future call on the same Table. Ranges from different
// Table instances are independent (each starts at 0); a single Table is
// shared by one compilation. Each consumer calls this once at
// construction and remembers its own code constants as an offset from
// base.
func (t *Table) ReserveErrorCodes(n int) (base int, end int) {
	base = t.errBase
	t.errBase += n
	return base, t.errBase
}
