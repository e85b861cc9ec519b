package store

import (
	"strconv"
	"strings"
)

// dialect isolates the SQL differences between backends so the store
// implementation itself is written once, with `?` placeholders.
type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// rebind rewrites `?` placeholders into the backend's native form.
// SQLite takes them as-is; Postgres wants $1..$n.
func (d dialect) rebind(query string) string {
	if d == dialectSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
