package store

import "strings"

// rebind rewrites a query written with Postgres-style $1, $2, ... parameters
// into SQLite's positional ? placeholders when driver is sqlite3, leaving
// Postgres queries untouched. Queries throughout this package are written
// once in $n form and rebound per-driver at call time.
func rebind(driver, query string) string {
	if driver != "sqlite3" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			i++
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
