//go:build integration

/*
Package testutil provides a Postgres testcontainer for store integration
tests.

# Overview

Unit tests against internal/store use an in-memory sqlite3 database and run
by default. This package is for tests that need to run against a real
Postgres instance (to exercise the lib/pq-specific schema path and $N
placeholders); no test in this module calls it. It is gated behind the
`integration` build tag and the TREEWATCH_PG_TESTS=1 environment variable
so CI and local `go test ./...` runs stay fast by default.

# Usage

	func TestSomethingAgainstPostgres(t *testing.T) {
		db := testutil.StartPostgres(t)
		alerts := store.NewSQLAlertStore(db, "postgres")
		// ...
	}

Run with:

	TREEWATCH_PG_TESTS=1 go test -tags=integration ./...
*/
package testutil
