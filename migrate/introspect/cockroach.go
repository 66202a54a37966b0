package introspect

import "github.com/satishbabariya/godal/runtime/driver"

// NewCockroach returns an introspector for CockroachDB. Its pg_catalog is
// compatible with the PostgreSQL queries; keys are generated by
// unique_rowid() instead of sequences.
func NewCockroach(q driver.Queryer) *Postgres {
	return &Postgres{q: q, autoDefault: []string{"nextval(", "unique_rowid()"}}
}
