package sqldb

import (
	"database/sql"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// sqliteDriverName is mattn/go-sqlite3 with a REGEXP function installed on
// every connection.
const sqliteDriverName = "sqlite3_godal"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", sqliteRegexp, true)
		},
	})
}

var patterns sync.Map // string -> *regexp.Regexp

// sqliteRegexp backs "value REGEXP pattern", which SQLite calls as
// regexp(pattern, value).
func sqliteRegexp(pattern, value string) (bool, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp).MatchString(value), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	patterns.Store(pattern, re)
	return re.MatchString(value), nil
}
