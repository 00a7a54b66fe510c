package db

import (
	"database/sql"
	"regexp"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteDriverName is a go-sqlite3 driver with the Postgres functions the
// search queries use.
const SQLiteDriverName = "sqlite3_printerdocs"

var (
	registerOnce sync.Once
	patterns     sync.Map // pattern string -> *regexp.Regexp
)

// OpenSQLite returns a gorm dialector for dsn backed by SQLiteDriverName.
func OpenSQLite(dsn string) gorm.Dialector {
	registerOnce.Do(func() {
		sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp_replace", regexpReplace, true)
			},
		})
	})
	return &sqlite.Dialector{DriverName: SQLiteDriverName, DSN: dsn}
}

// regexpReplace mirrors Postgres regexp_replace(source, pattern, replacement, flags)
// for the "g" flag and the default replace-first behaviour.
func regexpReplace(src, pattern, repl, flags string) (string, error) {
	re, err := compile(pattern)
	if err != nil {
		return "", err
	}
	if strings.Contains(flags, "g") {
		return re.ReplaceAllString(src, repl), nil
	}
	loc := re.FindStringSubmatchIndex(src)
	if loc == nil {
		return src, nil
	}
	var out []byte
	out = append(out, src[:loc[0]]...)
	out = re.ExpandString(out, repl, src, loc)
	out = append(out, src[loc[1]:]...)
	return string(out), nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}
