//go:build !cgo_sqlite

package main

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// initDB opens the pure Go driver. It spells pragmas as _pragma=name(value),
// so the mattn-style query parameters used in the config are translated.
func initDB(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite", translatePragmas(dataSource))
}

func translatePragmas(dataSource string) string {
	path, query, found := strings.Cut(dataSource, "?")
	if !found {
		return dataSource
	}
	params := strings.Split(query, "&")
	for i, p := range params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || !strings.HasPrefix(key, "_") || key == "_pragma" {
			continue
		}
		params[i] = "_pragma=" + strings.TrimPrefix(key, "_") + "(" + value + ")"
	}
	return path + "?" + strings.Join(params, "&")
}
