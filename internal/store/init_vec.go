//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3 driver.
	// vec.Auto() registers it as an auto-loadable extension, so deployments
	// built with the sqlite_vec tag can keep their vec0 virtual tables
	// readable next to the JSON-embedding tables this adapter scans.
	vec.Auto()
}
