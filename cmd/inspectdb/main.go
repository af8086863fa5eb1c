// inspectdb is a developer tool for peeking inside fedquery's SQLite
// stores without going through the engine: lists tables, row counts, and
// samples recent rows. Uses the pure-Go driver so it builds without cgo.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "modernc.org/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: inspectdb <path.db> [limit]")
		os.Exit(1)
	}
	dbPath := os.Args[1]
	limit := 10
	if len(os.Args) > 2 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			limit = n
		}
	}
	if err := inspect(dbPath, limit); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func inspect(dbPath string, limit int) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	defer db.Close()

	tables, err := listTables(db)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d table(s)\n", dbPath, len(tables))

	for _, table := range tables {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			fmt.Printf("\n== %s (count failed: %v)\n", table, err)
			continue
		}
		fmt.Printf("\n== %s: %d row(s)\n", table, count)
		if count > 0 {
			sampleRows(db, table, limit)
		}
	}
	return nil
}

func listTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func sampleRows(db *sql.DB, table string, limit int) {
	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit))
	if err != nil {
		fmt.Printf("  sample failed: %v\n", err)
		return
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		fmt.Printf("  columns failed: %v\n", err)
		return
	}
	fmt.Printf("  columns: %v\n", cols)

	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			fmt.Printf("  scan failed: %v\n", err)
			return
		}
		n++
		fmt.Printf("  [%d]", n)
		for i, col := range cols {
			fmt.Printf(" %s=%s", col, render(values[i]))
		}
		fmt.Println()
	}
}

func render(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		s := string(t)
		if len(s) > 40 {
			return s[:37] + "..."
		}
		return s
	case string:
		if len(t) > 40 {
			return t[:37] + "..."
		}
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
