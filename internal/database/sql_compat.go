package database

import (
	"fmt"
	"strings"
)

// IsMySQL returns true for the MySQL/MariaDB dialect.
func IsMySQL(driver string) bool {
	d, err := NormalizeDriver(driver)
	return err == nil && d == DriverMySQL
}

// BuildInsertQuery builds an INSERT with ? placeholders; callers Rebind for the driver.
func BuildInsertQuery(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))
}

// BuildUpsertQuery builds an insert that overwrites updateColumns when the
// conflict key already exists.
// PostgreSQL/SQLite: ON CONFLICT (...) DO UPDATE SET col = excluded.col
// MySQL: ON DUPLICATE KEY UPDATE col = VALUES(col)
func BuildUpsertQuery(driver, table string, columns, conflict, updateColumns []string) string {
	query := BuildInsertQuery(table, columns)
	sets := make([]string, len(updateColumns))
	if IsMySQL(driver) {
		for i, col := range updateColumns {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
		}
		return query + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for i, col := range updateColumns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", query, strings.Join(conflict, ", "), strings.Join(sets, ", "))
}

// BuildInsertIgnoreQuery builds an insert that is a no-op when the conflict key exists.
func BuildInsertIgnoreQuery(driver, table string, columns, conflict []string) string {
	query := BuildInsertQuery(table, columns)
	if IsMySQL(driver) {
		return strings.Replace(query, "INSERT INTO", "INSERT IGNORE INTO", 1)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", query, strings.Join(conflict, ", "))
}
