package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Backup is the on-disk JSON snapshot of all data tables.
type Backup struct {
	ExportedAt string                      `json:"exportedAt"`
	Tables     map[string][]map[string]any `json:"tables"`
}

// ExportJSON writes a full snapshot of every data table.
func (d *DB) ExportJSON(w io.Writer) error {
	backup := Backup{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Tables:     map[string][]map[string]any{},
	}
	for _, table := range DataTables {
		rows, err := d.TableRows(table)
		if err != nil {
			return fmt.Errorf("export %s: %w", table, err)
		}
		backup.Tables[table] = rows
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(backup)
}

var identPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// RestoreJSON replaces the content of every table present in the snapshot.
// The whole restore runs in one transaction so a malformed snapshot leaves
// the database untouched.
func (d *DB) RestoreJSON(r io.Reader) error {
	var backup Backup
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("decode backup: %w", err)
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range DataTables {
		rows, ok := backup.Tables[table]
		if !ok {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		for _, row := range rows {
			cols := make([]string, 0, len(row))
			for col := range row {
				if !identPattern.MatchString(col) {
					return fmt.Errorf("restore %s: bad column name %q", table, col)
				}
				cols = append(cols, col)
			}
			sort.Strings(cols)
			values := make([]any, 0, len(cols))
			for _, col := range cols {
				values = append(values, row[col])
			}
			query := `INSERT INTO ` + table + ` (` + strings.Join(cols, ", ") + `) VALUES (` + placeholders(len(cols)) + `)`
			if _, err := tx.Exec(query, values...); err != nil {
				return fmt.Errorf("restore %s: %w", table, err)
			}
		}
	}

	return tx.Commit()
}
