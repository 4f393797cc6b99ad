package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"fleettrack/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := db.seed(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS projects (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  code TEXT NOT NULL DEFAULT '',
  startDate TEXT NOT NULL DEFAULT '',
  endDate TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS vehicles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  plateNumber TEXT NOT NULL UNIQUE,
  model TEXT NOT NULL DEFAULT '',
  department TEXT NOT NULL DEFAULT '',
  currentHours REAL NOT NULL DEFAULT 0,
  currentKm REAL NOT NULL DEFAULT 0,
  nextMaintenanceHours REAL NOT NULL DEFAULT 0,
  maintenanceInterval REAL NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT '',
  projectId INTEGER REFERENCES projects(id),
  importedFrom TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_vehicles_plate ON vehicles(plateNumber);
CREATE INDEX IF NOT EXISTS idx_vehicles_department ON vehicles(department);

CREATE TABLE IF NOT EXISTS maintenanceLogs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  vehicleId INTEGER NOT NULL REFERENCES vehicles(id),
  date TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT '',
  hours REAL NOT NULL DEFAULT 0,
  km REAL NOT NULL DEFAULT 0,
  cost REAL NOT NULL DEFAULT 0,
  description TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  raw TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_maintenance_vehicle_date ON maintenanceLogs(vehicleId, date);

CREATE TABLE IF NOT EXISTS driverLogs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  date TEXT NOT NULL,
  assetCode TEXT NOT NULL,
  odoHours REAL NOT NULL DEFAULT 0,
  odoKm REAL NOT NULL DEFAULT 0,
  description TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_driverlogs_asset ON driverLogs(assetCode, date);

CREATE TABLE IF NOT EXISTS supplies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  assetCode TEXT NOT NULL DEFAULT 'CHUNG',
  groupName TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  code TEXT NOT NULL DEFAULT '',
  donaldsonCode TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT '',
  quantity REAL NOT NULL DEFAULT 1,
  maintenanceInterval REAL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_supplies_asset ON supplies(assetCode);

CREATE TABLE IF NOT EXISTS errorCodes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  code TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  fixSteps TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// seed loads the starter error-code reference data on first open.
func (d *DB) seed() error {
	var count int
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM errorCodes`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	seedCodes := []internal.ErrorCodeRecord{
		{Code: "E001", Description: "Cảm biến nhiệt độ nước làm mát quá cao. Kiểm tra két nước và quạt làm mát.", FixSteps: "1. Kiểm tra mức nước làm mát.\n2. Kiểm tra quạt gió.\n3. Thay thế cảm biến nếu cần."},
		{Code: "P0300", Description: "Phát hiện bỏ máy ngẫu nhiên. Kiểm tra bugi, mobin đánh lửa.", FixSteps: "1. Tháo và kiểm tra bugi.\n2. Kiểm tra áp suất nén."},
		{Code: "C1201", Description: "Lỗi hệ thống kiểm soát phanh. Kiểm tra cảm biến ABS.", FixSteps: "1. Kiểm tra dây dẫn cảm biến ABS.\n2. Vệ sinh mắt đọc."},
	}
	_, _, err := d.UpsertErrorCodes(seedCodes)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// UpsertVehicles commits one chunk in one transaction: a single bulk lookup
// by plate number, then merge-update or insert per record. Merge semantics
// live in internal.MergeVehicle; creation timestamps survive updates.
func (d *DB) UpsertVehicles(chunk []internal.VehicleRecord) (int, int, error) {
	if len(chunk) == 0 {
		return 0, 0, nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	plates := make([]any, 0, len(chunk))
	for _, rec := range chunk {
		plates = append(plates, rec.PlateNumber)
	}
	rows, err := tx.Query(`
SELECT id, plateNumber, model, department, currentHours, currentKm,
       nextMaintenanceHours, maintenanceInterval, status, projectId, importedFrom
FROM vehicles WHERE plateNumber IN (`+placeholders(len(plates))+`)`, plates...)
	if err != nil {
		return 0, 0, err
	}
	existing := map[string]internal.StoredVehicle{}
	for rows.Next() {
		var v internal.StoredVehicle
		var projectID sql.NullInt64
		if err := rows.Scan(&v.ID, &v.PlateNumber, &v.Model, &v.Department, &v.CurrentHours, &v.CurrentKm,
			&v.NextMaintenanceHours, &v.MaintenanceInterval, &v.Status, &projectID, &v.ImportedFrom); err != nil {
			_ = rows.Close()
			return 0, 0, err
		}
		if projectID.Valid {
			v.ProjectID = &projectID.Int64
		}
		existing[v.PlateNumber] = v
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	update, err := tx.Prepare(`
UPDATE vehicles SET model=?, department=?, currentHours=?, currentKm=?, nextMaintenanceHours=?,
       maintenanceInterval=?, status=?, projectId=?, importedFrom=?, updatedAt=CURRENT_TIMESTAMP
WHERE id=?`)
	if err != nil {
		return 0, 0, err
	}
	defer update.Close()

	insert, err := tx.Prepare(`
INSERT INTO vehicles (plateNumber, model, department, currentHours, currentKm, nextMaintenanceHours,
       maintenanceInterval, status, projectId, importedFrom)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, err
	}
	defer insert.Close()

	inserted, updated := 0, 0
	for _, rec := range chunk {
		if old, ok := existing[rec.PlateNumber]; ok {
			merged := internal.MergeVehicle(old.VehicleRecord, rec)
			if _, err := update.Exec(merged.Model, merged.Department, merged.CurrentHours, merged.CurrentKm,
				merged.NextMaintenanceHours, merged.MaintenanceInterval, merged.Status,
				nullableID(merged.ProjectID), merged.ImportedFrom, old.ID); err != nil {
				return 0, 0, err
			}
			old.VehicleRecord = merged
			existing[rec.PlateNumber] = old
			updated++
			continue
		}

		if rec.MaintenanceInterval == 0 {
			rec.MaintenanceInterval = internal.DefaultMaintenanceInterval
		}
		res, err := insert.Exec(rec.PlateNumber, rec.Model, rec.Department, rec.CurrentHours, rec.CurrentKm,
			rec.NextMaintenanceHours, rec.MaintenanceInterval, rec.Status, nullableID(rec.ProjectID), rec.ImportedFrom)
		if err != nil {
			return 0, 0, err
		}
		id, _ := res.LastInsertId()
		// A duplicate plate later in the same chunk must merge, not collide.
		existing[rec.PlateNumber] = internal.StoredVehicle{ID: id, VehicleRecord: rec}
		inserted++
	}

	return inserted, updated, tx.Commit()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// UpsertErrorCodes mirrors UpsertVehicles with code as the natural key.
func (d *DB) UpsertErrorCodes(chunk []internal.ErrorCodeRecord) (int, int, error) {
	if len(chunk) == 0 {
		return 0, 0, nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	codes := make([]any, 0, len(chunk))
	for _, rec := range chunk {
		codes = append(codes, rec.Code)
	}
	rows, err := tx.Query(`SELECT id, code, description, fixSteps FROM errorCodes WHERE code IN (`+placeholders(len(codes))+`)`, codes...)
	if err != nil {
		return 0, 0, err
	}
	existing := map[string]internal.StoredErrorCode{}
	for rows.Next() {
		var e internal.StoredErrorCode
		if err := rows.Scan(&e.ID, &e.Code, &e.Description, &e.FixSteps); err != nil {
			_ = rows.Close()
			return 0, 0, err
		}
		existing[e.Code] = e
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	update, err := tx.Prepare(`UPDATE errorCodes SET description=?, fixSteps=?, updatedAt=CURRENT_TIMESTAMP WHERE id=?`)
	if err != nil {
		return 0, 0, err
	}
	defer update.Close()
	insert, err := tx.Prepare(`INSERT INTO errorCodes (code, description, fixSteps) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, 0, err
	}
	defer insert.Close()

	inserted, updated := 0, 0
	for _, rec := range chunk {
		if old, ok := existing[rec.Code]; ok {
			merged := internal.MergeErrorCode(old.ErrorCodeRecord, rec)
			if _, err := update.Exec(merged.Description, merged.FixSteps, old.ID); err != nil {
				return 0, 0, err
			}
			old.ErrorCodeRecord = merged
			existing[rec.Code] = old
			updated++
			continue
		}
		res, err := insert.Exec(rec.Code, rec.Description, rec.FixSteps)
		if err != nil {
			return 0, 0, err
		}
		id, _ := res.LastInsertId()
		existing[rec.Code] = internal.StoredErrorCode{ID: id, ErrorCodeRecord: rec}
		inserted++
	}

	return inserted, updated, tx.Commit()
}

// InsertSupplies is a plain append: supplies carry no natural key.
func (d *DB) InsertSupplies(chunk []internal.SupplyRecord) (int, error) {
	if len(chunk) == 0 {
		return 0, nil
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO supplies (assetCode, groupName, name, code, donaldsonCode, unit, quantity, maintenanceInterval)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, rec := range chunk {
		var interval any
		if rec.MaintenanceInterval != nil {
			interval = *rec.MaintenanceInterval
		}
		if _, err := stmt.Exec(rec.AssetCode, rec.Group, rec.Name, rec.Code, rec.DonaldsonCode, rec.Unit, rec.Quantity, interval); err != nil {
			return 0, err
		}
	}
	return len(chunk), tx.Commit()
}

func (d *DB) InsertDriverLogs(chunk []internal.DriverLogRecord) (int, error) {
	if len(chunk) == 0 {
		return 0, nil
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO driverLogs (date, assetCode, odoHours, odoKm, description) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, rec := range chunk {
		if _, err := stmt.Exec(rec.Date, rec.AssetCode, rec.OdoHours, rec.OdoKm, rec.Description); err != nil {
			return 0, err
		}
	}
	return len(chunk), tx.Commit()
}

// SyncMaintenanceLogs resolves each record's plate to a vehicle id and
// inserts it unless the same (vehicle, date, type) event already exists.
// Records whose plate is unknown are skipped, not failed: the vehicle
// campaign for the same source runs first and creates them.
func (d *DB) SyncMaintenanceLogs(chunk []internal.MaintenanceRecord) (int, int, error) {
	if len(chunk) == 0 {
		return 0, 0, nil
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	plateSet := map[string]struct{}{}
	plates := make([]any, 0, len(chunk))
	for _, rec := range chunk {
		if _, seen := plateSet[rec.PlateNumber]; seen {
			continue
		}
		plateSet[rec.PlateNumber] = struct{}{}
		plates = append(plates, rec.PlateNumber)
	}
	rows, err := tx.Query(`SELECT id, plateNumber FROM vehicles WHERE plateNumber IN (`+placeholders(len(plates))+`)`, plates...)
	if err != nil {
		return 0, 0, err
	}
	vehicleIDs := map[string]int64{}
	for rows.Next() {
		var id int64
		var plate string
		if err := rows.Scan(&id, &plate); err != nil {
			_ = rows.Close()
			return 0, 0, err
		}
		vehicleIDs[plate] = id
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	insert, err := tx.Prepare(`
INSERT INTO maintenanceLogs (vehicleId, date, type, hours, km, cost, description, source, raw)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, err
	}
	defer insert.Close()

	inserted, skipped := 0, 0
	for _, rec := range chunk {
		vehicleID, ok := vehicleIDs[rec.PlateNumber]
		if !ok {
			skipped++
			continue
		}
		var existingID int64
		err := tx.QueryRow(`SELECT id FROM maintenanceLogs WHERE vehicleId=? AND date=? AND type=? LIMIT 1`,
			vehicleID, rec.Date, rec.Type).Scan(&existingID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, 0, err
		}
		if _, err := insert.Exec(vehicleID, rec.Date, rec.Type, rec.Hours, rec.Km, rec.Cost, rec.Description, rec.Source, rec.Raw); err != nil {
			return 0, 0, err
		}
		inserted++
	}

	return inserted, skipped, tx.Commit()
}

func (d *DB) GetVehicleByPlate(plate string) (*internal.StoredVehicle, error) {
	var v internal.StoredVehicle
	var projectID sql.NullInt64
	err := d.conn.QueryRow(`
SELECT id, plateNumber, model, department, currentHours, currentKm, nextMaintenanceHours,
       maintenanceInterval, status, projectId, importedFrom, createdAt, updatedAt
FROM vehicles WHERE plateNumber = ?`, plate).Scan(
		&v.ID, &v.PlateNumber, &v.Model, &v.Department, &v.CurrentHours, &v.CurrentKm, &v.NextMaintenanceHours,
		&v.MaintenanceInterval, &v.Status, &projectID, &v.ImportedFrom, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if projectID.Valid {
		v.ProjectID = &projectID.Int64
	}
	return &v, nil
}

func (d *DB) GetErrorCode(code string) (*internal.StoredErrorCode, error) {
	var e internal.StoredErrorCode
	err := d.conn.QueryRow(`
SELECT id, code, description, fixSteps, createdAt, updatedAt FROM errorCodes WHERE code = ?`, code).Scan(
		&e.ID, &e.Code, &e.Description, &e.FixSteps, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// DataTables lists the tables covered by backup, restore and cloud push.
var DataTables = []string{"projects", "vehicles", "maintenanceLogs", "driverLogs", "supplies", "errorCodes"}

func validTable(name string) bool {
	for _, t := range DataTables {
		if t == name {
			return true
		}
	}
	return false
}

// TableRows dumps one table as generic rows, column names preserved.
func (d *DB) TableRows(name string) ([]map[string]any, error) {
	if !validTable(name) {
		return nil, fmt.Errorf("unknown table: %s", name)
	}
	rows, err := d.conn.Query(`SELECT * FROM ` + name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		row := map[string]any{}
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Stats reports row counts per data table.
func (d *DB) Stats() (map[string]int, error) {
	out := map[string]int{}
	for _, table := range DataTables {
		var count int
		if err := d.conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			return nil, err
		}
		out[table] = count
	}
	return out, nil
}
