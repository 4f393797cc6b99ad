package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"fleettrack/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "fleet.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSeedErrorCodes(t *testing.T) {
	db := openTestDB(t)
	e, err := db.GetErrorCode("E001")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.Description == "" {
		t.Fatalf("seed E001 = %+v", e)
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["errorCodes"] != 3 {
		t.Fatalf("seeded errorCodes = %d", stats["errorCodes"])
	}
}

func TestUpsertVehiclesInsertThenMerge(t *testing.T) {
	db := openTestDB(t)

	ins, upd, err := db.UpsertVehicles([]internal.VehicleRecord{
		{PlateNumber: "29C-12345", Department: "Đội 1", CurrentHours: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ins != 1 || upd != 0 {
		t.Fatalf("ins=%d upd=%d", ins, upd)
	}

	v, err := db.GetVehicleByPlate("29C-12345")
	if err != nil {
		t.Fatal(err)
	}
	if v.MaintenanceInterval != internal.DefaultMaintenanceInterval {
		t.Errorf("interval = %v, want default applied on insert", v.MaintenanceInterval)
	}
	createdAt := v.CreatedAt

	// Lower reading and empty department must not clobber stored values.
	ins, upd, err = db.UpsertVehicles([]internal.VehicleRecord{
		{PlateNumber: "29C-12345", CurrentHours: 80, Model: "CAT 320"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ins != 0 || upd != 1 {
		t.Fatalf("ins=%d upd=%d", ins, upd)
	}

	v, err = db.GetVehicleByPlate("29C-12345")
	if err != nil {
		t.Fatal(err)
	}
	if v.CurrentHours != 100 {
		t.Errorf("currentHours = %v", v.CurrentHours)
	}
	if v.Department != "Đội 1" || v.Model != "CAT 320" {
		t.Errorf("merged = %+v", v.VehicleRecord)
	}
	if v.CreatedAt != createdAt {
		t.Errorf("createdAt changed: %q -> %q", createdAt, v.CreatedAt)
	}
}

func TestUpsertVehiclesDuplicatePlateWithinChunk(t *testing.T) {
	db := openTestDB(t)

	ins, upd, err := db.UpsertVehicles([]internal.VehicleRecord{
		{PlateNumber: "29C-12345", CurrentHours: 100},
		{PlateNumber: "29C-12345", CurrentHours: 150},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ins != 1 || upd != 1 {
		t.Fatalf("ins=%d upd=%d", ins, upd)
	}

	v, err := db.GetVehicleByPlate("29C-12345")
	if err != nil {
		t.Fatal(err)
	}
	if v.CurrentHours != 150 {
		t.Errorf("currentHours = %v", v.CurrentHours)
	}
}

func TestUpsertErrorCodes(t *testing.T) {
	db := openTestDB(t)

	ins, upd, err := db.UpsertErrorCodes([]internal.ErrorCodeRecord{
		{Code: "X100", Description: "mô tả cũ"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ins != 1 || upd != 0 {
		t.Fatalf("ins=%d upd=%d", ins, upd)
	}

	_, upd, err = db.UpsertErrorCodes([]internal.ErrorCodeRecord{
		{Code: "X100", FixSteps: "các bước"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if upd != 1 {
		t.Fatalf("upd=%d", upd)
	}

	e, err := db.GetErrorCode("X100")
	if err != nil {
		t.Fatal(err)
	}
	if e.Description != "mô tả cũ" || e.FixSteps != "các bước" {
		t.Errorf("merged = %+v", e.ErrorCodeRecord)
	}
}

func TestSyncMaintenanceLogs(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.UpsertVehicles([]internal.VehicleRecord{{PlateNumber: "MQL01"}}); err != nil {
		t.Fatal(err)
	}

	logs := []internal.MaintenanceRecord{
		{PlateNumber: "MQL01", Date: "2024-03-15", Type: "BD2", Source: "master_excel_import"},
		{PlateNumber: "KHONG-CO", Date: "2024-03-15", Type: "BD2"},
	}
	ins, skip, err := db.SyncMaintenanceLogs(logs)
	if err != nil {
		t.Fatal(err)
	}
	if ins != 1 || skip != 1 {
		t.Fatalf("ins=%d skip=%d", ins, skip)
	}

	// Same event again is a duplicate, not a second row.
	ins, skip, err = db.SyncMaintenanceLogs(logs[:1])
	if err != nil {
		t.Fatal(err)
	}
	if ins != 0 || skip != 1 {
		t.Fatalf("rerun ins=%d skip=%d", ins, skip)
	}

	// Same day, different service level is a distinct event.
	ins, _, err = db.SyncMaintenanceLogs([]internal.MaintenanceRecord{
		{PlateNumber: "MQL01", Date: "2024-03-15", Type: "BD1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ins != 1 {
		t.Fatalf("distinct type ins=%d", ins)
	}
}

func TestInsertSuppliesAndDriverLogs(t *testing.T) {
	db := openTestDB(t)

	interval := 250.0
	n, err := db.InsertSupplies([]internal.SupplyRecord{
		{AssetCode: "XE-01", Name: "Lọc dầu", Quantity: 2, MaintenanceInterval: &interval},
		{AssetCode: "CHUNG", Name: "Mỡ bôi trơn", Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("supplies = %d", n)
	}

	n, err = db.InsertDriverLogs([]internal.DriverLogRecord{
		{Date: "2024-03-15", AssetCode: "XE-01", OdoHours: 8},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("driverLogs = %d", n)
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["supplies"] != 2 || stats["driverLogs"] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetMetadata("cloud.last_push", "2026-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("cloud.last_push", "2026-02-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetMetadata("cloud.last_push")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != "2026-02-01T00:00:00Z" {
		t.Fatalf("metadata = %v", got)
	}

	missing, err := db.GetMetadata("never.set")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("missing = %v", *missing)
	}
}

func TestTableRowsRejectsUnknownTable(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.TableRows("sqlite_master"); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.UpsertVehicles([]internal.VehicleRecord{
		{PlateNumber: "29C-12345", Department: "Đội 1", CurrentHours: 350},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertSupplies([]internal.SupplyRecord{
		{AssetCode: "CHUNG", Name: "Lọc dầu", Quantity: 2},
	}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := db.ExportJSON(&buf); err != nil {
		t.Fatal(err)
	}

	restored := openTestDB(t)
	if err := restored.RestoreJSON(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}

	v, err := restored.GetVehicleByPlate("29C-12345")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || v.CurrentHours != 350 || v.Department != "Đội 1" {
		t.Fatalf("restored vehicle = %+v", v)
	}

	want, err := db.Stats()
	if err != nil {
		t.Fatal(err)
	}
	got, err := restored.Stats()
	if err != nil {
		t.Fatal(err)
	}
	for table, count := range want {
		if got[table] != count {
			t.Errorf("%s: %d != %d", table, got[table], count)
		}
	}
}

func TestRestoreRejectsMalformedBackup(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.UpsertVehicles([]internal.VehicleRecord{{PlateNumber: "29C-12345"}}); err != nil {
		t.Fatal(err)
	}

	bad := `{"tables":{"vehicles":[{"plateNumber; DROP TABLE vehicles":"x"}]}}`
	if err := db.RestoreJSON(bytes.NewReader([]byte(bad))); err == nil {
		t.Fatal("expected error")
	}

	// Failed restore leaves existing data intact.
	v, err := db.GetVehicleByPlate("29C-12345")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil {
		t.Fatal("vehicle lost after failed restore")
	}
}
