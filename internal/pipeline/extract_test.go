package pipeline

import (
	"testing"

	"fleettrack/internal"
)

func classifyAndExtract(t *testing.T, sheet internal.RawSheet) Batch {
	t.Helper()
	cls, ok := testClassifier().ClassifySheet(sheet)
	if !ok {
		t.Fatalf("sheet %q did not classify", sheet.Name)
	}
	return ExtractBatch(cls, sheet)
}

func TestExtractVehicles(t *testing.T) {
	sheet := internal.RawSheet{
		Name: "Xe",
		Rows: [][]string{
			{"Biển Số", "Bộ Phận", "Giờ Máy", "Định mức"},
			{"29c-12345", "Đội 1", "350", "500"},
			{"", "Đội 2", "100", "500"},
			{"30F-99999", "Đội 3", "1.200", "400"},
		},
	}
	batch := classifyAndExtract(t, sheet)
	if len(batch.Vehicles) != 2 {
		t.Fatalf("vehicles = %d", len(batch.Vehicles))
	}
	if batch.Dropped != 1 {
		t.Fatalf("dropped = %d", batch.Dropped)
	}
	v := batch.Vehicles[0]
	if v.PlateNumber != "29C-12345" {
		t.Errorf("plate = %q", v.PlateNumber)
	}
	if v.CurrentHours != 350 || v.NextMaintenanceHours != 500 {
		t.Errorf("hours = %v next = %v", v.CurrentHours, v.NextMaintenanceHours)
	}
	if batch.Vehicles[1].CurrentHours != 1200 {
		t.Errorf("grouped number = %v", batch.Vehicles[1].CurrentHours)
	}
}

func TestExtractMasterConditionalHistory(t *testing.T) {
	sheet := internal.RawSheet{
		Name: "Master",
		Rows: [][]string{
			{"Mã quản lý", "Khối thi công", "ODO giờ hiện tại", "Định mức bảo dưỡng", "Mức BD", "Ngày thực hiện"},
			{"MQL-01", "Khối 1", "1200", "500", "BD2", "15/03/2024"},
			{"MQL-02", "Khối 2", "800", "500", "", ""},
			{"MQL-03", "Khối 1", "300", "500", "BD1", "không rõ"},
		},
	}
	batch := classifyAndExtract(t, sheet)

	// Every row with a plate yields a vehicle snapshot.
	if len(batch.Vehicles) != 3 {
		t.Fatalf("vehicles = %d", len(batch.Vehicles))
	}
	// Only the row with both a service level and a parseable date yields history.
	if len(batch.History) != 1 {
		t.Fatalf("history = %d", len(batch.History))
	}
	h := batch.History[0]
	if h.PlateNumber != "MQL01" || h.Date != "2024-03-15" || h.Type != "BD2" {
		t.Errorf("history = %+v", h)
	}
	if h.Source != "master_excel_import" {
		t.Errorf("source = %q", h.Source)
	}
	// The unparseable date surfaces as a warning, not an error.
	if len(batch.Diags) != 1 || batch.Diags[0].Level != internal.DiagWarning {
		t.Fatalf("diags = %+v", batch.Diags)
	}
}

func TestExtractDriverLogs(t *testing.T) {
	sheet := internal.RawSheet{
		Name: "Nhật ký",
		Rows: [][]string{
			{"Ngày", "Thiết bị", "ODO Km", "Giờ hoạt động", "Nội dung công việc"},
			{"15/03/2024", "29C-12345", "120", "8", "Vận chuyển đất"},
			{"xx", "29C-12345", "0", "0", ""},
			{"16/03/2024", "", "0", "0", ""},
		},
	}
	batch := classifyAndExtract(t, sheet)
	if batch.Entity != internal.EntityMaintenanceHistory {
		t.Fatalf("entity = %s", batch.Entity)
	}
	if len(batch.DriverLogs) != 1 {
		t.Fatalf("driverLogs = %d", len(batch.DriverLogs))
	}
	if batch.Dropped != 2 {
		t.Fatalf("dropped = %d", batch.Dropped)
	}
	log := batch.DriverLogs[0]
	if log.Date != "2024-03-15" || log.AssetCode != "29C-12345" {
		t.Errorf("log = %+v", log)
	}
}

func TestExtractSupplies(t *testing.T) {
	sheet := internal.RawSheet{
		Name: "Vật tư",
		Rows: [][]string{
			{"Tên vật tư", "Mã danh điểm", "Đơn vị", "Số lượng", "Mã tài sản"},
			{"Lọc dầu", "VT-01", "Cái", "2", "29C-12345"},
			{"Lọc gió", "VT-02", "Cái", "", ""},
			{"", "VT-03", "", "", ""},
		},
	}
	batch := classifyAndExtract(t, sheet)
	if len(batch.Supplies) != 2 {
		t.Fatalf("supplies = %d", len(batch.Supplies))
	}
	if batch.Dropped != 1 {
		t.Fatalf("dropped = %d", batch.Dropped)
	}
	if batch.Supplies[0].AssetCode != "29C-12345" || batch.Supplies[0].Quantity != 2 {
		t.Errorf("first = %+v", batch.Supplies[0])
	}
	// Absent quantity floors at 1, absent asset code groups under CHUNG.
	if batch.Supplies[1].Quantity != 1 || batch.Supplies[1].AssetCode != "CHUNG" {
		t.Errorf("defaults = %+v", batch.Supplies[1])
	}
}

func TestExtractErrorCodes(t *testing.T) {
	sheet := internal.RawSheet{
		Name: "Mã lỗi",
		Rows: [][]string{
			{"Mã lỗi", "Mô tả", "Khắc phục"},
			{"E001", "Quá nhiệt", "Kiểm tra két nước"},
			{"", "thiếu mã", ""},
		},
	}
	batch := classifyAndExtract(t, sheet)
	if len(batch.ErrorCodes) != 1 || batch.Dropped != 1 {
		t.Fatalf("errorCodes = %d dropped = %d", len(batch.ErrorCodes), batch.Dropped)
	}
	e := batch.ErrorCodes[0]
	if e.Code != "E001" || e.FixSteps != "Kiểm tra két nước" {
		t.Errorf("errorCode = %+v", e)
	}
}
