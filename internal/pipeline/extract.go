package pipeline

import (
	"fmt"
	"strings"

	"fleettrack/internal"
	"fleettrack/internal/util"
)

// Batch is the canonical output of one classified sheet: typed records plus
// the count of rows dropped for missing their key field. Exported workbooks
// routinely trail off into blank or merged rows, so dropping is silent but
// counted.
type Batch struct {
	Entity     internal.EntityType
	SheetName  string
	Vehicles   []internal.VehicleRecord
	History    []internal.MaintenanceRecord
	DriverLogs []internal.DriverLogRecord
	Supplies   []internal.SupplyRecord
	ErrorCodes []internal.ErrorCodeRecord
	Dropped    int
	Diags      []internal.Diagnostic
}

// Size is the record count that participates in progress accounting.
func (b *Batch) Size() int {
	return len(b.Vehicles) + len(b.History) + len(b.DriverLogs) + len(b.Supplies) + len(b.ErrorCodes)
}

// ExtractBatch maps every data row below the classified header to a
// canonical record for the sheet's entity type.
func ExtractBatch(cls internal.Classification, sheet internal.RawSheet) Batch {
	batch := Batch{Entity: cls.Entity, SheetName: cls.SheetName}
	if cls.HeaderRowIndex+1 >= len(sheet.Rows) {
		return batch
	}
	hm := NewHeaderMap(cls.Headers)
	dataRows := sheet.Rows[cls.HeaderRowIndex+1:]

	switch cls.Entity {
	case internal.EntityVehicle:
		extractVehicles(&batch, hm, dataRows)
	case internal.EntityMasterCombined:
		extractMaster(&batch, hm, dataRows)
	case internal.EntityMaintenanceHistory:
		extractDriverLogs(&batch, hm, dataRows)
	case internal.EntitySupply:
		extractSupplies(&batch, hm, dataRows)
	case internal.EntityErrorCode:
		extractErrorCodes(&batch, hm, dataRows)
	}
	return batch
}

func extractVehicles(batch *Batch, hm *HeaderMap, rows [][]string) {
	for _, row := range rows {
		plate, ok := hm.Cell(row, "biển số", "mã tài sản", "plateNumber")
		if !ok {
			batch.Dropped++
			continue
		}
		batch.Vehicles = append(batch.Vehicles, internal.VehicleRecord{
			PlateNumber:          strings.ToUpper(strings.TrimSpace(plate)),
			Department:           hm.CellOr(row, "", "bộ phận", "đơn vị"),
			CurrentHours:         hm.Number(row, "giờ máy", "currentHours"),
			CurrentKm:            hm.Number(row, "km hiện tại", "odo km"),
			NextMaintenanceHours: hm.Number(row, "định mức", "bảo dưỡng"),
			MaintenanceInterval:  hm.Number(row, "chu kỳ"),
		})
	}
}

// extractMaster yields one vehicle snapshot per row unconditionally and a
// maintenance-history entry only when the row names both a service date and
// a service level. Missing either skips the history entry, never the
// vehicle update.
func extractMaster(batch *Batch, hm *HeaderMap, rows [][]string) {
	for _, row := range rows {
		plateRaw, ok := hm.Cell(row, "mã quản lý", "mã tài sản", "biển số")
		if !ok {
			batch.Dropped++
			continue
		}
		plate := util.PlateKey(plateRaw)
		if plate == "" {
			batch.Dropped++
			continue
		}

		batch.Vehicles = append(batch.Vehicles, internal.VehicleRecord{
			PlateNumber:          plate,
			Department:           hm.CellOr(row, "", "khối thi công", "bộ phận"),
			CurrentHours:         hm.Number(row, "odo giờ hiện tại", "giờ hiện tại"),
			CurrentKm:            hm.Number(row, "odo km hiện tại", "km hiện tại"),
			MaintenanceInterval:  hm.Number(row, "định mức bảo dưỡng", "chu kỳ"),
			NextMaintenanceHours: hm.Number(row, "odo giờ bd kế tiếp", "kế tiếp"),
		})

		dateRaw, hasDate := hm.Cell(row, "ngày thực hiện", "ngày cập nhật")
		typeRaw, hasType := hm.Cell(row, "mức bd", "loại bảo dưỡng")
		if !hasDate || !hasType {
			continue
		}
		date, ok := util.ParseFlexibleDate(dateRaw)
		if !ok {
			batch.Diags = append(batch.Diags, internal.Diagnostic{
				Level: internal.DiagWarning,
				Sheet: batch.SheetName,
				Msg:   fmt.Sprintf("bỏ qua lịch sử của %s: ngày không hợp lệ %q", plate, dateRaw),
			})
			continue
		}
		batch.History = append(batch.History, internal.MaintenanceRecord{
			PlateNumber: plate,
			Date:        util.DateString(date),
			Type:        typeRaw,
			Hours:       hm.Number(row, "odo giờ thực hiện bd"),
			Km:          hm.Number(row, "odo km thực hiện bd"),
			Description: hm.CellOr(row, "Cập nhật từ Master Excel", "ghi chú", "nội dung"),
			Source:      "master_excel_import",
		})
	}
}

func extractDriverLogs(batch *Batch, hm *HeaderMap, rows [][]string) {
	for _, row := range rows {
		dateRaw, hasDate := hm.Cell(row, "ngày", "date")
		plate, hasPlate := hm.Cell(row, "thiết bị", "xe", "biển số")
		if !hasDate || !hasPlate {
			batch.Dropped++
			continue
		}
		date, ok := util.ParseFlexibleDate(dateRaw)
		if !ok {
			batch.Dropped++
			batch.Diags = append(batch.Diags, internal.Diagnostic{
				Level: internal.DiagWarning,
				Sheet: batch.SheetName,
				Msg:   fmt.Sprintf("bỏ qua dòng nhật ký: ngày không hợp lệ %q", dateRaw),
			})
			continue
		}
		batch.DriverLogs = append(batch.DriverLogs, internal.DriverLogRecord{
			Date:        util.DateString(date),
			AssetCode:   strings.ToUpper(strings.TrimSpace(plate)),
			OdoHours:    hm.Number(row, "giờ", "odo hours"),
			OdoKm:       hm.Number(row, "odo km"),
			Description: hm.CellOr(row, "", "nội dung", "công việc"),
		})
	}
}

func extractSupplies(batch *Batch, hm *HeaderMap, rows [][]string) {
	for _, row := range rows {
		name, ok := hm.Cell(row, "tên vật tư", "tên phụ tùng")
		if !ok {
			batch.Dropped++
			continue
		}
		quantity := hm.Number(row, "số lượng", "sl")
		if quantity < 1 {
			quantity = 1
		}
		var interval *float64
		if raw, ok := hm.Cell(row, "định mức", "chu kỳ"); ok {
			interval = util.FloatPtr(util.ParseNumber(raw))
		}
		batch.Supplies = append(batch.Supplies, internal.SupplyRecord{
			AssetCode:           strings.ToUpper(hm.CellOr(row, "CHUNG", "mã tài sản", "mã xe")),
			Group:               hm.CellOr(row, "", "nhóm"),
			Name:                strings.TrimSpace(name),
			Code:                hm.CellOr(row, "", "mã danh điểm", "part no", "mã gốc"),
			Unit:                hm.CellOr(row, "", "đơn vị", "đvt"),
			Quantity:            quantity,
			DonaldsonCode:       hm.CellOr(row, "", "donaldson", "mã lọc", "quy đổi"),
			MaintenanceInterval: interval,
		})
	}
}

func extractErrorCodes(batch *Batch, hm *HeaderMap, rows [][]string) {
	for _, row := range rows {
		code, ok := hm.Cell(row, "mã lỗi", "code", "error")
		if !ok {
			batch.Dropped++
			continue
		}
		batch.ErrorCodes = append(batch.ErrorCodes, internal.ErrorCodeRecord{
			Code:        strings.TrimSpace(code),
			Description: hm.CellOr(row, "", "mô tả", "nội dung", "desc"),
			FixSteps:    hm.CellOr(row, "", "khắc phục", "sửa chữa", "fix"),
		})
	}
}
