package pipeline

import (
	"strings"

	"fleettrack/internal"
	"fleettrack/internal/config"
)

// Classifier decides, per sheet, which entity type it holds and where the
// header row sits. Greedy and winner-take-all: the first scanRows rows are
// scored against every entity's keyword set, the single best (row, entity)
// pair wins, and a sheet below minScore yields nothing.
type Classifier struct {
	scanRows int
	minScore int
}

func NewClassifier(cfg config.Config) *Classifier {
	scanRows := cfg.ClassifyScanRows
	if scanRows <= 0 {
		scanRows = 10
	}
	return &Classifier{scanRows: scanRows, minScore: cfg.ClassifyMinScore}
}

// entityOrder fixes the tie-break between entity types scoring equally on
// the same row: vehicles beat master sheets, master beats activity logs,
// then supplies, then error codes.
var entityOrder = []internal.EntityType{
	internal.EntityVehicle,
	internal.EntityMasterCombined,
	internal.EntityMaintenanceHistory,
	internal.EntitySupply,
	internal.EntityErrorCode,
}

func scoreRow(entity internal.EntityType, rowText string) int {
	score := 0
	switch entity {
	case internal.EntityVehicle:
		if strings.Contains(rowText, "biển số") || strings.Contains(rowText, "mã tài sản") {
			score += 3
		}
		if strings.Contains(rowText, "giờ máy") || strings.Contains(rowText, "định mức") {
			score += 2
		}
	case internal.EntityMaintenanceHistory:
		if strings.Contains(rowText, "ngày") && (strings.Contains(rowText, "odo") || strings.Contains(rowText, "giờ hoạt động")) {
			score += 4
		}
		if strings.Contains(rowText, "nội dung công việc") {
			score += 2
		}
	case internal.EntitySupply:
		if strings.Contains(rowText, "tên vật tư") || strings.Contains(rowText, "mã danh điểm") {
			score += 4
		}
	case internal.EntityErrorCode:
		if strings.Contains(rowText, "mã lỗi") || strings.Contains(rowText, "khắc phục") {
			score += 4
		}
	case internal.EntityMasterCombined:
		if strings.Contains(rowText, "khối thi công") || strings.Contains(rowText, "mức bd") {
			score += 5
		}
		if strings.Contains(rowText, "odo giờ thực hiện") || strings.Contains(rowText, "định mức bảo dưỡng") {
			score += 3
		}
	}
	return score
}

// ClassifySheet scans the sheet's leading rows and reports the best header
// row candidate. A later row must strictly beat the current best to replace
// it, so the earliest of equally scored rows wins.
func (c *Classifier) ClassifySheet(sheet internal.RawSheet) (internal.Classification, bool) {
	if len(sheet.Rows) < 2 {
		return internal.Classification{}, false
	}

	best := internal.Classification{SheetName: sheet.Name, HeaderRowIndex: -1}
	limit := len(sheet.Rows)
	if limit > c.scanRows {
		limit = c.scanRows
	}

	for i := 0; i < limit; i++ {
		rowText := strings.ToLower(strings.Join(sheet.Rows[i], " "))
		rowBest := 0
		var rowEntity internal.EntityType
		for _, entity := range entityOrder {
			if s := scoreRow(entity, rowText); s > rowBest {
				rowBest = s
				rowEntity = entity
			}
		}
		if rowBest > c.minScore && rowBest > best.Score {
			best.Score = rowBest
			best.Entity = rowEntity
			best.HeaderRowIndex = i
		}
	}

	if best.HeaderRowIndex < 0 {
		return internal.Classification{}, false
	}
	headers := make([]string, len(sheet.Rows[best.HeaderRowIndex]))
	copy(headers, sheet.Rows[best.HeaderRowIndex])
	best.Headers = headers
	return best, true
}

// Classify runs ClassifySheet over a workbook; sheets below threshold are
// simply absent from the result.
func (c *Classifier) Classify(sheets []internal.RawSheet) []internal.Classification {
	out := make([]internal.Classification, 0, len(sheets))
	for _, sheet := range sheets {
		if cls, ok := c.ClassifySheet(sheet); ok {
			out = append(out, cls)
		}
	}
	return out
}
