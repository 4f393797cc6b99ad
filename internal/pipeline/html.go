package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"fleettrack/internal"
	"fleettrack/internal/util"
)

// repairTableSignature is the set of column names a scraped repair-tracking
// page is expected to carry. A table qualifies once enough distinct
// signature words appear among its headers.
var repairTableSignature = []string{
	"mã", "thiết bị", "biển", "bks", "tên", "model",
	"ngày", "nội dung", "mô tả", "đơn vị", "bộ phận",
}

// HTMLResult carries the scraped repair reports and, for diagnosis, the
// headers of every table seen along the way.
type HTMLResult struct {
	Reports    []internal.RepairReport
	Headers    []string
	TablesSeen [][]string
	Skipped    int
}

// ExtractRepairReports walks the document's tables, picks the first one
// matching the repair-report signature and maps its rows to RepairReports.
// When no table qualifies the error lists the headers that were found, so
// the operator can see what the page actually contained.
func ExtractRepairReports(r io.Reader, minSignature int) (HTMLResult, error) {
	if minSignature <= 0 {
		minSignature = 2
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return HTMLResult{}, fmt.Errorf("parse html: %w", err)
	}

	result := HTMLResult{}
	var target *goquery.Selection
	var hm *HeaderMap

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		headers := tableHeaders(table)
		if len(headers) == 0 {
			return true
		}
		result.TablesSeen = append(result.TablesSeen, headers)

		hits := 0
		for _, kw := range repairTableSignature {
			for _, h := range headers {
				if strings.Contains(h, kw) {
					hits++
					break
				}
			}
		}
		if hits >= minSignature {
			target = table
			result.Headers = headers
			hm = NewHeaderMap(headers)
			return false
		}
		return true
	})

	if target == nil {
		if len(result.TablesSeen) == 0 {
			return result, fmt.Errorf("no <table> found in document")
		}
		found := make([]string, 0, len(result.TablesSeen))
		for i, headers := range result.TablesSeen {
			found = append(found, fmt.Sprintf("[table %d]: %s", i+1, strings.Join(headers, ", ")))
		}
		return result, fmt.Errorf("no table structure matched the expected signature; found: %s", strings.Join(found, "; "))
	}

	rows := target.Find("tbody tr")
	if rows.Length() == 0 {
		rows = target.Find("tr")
	}

	rows.Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, util.NormalizeSpaces(cell.Text()))
		})
		// Spacer and layout rows never carry a full report.
		if len(cells) < 5 {
			result.Skipped++
			return
		}

		report := internal.RepairReport{
			MachineCode:  hm.CellOr(cells, "", "mã thiết bị", "mã số", "code"),
			LicensePlate: hm.CellOr(cells, "", "biển số", "biển kiểm soát", "plate"),
			MachineName:  hm.CellOr(cells, "", "tên thiết bị", "loại máy", "tên máy"),
			Department:   hm.CellOr(cells, "", "đơn vị", "bộ phận", "công trường", "dự án"),
			ReportDate:   hm.CellOr(cells, "", "ngày", "thời gian"),
			RepairStaff:  hm.CellOr(cells, "", "người sửa", "cán bộ", "kỹ thuật"),
			Description:  hm.CellOr(cells, "", "nội dung", "mô tả", "công việc"),
		}
		if report.MachineCode == "" && report.LicensePlate == "" {
			result.Skipped++
			return
		}
		result.Reports = append(result.Reports, report)
	})

	if len(result.Reports) == 0 {
		return result, fmt.Errorf("no rows extracted from matched table")
	}
	return result, nil
}

func tableHeaders(table *goquery.Selection) []string {
	headers := []string{}
	cells := table.Find("thead th, thead td")
	if cells.Length() == 0 {
		if firstRow := table.Find("tr").First(); firstRow.Length() > 0 {
			cells = firstRow.Find("th, td")
		}
	}
	cells.Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
	})
	return headers
}

// ToBatch turns scraped repair reports into one import batch: a vehicle
// update per report (the machine is on the repair list, so its status is
// forced to maintenance) plus a deduplicated history entry.
func (r HTMLResult) ToBatch(today string) Batch {
	batch := Batch{Entity: internal.EntityMasterCombined, SheetName: "repair-report"}
	for _, report := range r.Reports {
		plate := util.CleanPlate(report.LicensePlate)
		if plate == "" {
			plate = util.CleanPlate(report.MachineCode)
		}
		if plate == "" {
			batch.Dropped++
			continue
		}

		batch.Vehicles = append(batch.Vehicles, internal.VehicleRecord{
			PlateNumber:  plate,
			Model:        report.MachineName,
			Department:   report.Department,
			Status:       "maintenance",
			ImportedFrom: "repair_sync",
		})

		date := today
		if parsed, ok := util.ParseFlexibleDate(report.ReportDate); ok {
			date = util.DateString(parsed)
		}
		description := report.Description
		if description == "" {
			description = "Đồng bộ từ hệ thống sửa chữa. NV: " + report.RepairStaff
		}
		batch.History = append(batch.History, internal.MaintenanceRecord{
			PlateNumber: plate,
			Date:        date,
			Type:        "Sửa chữa (đồng bộ)",
			Description: description,
			Source:      "repair_sync",
		})
	}
	return batch
}
