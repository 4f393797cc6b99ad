package pipeline

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"fleettrack/internal"
	"fleettrack/internal/config"
)

// Status tracks one import operation through its lifecycle. Writes never
// start before the caller has seen the analysis report and confirmed it:
// classification is heuristic and a wrong detection must stay cheap to
// abort.
type Status string

const (
	StatusIdle                 Status = "idle"
	StatusAnalyzing            Status = "analyzing"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusProcessing           Status = "processing"
	StatusDone                 Status = "done"
	StatusFailed               Status = "failed"
)

// Store is the slice of the persistent store the importer writes through.
// Every method commits one chunk in one transaction.
type Store interface {
	UpsertVehicles(chunk []internal.VehicleRecord) (inserted, updated int, err error)
	UpsertErrorCodes(chunk []internal.ErrorCodeRecord) (inserted, updated int, err error)
	InsertSupplies(chunk []internal.SupplyRecord) (int, error)
	InsertDriverLogs(chunk []internal.DriverLogRecord) (int, error)
	SyncMaintenanceLogs(chunk []internal.MaintenanceRecord) (inserted, skipped int, err error)
}

// ProgressFunc is called after every committed chunk.
type ProgressFunc func(processed, percent int)

// Analysis is the confirmation-gate payload: everything extracted, nothing
// written yet.
type Analysis struct {
	Batches []Batch
	Diags   []internal.Diagnostic
}

// Total is the grand total of records across all batches.
func (a *Analysis) Total() int {
	total := 0
	for i := range a.Batches {
		total += a.Batches[i].Size()
	}
	return total
}

// Dropped sums the rows discarded for missing key fields.
func (a *Analysis) Dropped() int {
	dropped := 0
	for i := range a.Batches {
		dropped += a.Batches[i].Dropped
	}
	return dropped
}

// Report renders one human-readable line per detected batch.
func (a *Analysis) Report() []string {
	lines := make([]string, 0, len(a.Batches))
	for i := range a.Batches {
		b := &a.Batches[i]
		line := fmt.Sprintf("- %d dòng %s (sheet: %s)", b.Size(), entityLabel(b.Entity), b.SheetName)
		if b.Dropped > 0 {
			line += fmt.Sprintf(", bỏ qua %d dòng thiếu khóa", b.Dropped)
		}
		lines = append(lines, line)
	}
	return lines
}

func entityLabel(entity internal.EntityType) string {
	switch entity {
	case internal.EntityVehicle:
		return "Xe/Máy"
	case internal.EntityMasterCombined:
		return "Dữ liệu tổng hợp"
	case internal.EntityMaintenanceHistory:
		return "Nhật ký hoạt động"
	case internal.EntitySupply:
		return "Vật tư"
	case internal.EntityErrorCode:
		return "Mã lỗi"
	}
	return string(entity)
}

// Summary is the final accounting of one import run. Counts reflect what
// was actually committed, including runs that failed or were cancelled
// part-way: chunks committed before the interruption stay committed.
type Summary struct {
	Inserted  map[string]int
	Updated   map[string]int
	Skipped   map[string]int
	Processed int
	Total     int
	Dropped   int
	Diags     []internal.Diagnostic
}

func newSummary() *Summary {
	return &Summary{
		Inserted: map[string]int{},
		Updated:  map[string]int{},
		Skipped:  map[string]int{},
	}
}

// Importer drives one import operation end to end. Not safe for concurrent
// use; callers serialize imports against the same store.
type Importer struct {
	store  Store
	cfg    config.Config
	status Status
}

func NewImporter(store Store, cfg config.Config) *Importer {
	return &Importer{store: store, cfg: cfg, status: StatusIdle}
}

func (imp *Importer) Status() Status { return imp.status }

// AnalyzeWorkbook reads an .xlsx file and classifies its sheets.
func (imp *Importer) AnalyzeWorkbook(path string) (*Analysis, error) {
	sheets, err := ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	return imp.Analyze(sheets)
}

// Analyze classifies and extracts every sheet. It fails only when not a
// single sheet in the whole source was recognized; an individual
// unrecognized sheet just contributes a warning and zero records.
func (imp *Importer) Analyze(sheets []internal.RawSheet) (*Analysis, error) {
	imp.status = StatusAnalyzing
	classifier := NewClassifier(imp.cfg)

	analysis := &Analysis{}
	for _, sheet := range sheets {
		cls, ok := classifier.ClassifySheet(sheet)
		if !ok {
			if len(sheet.Rows) > 0 {
				analysis.Diags = append(analysis.Diags, internal.Diagnostic{
					Level: internal.DiagWarning,
					Sheet: sheet.Name,
					Msg:   fmt.Sprintf("không nhận diện được loại dữ liệu, dòng đầu: %v", sheet.Rows[0]),
				})
			}
			continue
		}
		batch := ExtractBatch(cls, sheet)
		analysis.Diags = append(analysis.Diags, batch.Diags...)
		if batch.Size() > 0 || batch.Dropped > 0 {
			analysis.Batches = append(analysis.Batches, batch)
		}
	}

	if analysis.Total() == 0 {
		imp.status = StatusFailed
		return analysis, fmt.Errorf("no recognizable table structure found")
	}
	imp.status = StatusAwaitingConfirmation
	return analysis, nil
}

// AnalyzeHTML is the scraped-table sibling of Analyze.
func (imp *Importer) AnalyzeHTML(r io.Reader) (*Analysis, error) {
	imp.status = StatusAnalyzing
	result, err := ExtractRepairReports(r, imp.cfg.HTMLMinSignature)
	if err != nil {
		imp.status = StatusFailed
		return nil, err
	}

	batch := result.ToBatch(time.Now().UTC().Format("2006-01-02"))
	analysis := &Analysis{Batches: []Batch{batch}, Diags: batch.Diags}
	if result.Skipped > 0 {
		analysis.Diags = append(analysis.Diags, internal.Diagnostic{
			Level: internal.DiagInfo,
			Sheet: batch.SheetName,
			Msg:   fmt.Sprintf("bỏ qua %d dòng trống/không đủ cột", result.Skipped),
		})
	}
	if analysis.Total() == 0 {
		imp.status = StatusFailed
		return analysis, fmt.Errorf("no recognizable table structure found")
	}
	imp.status = StatusAwaitingConfirmation
	return analysis, nil
}

// Run commits the analyzed batches. Campaigns run sequentially, each chunk
// in its own transaction; a failure or cancellation keeps everything
// committed so far and reports the partial counts. Within a combined batch
// the vehicle chunks always land before the history chunks so that plate
// lookups resolve against fresh data.
func (imp *Importer) Run(ctx context.Context, analysis *Analysis, onProgress ProgressFunc) (*Summary, error) {
	imp.status = StatusProcessing
	summary := newSummary()
	summary.Total = analysis.Total()
	summary.Dropped = analysis.Dropped()
	summary.Diags = append(summary.Diags, analysis.Diags...)

	chunkSize := imp.cfg.ImportChunkSize
	if chunkSize <= 0 {
		chunkSize = 2000
	}

	for i := range analysis.Batches {
		batch := &analysis.Batches[i]
		steps := []func() error{
			func() error {
				return runChunks(ctx, batch.Vehicles, chunkSize, summary, onProgress, func(chunk []internal.VehicleRecord) error {
					ins, upd, err := imp.store.UpsertVehicles(chunk)
					summary.Inserted["vehicles"] += ins
					summary.Updated["vehicles"] += upd
					return err
				})
			},
			func() error {
				return runChunks(ctx, batch.History, chunkSize, summary, onProgress, func(chunk []internal.MaintenanceRecord) error {
					ins, skip, err := imp.store.SyncMaintenanceLogs(chunk)
					summary.Inserted["maintenanceLogs"] += ins
					summary.Skipped["maintenanceLogs"] += skip
					return err
				})
			},
			func() error {
				return runChunks(ctx, batch.DriverLogs, chunkSize, summary, onProgress, func(chunk []internal.DriverLogRecord) error {
					n, err := imp.store.InsertDriverLogs(chunk)
					summary.Inserted["driverLogs"] += n
					return err
				})
			},
			func() error {
				return runChunks(ctx, batch.Supplies, chunkSize, summary, onProgress, func(chunk []internal.SupplyRecord) error {
					n, err := imp.store.InsertSupplies(chunk)
					summary.Inserted["supplies"] += n
					return err
				})
			},
			func() error {
				return runChunks(ctx, batch.ErrorCodes, chunkSize, summary, onProgress, func(chunk []internal.ErrorCodeRecord) error {
					ins, upd, err := imp.store.UpsertErrorCodes(chunk)
					summary.Inserted["errorCodes"] += ins
					summary.Updated["errorCodes"] += upd
					return err
				})
			},
		}
		for _, step := range steps {
			if err := step(); err != nil {
				imp.status = StatusFailed
				return summary, err
			}
		}
	}

	imp.status = StatusDone
	return summary, nil
}

// runChunks walks one record slice chunk by chunk: cancellation check,
// transactional write, progress report, then a cooperative yield to keep a
// host event loop responsive.
func runChunks[T any](ctx context.Context, records []T, size int, summary *Summary, onProgress ProgressFunc, commit func([]T) error) error {
	for start := 0; start < len(records); start += size {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import cancelled after %d/%d records: %w", summary.Processed, summary.Total, err)
		}
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]
		if err := commit(chunk); err != nil {
			return fmt.Errorf("chunk failed after %d/%d records committed: %w", summary.Processed, summary.Total, err)
		}
		summary.Processed += len(chunk)
		if onProgress != nil {
			percent := 0
			if summary.Total > 0 {
				percent = summary.Processed * 100 / summary.Total
			}
			onProgress(summary.Processed, percent)
		}
		runtime.Gosched()
	}
	return nil
}
