package cloud

import (
	"context"
	"time"

	"fleettrack/internal/config"
	"fleettrack/internal/storage"
)

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
}

// ProgressFunc reports one pushed batch: the table it belongs to and
// how many of its rows have been sent so far.
type ProgressFunc func(table string, pushed, total int)

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg}
}

// PushAll uploads every data table in batches and records the push time.
func (s *SyncService) PushAll(ctx context.Context, onProgress ProgressFunc) (int, error) {
	total := 0
	for _, table := range storage.DataTables {
		rows, err := s.db.TableRows(table)
		if err != nil {
			return total, err
		}
		batch := s.cfg.CloudPushBatch
		if batch <= 0 {
			batch = 500
		}
		for start := 0; start < len(rows); start += batch {
			end := start + batch
			if end > len(rows) {
				end = len(rows)
			}
			if err := s.client.PushRows(ctx, table, rows[start:end]); err != nil {
				return total, err
			}
			total += end - start
			if onProgress != nil {
				onProgress(table, end, len(rows))
			}
		}
	}
	_ = s.db.SetMetadata("cloud.last_push", time.Now().UTC().Format(time.RFC3339))
	return total, nil
}
