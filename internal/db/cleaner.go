package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BlobRemover deletes stored files by key.
type BlobRemover interface {
	Remove(ctx context.Context, key string) error
}

// StartSoftDeleteCleaner purges notes and papers that were soft-deleted more
// than retention ago, removing their stored files first. It runs every
// interval until ctx is cancelled.
func StartSoftDeleteCleaner(
	ctx context.Context,
	db *sql.DB,
	blobs BlobRemover,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				removed, err := purgeDeleted(ctx, db, blobs, cutoff, log)
				if err != nil {
					log.Error("failed to clean soft-deleted records", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("cleaned soft-deleted records", zap.Int64("removed", removed))
				}
			}
		}
	}()
}

// purgeDeleted removes the blobs of expired records, then the records.
// A blob that cannot be removed is logged and left behind; the rows go anyway.
func purgeDeleted(ctx context.Context, db *sql.DB, blobs BlobRemover, cutoff time.Time, log *zap.Logger) (int64, error) {
	keys, err := expiredKeys(ctx, db, cutoff)
	if err != nil {
		return 0, err
	}

	for _, key := range keys {
		if err := blobs.Remove(ctx, key); err != nil {
			log.Warn("failed to remove stored file", zap.String("key", key), zap.Error(err))
		}
	}

	var removed int64
	for _, query := range []string{
		`DELETE FROM notes WHERE deleted_at IS NOT NULL AND deleted_at < $1`,
		`DELETE FROM papers WHERE deleted_at IS NOT NULL AND deleted_at < $1`,
	} {
		res, err := db.ExecContext(ctx, query, cutoff)
		if err != nil {
			return removed, fmt.Errorf("purge: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removed += n
		}
	}
	return removed, nil
}

func expiredKeys(ctx context.Context, db *sql.DB, cutoff time.Time) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT a.storage_key FROM note_attachments a
          JOIN notes n ON n.id = a.note_id
         WHERE n.deleted_at IS NOT NULL AND n.deleted_at < $1
        UNION ALL
        SELECT file_key FROM papers
         WHERE deleted_at IS NOT NULL AND deleted_at < $1
    `, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired files: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
