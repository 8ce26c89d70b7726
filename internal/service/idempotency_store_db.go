package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
)

const (
	idempotencyCleanupBatch = 500
	maxIdempotencyRetries   = 3
)

// errRecordVanished means the row that blocked our insert was removed
// (abandoned or swept) before we could lock it. Begin starts over.
var errRecordVanished = errors.New("idempotency record vanished")

// DBIdempotencyStore keeps idempotency records in the main database. Begin
// claims a key with an insert that ignores conflicts, then locks whichever
// row owns the key, so two requests with one key cannot both see "new".
type DBIdempotencyStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBIdempotencyStore(db *gorm.DB) *DBIdempotencyStore {
	return &DBIdempotencyStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *DBIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	var (
		res IdempotencyBeginResult
		err error
	)
	for attempt := 0; attempt <= maxIdempotencyRetries; attempt++ {
		res, err = s.claim(ctx, scope, key, fingerprint, ttl)
		if !errors.Is(err, errRecordVanished) {
			break
		}
	}
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "idempotency_record", "begin", "error")
		return IdempotencyBeginResult{}, err
	}
	observability.RecordRepositoryOperation(ctx, "idempotency_record", "begin", string(res.State))
	return res, nil
}

func (s *DBIdempotencyStore) claim(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	now := s.now()
	var out IdempotencyBeginResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh := domain.IdempotencyRecord{
			Scope:           scope,
			IdempotencyKey:  key,
			FingerprintHash: fingerprint,
			Status:          string(IdempotencyStateNew),
			ExpiresAt:       now.Add(ttl),
		}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 1 {
			out.State = IdempotencyStateNew
			return nil
		}

		var rec domain.IdempotencyRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("scope = ? AND idempotency_key = ?", scope, key).
			Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errRecordVanished
		}
		if err != nil {
			return err
		}

		if !rec.ExpiresAt.After(now) {
			// An expired record is reclaimed in place by the new request.
			return tx.Model(&rec).Updates(map[string]any{
				"fingerprint_hash": fingerprint,
				"status":           string(IdempotencyStateNew),
				"response_status":  0,
				"response_body":    nil,
				"content_type":     "",
				"expires_at":       now.Add(ttl),
			}).Error
		}
		out = stateOf(rec, fingerprint)
		return nil
	})
	if err != nil {
		return IdempotencyBeginResult{}, err
	}
	if out.State == "" {
		out.State = IdempotencyStateNew
	}
	return out, nil
}

// stateOf classifies a live record against the caller's fingerprint.
func stateOf(rec domain.IdempotencyRecord, fingerprint string) IdempotencyBeginResult {
	switch {
	case rec.FingerprintHash != fingerprint:
		return IdempotencyBeginResult{State: IdempotencyStateConflict}
	case rec.Status != idempotencyStatusCompleted:
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}
	}
	return IdempotencyBeginResult{
		State: IdempotencyStateReplay,
		Cached: &CachedHTTPResponse{
			StatusCode:  rec.ResponseStatus,
			ContentType: rec.ContentType,
			Body:        append([]byte(nil), rec.ResponseBody...),
		},
	}
}

func (s *DBIdempotencyStore) pending(ctx context.Context, scope, key, fingerprint string) *gorm.DB {
	return s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
		Where("scope = ? AND idempotency_key = ? AND fingerprint_hash = ?", scope, key, fingerprint).
		Where("status <> ?", idempotencyStatusCompleted)
}

func (s *DBIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	return s.pending(ctx, scope, key, fingerprint).Updates(map[string]any{
		"status":          idempotencyStatusCompleted,
		"response_status": response.StatusCode,
		"response_body":   response.Body,
		"content_type":    response.ContentType,
		"expires_at":      s.now().Add(ttl),
	}).Error
}

// Abandon drops an unfinished record so a request that failed server side
// can be retried with the same key.
func (s *DBIdempotencyStore) Abandon(ctx context.Context, scope, key, fingerprint string) error {
	return s.pending(ctx, scope, key, fingerprint).Delete(&domain.IdempotencyRecord{}).Error
}

// CleanupExpired removes at most batchSize expired records, oldest first.
func (s *DBIdempotencyStore) CleanupExpired(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = idempotencyCleanupBatch
	}
	db := s.db.WithContext(ctx)
	expired := db.Model(&domain.IdempotencyRecord{}).
		Select("id").
		Where("expires_at <= ?", now.UTC()).
		Order("id ASC").
		Limit(batchSize)
	res := db.Where("id IN (?)", expired).Delete(&domain.IdempotencyRecord{})
	if res.Error != nil {
		observability.RecordIdempotencyCleanupRun(ctx, "error")
		return 0, res.Error
	}
	observability.RecordIdempotencyCleanupRun(ctx, "success")
	observability.RecordIdempotencyCleanupDeletedRows(ctx, res.RowsAffected)
	return res.RowsAffected, nil
}

func (s *DBIdempotencyStore) RunCleanupLoop(ctx context.Context, interval time.Duration, batchSize int, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		deleted, err := s.CleanupExpired(ctx, s.now(), batchSize)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "idempotency cleanup failed", "error", err)
		case deleted > 0:
			logger.InfoContext(ctx, "idempotency cleanup removed expired records", "deleted", deleted)
		}
	}
}
