package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"zentra/internal/gateway/entity"
)

const defaultCacheSize = 1024

// PostgresStore keeps each user document in a JSONB column. Field-level
// updates are single statements, so concurrent writers to different fields
// or different saved-card keys never overwrite each other.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error

	// raw documents; every write invalidates.
	cache *docCache
}

func NewPostgresStore(dsn string, cacheSize int) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s, err := NewPostgresStoreFromDB(db, cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresStoreFromDB(db *sql.DB, cacheSize int) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := newDocCache(cacheSize)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, cache: cache}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS user_documents (
    user_id TEXT PRIMARY KEY,
    doc JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Get(ctx context.Context, userID entity.UserID) (entity.UserRecord, error) {
	if userID.IsZero() {
		return entity.UserRecord{}, fmt.Errorf("user_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return entity.UserRecord{}, err
	}
	if raw, ok := s.cache.get(userID); ok {
		return decodeRecord(userID, raw)
	}

	gen := s.cache.beginRead(userID)
	raw, err := s.load(ctx, userID)
	s.cache.fill(userID, gen, raw)
	if err != nil {
		return entity.UserRecord{}, err
	}
	return decodeRecord(userID, raw)
}

func (s *PostgresStore) load(ctx context.Context, userID entity.UserID) ([]byte, error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT doc, updated_at FROM user_documents WHERE user_id=$1`, userID.String(),
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return withUpdatedAt(raw, updatedAt)
}

func (s *PostgresStore) UpsertAnswers(ctx context.Context, userID entity.UserID, answers entity.Answers, metadata map[string]any) (bool, error) {
	fields, err := answersFields(answers, metadata)
	if err != nil {
		return false, err
	}
	return s.merge(ctx, userID, fields)
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, userID entity.UserID, update entity.ProfileUpdate) (bool, error) {
	return s.merge(ctx, userID, update.Fields())
}

func (s *PostgresStore) SetRecommendations(ctx context.Context, userID entity.UserID, recs []entity.CardRecommendation) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	_, err = s.merge(ctx, userID, map[string]json.RawMessage{"recommendations": raw})
	return err
}

func (s *PostgresStore) SetCardPlan(ctx context.Context, userID entity.UserID, cardID string, plan entity.SavedCardPlan) error {
	if userID.IsZero() {
		return fmt.Errorf("user_id is required")
	}
	if cardID == "" {
		return fmt.Errorf("card_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	defer s.cache.invalidate(userID)
	_, err = s.db.ExecContext(ctx, `
INSERT INTO user_documents (user_id, doc, updated_at)
VALUES ($1, jsonb_build_object('saved_card_plans', jsonb_build_object($2::text, $3::jsonb)), $4)
ON CONFLICT (user_id)
DO UPDATE SET
    doc = jsonb_set(
        user_documents.doc,
        '{saved_card_plans}',
        CASE WHEN jsonb_typeof(user_documents.doc->'saved_card_plans') = 'object'
             THEN user_documents.doc->'saved_card_plans'
             ELSE '{}'::jsonb END || jsonb_build_object($2::text, $3::jsonb),
        true),
    updated_at = EXCLUDED.updated_at
`, userID.String(), cardID, string(raw), time.Now())
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.cache.purge()
	return s.db.Close()
}

// merge sets top-level fields with jsonb concatenation. RETURNING xmax = 0
// is true only for freshly inserted rows.
func (s *PostgresStore) merge(ctx context.Context, userID entity.UserID, fields map[string]json.RawMessage) (bool, error) {
	if userID.IsZero() {
		return false, fmt.Errorf("user_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return false, err
	}
	defer s.cache.invalidate(userID)
	var inserted bool
	err = s.db.QueryRowContext(ctx, `
INSERT INTO user_documents (user_id, doc, updated_at)
VALUES ($1, $2::jsonb, $3)
ON CONFLICT (user_id)
DO UPDATE SET doc = user_documents.doc || EXCLUDED.doc, updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0)
`, userID.String(), string(raw), time.Now()).Scan(&inserted)
	return inserted, err
}

func withUpdatedAt(doc []byte, at time.Time) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("decode user document: %w", err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	ts, err := json.Marshal(at.UTC())
	if err != nil {
		return nil, err
	}
	fields["updated_at"] = ts
	return json.Marshal(fields)
}
