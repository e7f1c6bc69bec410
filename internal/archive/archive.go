// Package archive provides an optional PostgreSQL-backed store for merged
// session transcripts. When a DSN is configured, every pipeline run persists
// its merged segments so past sessions stay queryable after the working
// directory is cleaned up.
//
// The schema is created on first connect ([Migrate] runs CREATE TABLE IF NOT
// EXISTS) and a GIN full-text index over the utterance text supports
// [Store.Search] for "where did the party meet the blacksmith" style lookups.
package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/philote/TTRPG-session-notes/internal/segment"
)

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcript_segments (
    id        BIGSERIAL    PRIMARY KEY,
    session   TEXT         NOT NULL,
    part      TEXT         NOT NULL DEFAULT '',
    position  INT          NOT NULL,
    start_ms  BIGINT       NOT NULL,
    end_ms    BIGINT       NOT NULL,
    speaker   TEXT         NOT NULL,
    text      TEXT         NOT NULL,
    stored_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcript_segments_session
    ON transcript_segments (session, part, position);

CREATE INDEX IF NOT EXISTS idx_transcript_segments_fts
    ON transcript_segments USING GIN (to_tsvector('english', text));
`

// Store is a PostgreSQL-backed transcript archive holding a single
// [pgxpool.Pool]. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Entry is one archived utterance together with its session coordinates.
type Entry struct {
	Session  string
	Part     string
	Position int
	Segment  segment.Segment
}

// NewStore connects to the PostgreSQL database at dsn, verifies the
// connection, and runs [Migrate] so the schema is in place before the first
// write.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("archive: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate creates or ensures the transcript tables and indexes exist. It is
// idempotent and safe to call on every run.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlTranscripts); err != nil {
		return fmt.Errorf("archive migrate: %w", err)
	}
	return nil
}

// WriteTranscript replaces the archived transcript for (session, part) with
// segs, preserving segment order via the position column. Replacement and
// insert happen in one transaction so a failed run never leaves a partial
// transcript behind.
func (s *Store) WriteTranscript(ctx context.Context, session, part string, segs []segment.Segment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const del = `DELETE FROM transcript_segments WHERE session = $1 AND part = $2`
	if _, err := tx.Exec(ctx, del, session, part); err != nil {
		return fmt.Errorf("archive: clear previous transcript: %w", err)
	}

	const ins = `
		INSERT INTO transcript_segments
		    (session, part, position, start_ms, end_ms, speaker, text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for i, seg := range segs {
		batch.Queue(ins, session, part, i, seg.StartMS, seg.EndMS, seg.Speaker, seg.Text)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("archive: insert segments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// LoadTranscript returns the archived transcript for (session, part) in
// stored order. A missing transcript yields an empty slice, not an error.
func (s *Store) LoadTranscript(ctx context.Context, session, part string) ([]segment.Segment, error) {
	const q = `
		SELECT start_ms, end_ms, speaker, text
		FROM   transcript_segments
		WHERE  session = $1 AND part = $2
		ORDER  BY position`

	rows, err := s.pool.Query(ctx, q, session, part)
	if err != nil {
		return nil, fmt.Errorf("archive: load transcript: %w", err)
	}

	segs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (segment.Segment, error) {
		var seg segment.Segment
		err := row.Scan(&seg.StartMS, &seg.EndMS, &seg.Speaker, &seg.Text)
		return seg, err
	})
	if err != nil {
		return nil, fmt.Errorf("archive: scan transcript: %w", err)
	}
	return segs, nil
}

// Search performs a full-text search over all archived utterances, newest
// sessions first. limit bounds the result count; zero or less means no limit.
//
// The query is passed to plainto_tsquery so no special operator syntax is
// required.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	q := `
		SELECT session, part, position, start_ms, end_ms, speaker, text
		FROM   transcript_segments
		WHERE  to_tsvector('english', text) @@ plainto_tsquery('english', $1)
		ORDER  BY stored_at DESC, position`

	args := []any{query}
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: search: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(
			&e.Session,
			&e.Part,
			&e.Position,
			&e.Segment.StartMS,
			&e.Segment.EndMS,
			&e.Segment.Speaker,
			&e.Segment.Text,
		)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("archive: scan search results: %w", err)
	}
	return entries, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
