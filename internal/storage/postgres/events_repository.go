package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/thaidate"
)

// EventRepository persists event listings keyed by source URL.
type EventRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewEventRepository(pool *pgxpool.Pool, logger zerolog.Logger) *EventRepository {
	return &EventRepository{pool: pool, logger: logger}
}

const upsertEventQuery = `
	INSERT INTO events (
		source_url, title, location, date_text, months, cover_image_url,
		first_scraped_at, last_updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	ON CONFLICT (source_url) DO UPDATE SET
		title = EXCLUDED.title,
		location = EXCLUDED.location,
		date_text = EXCLUDED.date_text,
		months = EXCLUDED.months,
		cover_image_url = EXCLUDED.cover_image_url,
		last_updated_at = now()
`

// Upsert writes one record in a single atomic statement: insert on first
// sight, overwrite scrape fields on re-scrape. first_scraped_at is set only
// on insert; last_updated_at is refreshed either way.
func (r *EventRepository) Upsert(ctx context.Context, rec listings.Listing) error {
	return upsertOne(ctx, r.pool, rec)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertOne(ctx context.Context, db execer, rec listings.Listing) error {
	if rec.SourceURL == "" {
		return fmt.Errorf("listing has no source URL")
	}
	months, err := json.Marshal(rec.Months)
	if err != nil {
		return fmt.Errorf("marshal months: %w", err)
	}
	_, err = db.Exec(ctx, upsertEventQuery,
		rec.SourceURL, rec.Title, rec.Location, rec.DateText, months, rec.CoverImageURL,
	)
	if err != nil {
		return fmt.Errorf("upsert event %q: %w", rec.SourceURL, err)
	}
	return nil
}

// UpsertBatch writes one scraped target's records inside a single
// transaction. Each record runs under its own savepoint so a constraint
// violation on one row is logged and skipped without aborting the batch.
func (r *EventRepository) UpsertBatch(ctx context.Context, records []listings.Listing) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stored := 0
	for _, rec := range records {
		sp, err := tx.Begin(ctx) // savepoint
		if err != nil {
			return stored, fmt.Errorf("begin savepoint: %w", err)
		}
		if err := upsertOne(ctx, sp, rec); err != nil {
			r.logger.Warn().Err(err).Str("source_url", rec.SourceURL).
				Msg("storage: skipping record that failed upsert")
			_ = sp.Rollback(ctx)
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			return stored, fmt.Errorf("commit savepoint: %w", err)
		}
		stored++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert batch: %w", err)
	}
	return stored, nil
}

const selectEventColumns = `
	id, source_url, title, description, location, date_text, time_text,
	months, cover_image_url, latitude, longitude, google_maps_url,
	facebook_url, description_markdown, is_ended, is_fully_scraped,
	first_scraped_at, last_updated_at
`

// GetBySourceURL returns the stored event for a source URL, or
// listings.ErrNotFound.
func (r *EventRepository) GetBySourceURL(ctx context.Context, sourceURL string) (*listings.Event, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+selectEventColumns+` FROM events WHERE source_url = $1`, sourceURL)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listings.ErrNotFound
		}
		return nil, fmt.Errorf("get event %q: %w", sourceURL, err)
	}
	return evt, nil
}

// ListByMonth returns events whose bucket set contains the given month,
// newest first.
func (r *EventRepository) ListByMonth(ctx context.Context, month thaidate.Month, limit, offset int) ([]listings.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectEventColumns+`
		 FROM events
		 WHERE months @> jsonb_build_array($1::text)
		 ORDER BY last_updated_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		string(month), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", month, err)
	}
	defer rows.Close()

	var events []listings.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, *evt)
	}
	return events, rows.Err()
}

// CountEvents returns the total number of stored events.
func (r *EventRepository) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// ListUnenriched returns ids and source URLs of events still awaiting detail
// enrichment, oldest first.
func (r *EventRepository) ListUnenriched(ctx context.Context, limit int) ([]listings.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, source_url FROM events
		 WHERE is_fully_scraped = FALSE AND is_ended = FALSE
		 ORDER BY id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unenriched events: %w", err)
	}
	defer rows.Close()

	var events []listings.Event
	for rows.Next() {
		var evt listings.Event
		if err := rows.Scan(&evt.ID, &evt.SourceURL); err != nil {
			return nil, fmt.Errorf("scan unenriched row: %w", err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// SaveEnrichment stores detail-page fields, replaces the event's image set,
// and marks the event fully scraped, all in one transaction.
func (r *EventRepository) SaveEnrichment(ctx context.Context, eventID int64, e listings.Enrichment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin enrichment: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE events SET
			description = $2,
			description_markdown = $3,
			time_text = $4,
			latitude = $5,
			longitude = $6,
			google_maps_url = $7,
			facebook_url = $8,
			is_fully_scraped = TRUE,
			last_updated_at = now()
		 WHERE id = $1`,
		eventID, e.Description, e.DescriptionMarkdown, e.TimeText,
		e.Latitude, e.Longitude, e.GoogleMapsURL, e.FacebookURL)
	if err != nil {
		return fmt.Errorf("save enrichment for event %d: %w", eventID, err)
	}
	if tag.RowsAffected() == 0 {
		return listings.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM event_images WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("clear event images: %w", err)
	}
	for _, u := range e.ImageURLs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO event_images (event_id, image_url) VALUES ($1, $2)`, eventID, u); err != nil {
			return fmt.Errorf("insert event image: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit enrichment: %w", err)
	}
	return nil
}

// MarkEnded flags every event whose last month bucket is before the current
// month. Returns the number of events flagged.
func (r *EventRepository) MarkEnded(ctx context.Context, current thaidate.Month) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events
		 SET is_ended = TRUE, last_updated_at = now()
		 WHERE is_ended = FALSE
		   AND jsonb_array_length(months) > 0
		   AND (months ->> -1) < $1`,
		string(current))
	if err != nil {
		return 0, fmt.Errorf("mark ended events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*listings.Event, error) {
	var (
		evt       listings.Event
		monthsRaw []byte
	)
	if err := row.Scan(
		&evt.ID, &evt.SourceURL, &evt.Title, &evt.Description, &evt.Location,
		&evt.DateText, &evt.TimeText, &monthsRaw, &evt.CoverImageURL,
		&evt.Latitude, &evt.Longitude, &evt.GoogleMapsURL, &evt.FacebookURL,
		&evt.DescriptionMarkdown, &evt.IsEnded, &evt.IsFullyScraped,
		&evt.FirstScrapedAt, &evt.LastUpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(monthsRaw) > 0 {
		if err := json.Unmarshal(monthsRaw, &evt.Months); err != nil {
			return nil, fmt.Errorf("decode months for %q: %w", evt.SourceURL, err)
		}
	}
	return &evt, nil
}
