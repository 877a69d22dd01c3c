package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sqlc-dev/pqtype"

	"sniper/internal/model"
)

// Store wraps access to the analyses table. All operations here are
// best-effort collaborators of the pipeline: callers log failures instead
// of surfacing them.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// SaveAnalysis appends one analysis row. The raw partial-extraction
// snapshot is kept as jsonb next to the flattened display columns so the
// original optionality survives the empty-string collapse.
func (s *Store) SaveAnalysis(ctx context.Context, a *model.Analysis, extracted model.Product) error {
	var raw pqtype.NullRawMessage
	if !extracted.IsEmpty() {
		if payload, err := json.Marshal(extracted); err == nil {
			raw = pqtype.NullRawMessage{RawMessage: payload, Valid: true}
		}
	}

	id := a.ID
	if id == "" {
		id = uuid.New().String()
		a.ID = id
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO analyses (
			id, user_id, url, domain, score, verdict, reason,
			title, image_url, price, currency, rating, review_count,
			extracted, page_markdown
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		id,
		nullString(a.UserID),
		a.URL,
		nullString(a.Domain),
		a.Score,
		a.Verdict,
		a.Reason,
		nullString(a.Title),
		nullString(a.ImageURL),
		nullString(a.Price),
		nullString(a.Currency),
		nullString(a.Rating),
		nullString(a.ReviewCount),
		raw,
		nullString(a.PageMarkdown),
	)
	return err
}

// CountAnalysesToday counts a user's analyses in the current local day,
// [localMidnight, nextLocalMidnight). The caller treats errors as "no
// limit reached"; the quota is advisory.
func (s *Store) CountAnalysesToday(ctx context.Context, userID string) (int, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM analyses
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`,
		userID, dayStart, dayEnd,
	).Scan(&count)
	return count, err
}

// ListRecentAnalyses returns a user's analyses newest first.
func (s *Store) ListRecentAnalyses(ctx context.Context, userID string, limit int) ([]model.Analysis, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, COALESCE(user_id,''), url, COALESCE(domain,''),
		       score, verdict, reason,
		       COALESCE(title,''), COALESCE(image_url,''), COALESCE(price,''),
		       COALESCE(currency,''), COALESCE(rating,''), COALESCE(review_count,''),
		       created_at
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Analysis, 0, limit)
	for rows.Next() {
		var a model.Analysis
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.URL, &a.Domain,
			&a.Score, &a.Verdict, &a.Reason,
			&a.Title, &a.ImageURL, &a.Price,
			&a.Currency, &a.Rating, &a.ReviewCount,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteExpiredAnalyses removes rows older than the cutoff and reports
// how many were deleted.
func (s *Store) DeleteExpiredAnalyses(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM analyses WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
