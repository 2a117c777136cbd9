package mysql

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"unicode/utf8"

	"placereviews/internal/domain"
)

func valStr(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
func valF64(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
func valInt(i int) any {
	if i == 0 {
		return nil
	}
	return i
}

func hashOf(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) SavePlace(ctx context.Context, s domain.PlaceSnapshot) error {
	_, err := r.db.ExecContext(ctx, insertPlaceSQL,
		s.RunID,
		hashOf(s.URL),
		s.URL,
		valStr(s.Info.Name),
		valStr(s.Info.Address),
		valF64(s.Info.Rating),
		valInt(s.Info.ReviewCount),
	)
	return err
}

func (r *Repo) SaveReviews(ctx context.Context, runID, url string, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	urlHash := hashOf(url)
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*8) // 8 params per row
	for i, rv := range rs {
		// Columns (from insertReviewsPrefix):
		// (run_id, url_hash, position, content_hash, author, rating, `text`, date_label)
		values = append(values, "(?,?,?,?,?,?,?,?)")
		args = append(args,
			runID,
			urlHash,
			i,
			hashOf(rv.Name, rv.Text),
			rv.Name,
			rv.Rating,
			rv.Text,
			rv.Date,
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, runID, url, reason string) error {
	if utf8.RuneCountInString(reason) > 512 {
		reason = string([]rune(reason)[:512])
	}
	_, err := r.db.ExecContext(ctx, insertMissSQL, runID, hashOf(url), url, reason)
	return err
}

func (r *Repo) LatestReviews(ctx context.Context, url string, limit int) (domain.ReviewsPage, error) {
	urlHash := hashOf(url)

	var runID string
	if err := r.db.QueryRowContext(ctx, latestRunSQL, urlHash).Scan(&runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ReviewsPage{}, domain.ErrNotFound
		}
		return domain.ReviewsPage{}, err
	}

	rows, err := r.db.QueryContext(ctx, listRunReviewsSQL, runID, urlHash, limit)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	out := domain.ReviewsPage{RunID: runID, URL: url, Items: []domain.Review{}}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.Name, &rv.Rating, &rv.Text, &rv.Date); err != nil {
			return domain.ReviewsPage{}, err
		}
		out.Items = append(out.Items, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}
	return out, nil
}
