// Package leads stores captured leads in SQLite for the admin listing.
package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/markup/internal/markup"
)

const timeLayout = "2006-01-02 15:04:05"

// Lead is one completed wizard submission.
type Lead struct {
	SubmissionID  string
	CreatedAt     time.Time
	Name          string
	Phone         string
	Percentages   markup.Percentages
	SumPercent    float64
	MarkupDivisor float64
	CostBasis     float64
	Price         float64
}

// Store reads and writes the leads table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert records a lead. Inserting the same submission twice is a no-op.
func (s *Store) Insert(ctx context.Context, l Lead) error {
	percentagesJSON, err := json.Marshal(l.Percentages)
	if err != nil {
		return fmt.Errorf("encode lead percentages: %w", err)
	}

	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leads (
			submission_id,
			created_at,
			name,
			phone,
			percentages_json,
			sum_percent,
			markup_divisor,
			cost_basis,
			price
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (submission_id) DO NOTHING
	`, l.SubmissionID, createdAt.UTC().Format(timeLayout), l.Name, l.Phone, string(percentagesJSON),
		l.SumPercent, l.MarkupDivisor, l.CostBasis, l.Price)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// List returns leads newest first. A non-empty query filters by name or phone.
func (s *Store) List(ctx context.Context, query string) ([]Lead, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			submission_id,
			CAST(created_at AS TEXT),
			name,
			phone,
			percentages_json,
			sum_percent,
			markup_divisor,
			cost_basis,
			price
		FROM leads
		WHERE (? = '' OR name LIKE ? OR phone LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		var (
			l               Lead
			createdAt       string
			percentagesJSON string
		)
		if err := rows.Scan(&l.SubmissionID, &createdAt, &l.Name, &l.Phone, &percentagesJSON,
			&l.SumPercent, &l.MarkupDivisor, &l.CostBasis, &l.Price); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.CreatedAt = parseTime(createdAt)
		l.Percentages = decodePercentages(percentagesJSON)
		leads = append(leads, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}

	return leads, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// decodePercentages returns zeros for rows written with malformed JSON
// rather than failing the whole listing.
func decodePercentages(raw string) markup.Percentages {
	var p markup.Percentages
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return markup.Percentages{}
	}
	return p
}
