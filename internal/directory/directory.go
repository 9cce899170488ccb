// Package directory stores physician profiles and answers the identity
// lookups the booking core depends on. All search predicates are
// parameterized; user input never reaches the SQL text.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/telecare/slot-booking/internal/booking"
	"github.com/telecare/slot-booking/internal/timezone"
)

type Physician struct {
	ID          uuid.UUID
	FullName    string
	Country     string
	Zone        string
	Specialties []string
	Languages   []string
	About       string
	CreatedAt   time.Time
}

// SearchFilter narrows a physician listing. Zero-value fields are ignored.
type SearchFilter struct {
	Specialty string
	Language  string
	Country   string
	Search    string // matches name or about text
}

type PgStore struct {
	db booking.DB
}

func NewPgStore(db booking.DB) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Insert(ctx context.Context, p *Physician) error {
	if err := timezone.Validate(p.Zone); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO physicians (id, full_name, country, zone, specialties, languages, about, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.FullName, p.Country, p.Zone, p.Specialties, p.Languages, p.About, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert physician: %w", err)
	}
	return nil
}

func (s *PgStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM physicians WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check physician: %w", err)
	}
	return exists, nil
}

func (s *PgStore) NameOf(ctx context.Context, id uuid.UUID) (string, error) {
	var name string
	err := s.db.QueryRow(ctx, `
		SELECT full_name FROM physicians WHERE id = $1
	`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", booking.ErrPhysicianNotFound
		}
		return "", fmt.Errorf("resolve physician name: %w", err)
	}
	return name, nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Physician, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, full_name, country, zone, specialties, languages, about, created_at
		FROM physicians
		WHERE id = $1
	`, id)
	return scanPhysician(row)
}

// Search lists physicians matching the filter, ascending by name. Every
// predicate is bound through a placeholder.
func (s *PgStore) Search(ctx context.Context, f SearchFilter) ([]Physician, error) {
	query := `
		SELECT id, full_name, country, zone, specialties, languages, about, created_at
		FROM physicians
	`
	var clauses []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Specialty != "" {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(specialties) sp WHERE LOWER(sp) LIKE %s)",
			arg("%"+strings.ToLower(f.Specialty)+"%")))
	}
	if f.Language != "" {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(languages) lang WHERE LOWER(lang) LIKE %s)",
			arg("%"+strings.ToLower(f.Language)+"%")))
	}
	if f.Country != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(country) LIKE %s",
			arg("%"+strings.ToLower(f.Country)+"%")))
	}
	if f.Search != "" {
		p := arg("%" + strings.ToLower(f.Search) + "%")
		clauses = append(clauses, fmt.Sprintf("(LOWER(full_name) LIKE %s OR LOWER(about) LIKE %s)", p, p))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY full_name ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search physicians: %w", err)
	}
	defer rows.Close()

	var result []Physician
	for rows.Next() {
		p, err := scanPhysician(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func scanPhysician(row pgx.Row) (*Physician, error) {
	var p Physician
	var about *string

	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.Country,
		&p.Zone,
		&p.Specialties,
		&p.Languages,
		&about,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrPhysicianNotFound
		}
		return nil, err
	}

	if about != nil {
		p.About = *about
	}
	return &p, nil
}
