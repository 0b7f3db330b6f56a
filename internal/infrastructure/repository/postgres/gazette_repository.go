package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
)

type GazetteRepository struct {
	db *sql.DB
}

func NewGazetteRepository(db *sql.DB) *GazetteRepository {
	return &GazetteRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *GazetteRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across harvester/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2024111301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS gazette_issues (
	id TEXT PRIMARY KEY,
	source_url TEXT NOT NULL UNIQUE,
	availability_date DATE,
	full_text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gazette_issues_availability_date ON gazette_issues(availability_date);

CREATE TABLE IF NOT EXISTS gazette_cases (
	id TEXT PRIMARY KEY,
	issue_id TEXT NOT NULL REFERENCES gazette_issues(id) ON DELETE CASCADE,
	process_number TEXT NOT NULL,
	availability_date DATE,
	authors TEXT,
	lawyers TEXT,
	principal_amount TEXT,
	moratory_interest_amount TEXT,
	attorney_fees_amount TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (issue_id, process_number)
);

CREATE INDEX IF NOT EXISTS idx_gazette_cases_process_number ON gazette_cases(process_number);
CREATE INDEX IF NOT EXISTS idx_gazette_cases_availability_date ON gazette_cases(availability_date);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// StoreIssue inserts the issue and returns its ID. Re-harvesting a document
// already stored by an earlier run returns the existing ID.
func (r *GazetteRepository) StoreIssue(ctx context.Context, issue *domain.GazetteIssue) (string, error) {
	if issue == nil || strings.TrimSpace(issue.SourceURL) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "store issue", fmt.Errorf("source url is required"))
	}

	var id string
	err := r.db.QueryRowContext(ctx, `
INSERT INTO gazette_issues (id, source_url, availability_date, full_text, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (source_url) DO UPDATE SET full_text = EXCLUDED.full_text
RETURNING id
`,
		uuid.NewString(), issue.SourceURL, sqlDate(issue.AvailabilityDate), issue.FullText, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert gazette issue: %w", err)
	}
	return id, nil
}

func (r *GazetteRepository) StoreCase(ctx context.Context, issueID string, record *domain.CaseRecord) error {
	if record == nil || strings.TrimSpace(record.ProcessNumber) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "store case", fmt.Errorf("process number is required"))
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO gazette_cases (
	id, issue_id, process_number, availability_date, authors, lawyers,
	principal_amount, moratory_interest_amount, attorney_fees_amount, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (issue_id, process_number) DO NOTHING
`,
		uuid.NewString(), issueID, record.ProcessNumber, sqlDate(record.AvailabilityDate),
		sqlText(record.Authors), sqlText(record.Lawyers),
		sqlText(record.PrincipalAmount), sqlText(record.MoratoryInterestAmount), sqlText(record.AttorneyFeesAmount),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert gazette case: %w", err)
	}
	return nil
}

// ListCases returns stored cases whose availability date falls in
// [from, to], oldest first.
func (r *GazetteRepository) ListCases(ctx context.Context, from, to domain.Date) ([]domain.CaseRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT process_number, availability_date, authors, lawyers,
	principal_amount, moratory_interest_amount, attorney_fees_amount
FROM gazette_cases
WHERE availability_date BETWEEN $1 AND $2
ORDER BY availability_date, process_number
`, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("query gazette cases: %w", err)
	}
	defer rows.Close()

	var out []domain.CaseRecord
	for rows.Next() {
		var (
			record                                      domain.CaseRecord
			date                                        sql.NullTime
			authors, lawyers, principal, interest, fees sql.NullString
		)
		if err := rows.Scan(&record.ProcessNumber, &date, &authors, &lawyers, &principal, &interest, &fees); err != nil {
			return nil, fmt.Errorf("scan gazette case: %w", err)
		}
		if date.Valid {
			d := domain.Date{Year: date.Time.Year(), Month: date.Time.Month(), Day: date.Time.Day()}
			record.AvailabilityDate = &d
		}
		record.Authors = textPtr(authors)
		record.Lawyers = textPtr(lawyers)
		record.PrincipalAmount = textPtr(principal)
		record.MoratoryInterestAmount = textPtr(interest)
		record.AttorneyFeesAmount = textPtr(fees)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gazette cases: %w", err)
	}
	return out, nil
}

func sqlDate(d *domain.Date) sql.NullTime {
	if d == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time(), Valid: true}
}

func sqlText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func textPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
