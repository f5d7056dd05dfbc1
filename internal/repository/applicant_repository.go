package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gradcafe-backend/internal/model"
)

// ErrUnknownColumn is returned for a distribution over a column that is not
// one of the categorical columns.
var ErrUnknownColumn = errors.New("column is not a categorical column")

// distributionColumns are the columns a Distribution may group by.
var distributionColumns = map[string]bool{
	"status":              true,
	"degree":              true,
	"term":                true,
	"us_or_international": true,
}

// undefinedTable is the SQLSTATE for a relation that does not exist.
const undefinedTable = "42P01"

// TablePlaceholder is replaced by the quoted table name in report queries.
const TablePlaceholder = "{table}"

// ApplicantRepository handles the applicant results table.
type ApplicantRepository struct {
	pool  *pgxpool.Pool
	table string
	name  string

	schemaMu sync.Mutex
	schemaOK bool
}

// NewApplicantRepository creates a repository over the named table. The name
// is quoted as an identifier; it is never interpolated raw.
func NewApplicantRepository(pool *pgxpool.Pool, tableName string) *ApplicantRepository {
	return &ApplicantRepository{
		pool:  pool,
		table: pgx.Identifier{tableName}.Sanitize(),
		name:  tableName,
	}
}

// EnsureSchema creates the table and its url index if absent. Concurrent
// CREATE TABLE IF NOT EXISTS can still collide in Postgres, so calls are
// serialized and a success is remembered.
func (r *ApplicantRepository) EnsureSchema(ctx context.Context) error {
	r.schemaMu.Lock()
	defer r.schemaMu.Unlock()
	if r.schemaOK {
		return nil
	}

	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+r.table+` (
		p_id SERIAL PRIMARY KEY,
		program TEXT,
		comments TEXT,
		date_added DATE,
		url TEXT,
		status TEXT,
		term TEXT,
		us_or_international TEXT,
		gpa FLOAT,
		gre FLOAT,
		gre_v FLOAT,
		gre_aw FLOAT,
		degree TEXT,
		llm_generated_program TEXT,
		llm_generated_university TEXT
	)`)
	if err != nil {
		return fmt.Errorf("create table %s: %w", r.name, err)
	}

	index := pgx.Identifier{r.name + "_url_idx"}.Sanitize()
	if _, err := r.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS `+index+` ON `+r.table+` (url)`); err != nil {
		return fmt.Errorf("create url index: %w", err)
	}
	r.schemaOK = true
	return nil
}

// tableGone clears the remembered schema when err says the table was
// dropped, so the next EnsureSchema recreates it. err is returned as is.
func (r *ApplicantRepository) tableGone(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		r.schemaMu.Lock()
		r.schemaOK = false
		r.schemaMu.Unlock()
	}
	return err
}

// LatestDateAdded returns the newest stored date_added, or nil for an empty table.
func (r *ApplicantRepository) LatestDateAdded(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(date_added) FROM `+r.table).Scan(&latest)
	if err != nil {
		return nil, r.tableGone(err)
	}
	return latest, nil
}

// InsertIfNew inserts rec unless a row with the same url exists. It reports
// whether a row was written. Each call is its own autocommit statement.
func (r *ApplicantRepository) InsertIfNew(ctx context.Context, rec model.AdmissionResult) (bool, error) {
	var dateAdded *time.Time
	if rec.DateAdded != nil {
		t := rec.DateAdded.Time
		dateAdded = &t
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO `+r.table+` (
			program, comments, date_added, url, status, term, us_or_international,
			gpa, gre, gre_v, gre_aw, degree, llm_generated_program, llm_generated_university
		)
		SELECT $1::text, $2::text, $3::date, $4::text, $5::text, $6::text, $7::text,
			$8::float8, $9::float8, $10::float8, $11::float8, $12::text, $13::text, $14::text
		WHERE NOT EXISTS (SELECT 1 FROM `+r.table+` WHERE url = $4::text)`,
		rec.Program, rec.Comments, dateAdded, rec.URL,
		enumText(rec.Status), rec.Term, enumText(rec.Nationality),
		rec.GPA, rec.GRE, rec.GREVerbal, rec.GREAW, enumText(rec.Degree),
		rec.LLMGeneratedProgram, rec.LLMGeneratedUniversity,
	)
	if err != nil {
		return false, r.tableGone(err)
	}
	return tag.RowsAffected() == 1, nil
}

// Count returns the number of stored rows.
func (r *ApplicantRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+r.table).Scan(&n)
	return n, r.tableGone(err)
}

// Distribution counts rows per non-empty value of a categorical column.
func (r *ApplicantRepository) Distribution(ctx context.Context, column string) ([]model.Distribution, error) {
	if !distributionColumns[column] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	col := pgx.Identifier{column}.Sanitize()

	rows, err := r.pool.Query(ctx,
		`SELECT `+col+`, COUNT(*) FROM `+r.table+`
		 WHERE `+col+` IS NOT NULL AND `+col+` <> ''
		 GROUP BY `+col+` ORDER BY COUNT(*) DESC, `+col+` ASC`)
	if err != nil {
		return nil, r.tableGone(err)
	}
	defer rows.Close()

	var dist []model.Distribution
	for rows.Next() {
		var d model.Distribution
		if err := rows.Scan(&d.Value, &d.Count); err != nil {
			return nil, err
		}
		dist = append(dist, d)
	}
	return dist, rows.Err()
}

// QueryValues runs a single-row report query and returns each column as a
// nullable float. TablePlaceholder in query is replaced with the quoted
// table name; every other value must be passed as an argument.
func (r *ApplicantRepository) QueryValues(ctx context.Context, query string, args ...any) ([]*float64, error) {
	rows, err := r.pool.Query(ctx, strings.ReplaceAll(query, TablePlaceholder, r.table), args...)
	if err != nil {
		return nil, r.tableGone(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, r.tableGone(err)
		}
		return nil, pgx.ErrNoRows
	}
	raw, err := rows.Values()
	if err != nil {
		return nil, err
	}

	values := make([]*float64, len(raw))
	for i, v := range raw {
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		values[i] = f
	}
	return values, rows.Err()
}

func toFloat(v any) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil, nil
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case int:
		f = float64(n)
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return nil, fmt.Errorf("unsupported result type %T", v)
	}
	return &f, nil
}

func enumText[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
