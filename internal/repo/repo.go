package repo

import (
	"context"
	"database/sql"

	"SSPLab/internal/stats"
)

// Repository is the persistence surface of the study: reviewer accounts,
// subjects/samples, automated test results and manual refits.
type Repository interface {
	CreateUser(ctx context.Context, login, email, password string) (int, error)
	GetByLogin(ctx context.Context, login string) (int, string, error)
	GetProfile(ctx context.Context, userID int) (Profile, error)
	UpdateProfile(ctx context.Context, userID int, login, description string) error

	SaveRun(ctx context.Context, records []stats.SampleRecord) error
	SaveManualResult(ctx context.Context, mr ManualResult) (int, error)
	ListManualResults(ctx context.Context, filename string) ([]ManualResult, error)
}

// Profile is a reviewer account as shown in the review UI.
type Profile struct {
	ID          int    `json:"id"`
	Login       string `json:"login"`
	Email       string `json:"email"`
	Description string `json:"description"`
}

// ManualResult is a reviewer's hand-picked linear region for one sample.
type ManualResult struct {
	ID        int     `json:"id"`
	Filename  string  `json:"filename"`
	SampleKey string  `json:"sample_key"`
	SubjectID string  `json:"subject_id"`
	Condition string  `json:"condition"`
	Subgroup  string  `json:"subgroup"`
	Reviewer  string  `json:"reviewer"`
	SessionID string  `json:"session_id"`
	StartIdx  int     `json:"selection_start_idx"`
	EndIdx    int     `json:"selection_end_idx"`
	Stiffness float64 `json:"manual_stiffness_n_mm"`
	R2        float64 `json:"manual_r2"`
	CreatedAt string  `json:"created_at,omitempty"`
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresDB(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	login TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS subjects (
	subject_id TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS samples (
	sample_key TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL REFERENCES subjects(subject_id),
	condition TEXT NOT NULL,
	treatment_group TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS test_results (
	filename TEXT PRIMARY KEY,
	sample_key TEXT REFERENCES samples(sample_key),
	test_date TEXT,
	max_load_n DOUBLE PRECISION,
	stiffness_n_mm DOUBLE PRECISION,
	energy_mj DOUBLE PRECISION,
	r2 DOUBLE PRECISION,
	linear_start_idx INTEGER,
	linear_end_idx INTEGER
);
CREATE TABLE IF NOT EXISTS manual_results (
	id SERIAL PRIMARY KEY,
	filename TEXT NOT NULL,
	sample_key TEXT,
	subject_id TEXT,
	condition TEXT,
	subgroup TEXT,
	reviewer TEXT,
	session_id TEXT,
	selection_start_idx INTEGER NOT NULL,
	selection_end_idx INTEGER NOT NULL,
	manual_stiffness_n_mm DOUBLE PRECISION NOT NULL,
	manual_r2 DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// EnsureSchema creates the study tables when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *PostgresRepository) CreateUser(ctx context.Context, login, email, password string) (int, error) {
	var id int
	query := "INSERT INTO users (login, email, password) VALUES ($1, $2, $3) RETURNING id"
	err := r.db.QueryRowContext(ctx, query, login, email, password).Scan(&id)
	return id, err
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (int, string, error) {
	var id int
	var hash string

	query := "SELECT id, password FROM users WHERE login=$1"

	err := r.db.QueryRowContext(ctx, query, login).Scan(&id, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, "", nil
		}
		return 0, "", err
	}
	return id, hash, nil
}

func (r *PostgresRepository) GetProfile(ctx context.Context, userID int) (Profile, error) {
	var p Profile
	query := "SELECT id, login, email, description FROM users WHERE id=$1"
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.Login, &p.Email, &p.Description)
	return p, err
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID int, login, description string) error {
	query := "UPDATE users SET login=$2, description=$3 WHERE id=$1"
	_, err := r.db.ExecContext(ctx, query, userID, login, description)
	return err
}

// SaveRun persists a full batch in one transaction. Re-analyzed samples
// overwrite their previous rows so the store always mirrors the latest run.
func (r *PostgresRepository) SaveRun(ctx context.Context, records []stats.SampleRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range records {
		sampleKey := rec.SampleID + "_" + rec.Condition

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO subjects (subject_id) VALUES ($1) ON CONFLICT DO NOTHING", rec.SampleID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO samples (sample_key, subject_id, condition, treatment_group)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (sample_key) DO UPDATE SET treatment_group=EXCLUDED.treatment_group`,
			sampleKey, rec.SampleID, rec.Condition, rec.Subgroup); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO test_results
				(filename, sample_key, test_date, max_load_n, stiffness_n_mm, energy_mj, r2, linear_start_idx, linear_end_idx)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (filename) DO UPDATE SET
				test_date=EXCLUDED.test_date,
				max_load_n=EXCLUDED.max_load_n,
				stiffness_n_mm=EXCLUDED.stiffness_n_mm,
				energy_mj=EXCLUDED.energy_mj,
				r2=EXCLUDED.r2,
				linear_start_idx=EXCLUDED.linear_start_idx,
				linear_end_idx=EXCLUDED.linear_end_idx`,
			rec.Filename, sampleKey, rec.TestDate, float64(rec.MaxLoadN), float64(rec.Stiffness),
			float64(rec.EnergyMJ), float64(rec.R2), rec.StartIdx, rec.EndIdx); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) SaveManualResult(ctx context.Context, mr ManualResult) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO manual_results
			(filename, sample_key, subject_id, condition, subgroup, reviewer, session_id,
			 selection_start_idx, selection_end_idx, manual_stiffness_n_mm, manual_r2)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		mr.Filename, mr.SampleKey, mr.SubjectID, mr.Condition, mr.Subgroup,
		mr.Reviewer, mr.SessionID, mr.StartIdx, mr.EndIdx, mr.Stiffness, mr.R2).Scan(&id)
	return id, err
}

// ListManualResults returns saved manual refits, newest first. An empty
// filename lists all of them.
func (r *PostgresRepository) ListManualResults(ctx context.Context, filename string) ([]ManualResult, error) {
	query := `
		SELECT id, filename, sample_key, subject_id, condition, subgroup, reviewer, session_id,
		       selection_start_idx, selection_end_idx, manual_stiffness_n_mm, manual_r2,
		       to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM manual_results`
	args := []any{}
	if filename != "" {
		query += " WHERE filename=$1"
		args = append(args, filename)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ManualResult
	for rows.Next() {
		var mr ManualResult
		if err := rows.Scan(&mr.ID, &mr.Filename, &mr.SampleKey, &mr.SubjectID, &mr.Condition,
			&mr.Subgroup, &mr.Reviewer, &mr.SessionID, &mr.StartIdx, &mr.EndIdx,
			&mr.Stiffness, &mr.R2, &mr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, mr)
	}
	return out, rows.Err()
}
