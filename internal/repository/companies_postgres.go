package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pygmalion/meettodo-back/internal/domain"
)

// PostgresCompaniesRepository keeps one row per company with the stage list
// embedded as a JSONB document.
type PostgresCompaniesRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCompaniesRepository(ctx context.Context, databaseURL string) (*PostgresCompaniesRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresCompaniesRepository{pool: pool}, nil
}

func (r *PostgresCompaniesRepository) Close() {
	r.pool.Close()
}

func (r *PostgresCompaniesRepository) CreateCompany(ctx context.Context, company *domain.Company) error {
	stages, err := encodeStages(company.Stages)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO companies (
			id,
			name,
			icon,
			icon_data,
			stages,
			current_stage_label,
			overall_status,
			next_action_date,
			pinned,
			ts,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		company.ID,
		company.Name,
		company.Icon,
		company.IconData,
		stages,
		company.CurrentStageLabel,
		string(company.OverallStatus),
		company.NextActionDate,
		company.Pinned,
		company.Timestamp,
		company.CreatedAt,
		company.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (r *PostgresCompaniesRepository) UpdateCompany(ctx context.Context, company *domain.Company) error {
	stages, err := encodeStages(company.Stages)
	if err != nil {
		return err
	}

	command, err := r.pool.Exec(ctx, `
		UPDATE companies
		SET name = $2,
			icon = $3,
			icon_data = $4,
			stages = $5,
			current_stage_label = $6,
			overall_status = $7,
			next_action_date = $8,
			pinned = $9,
			updated_at = $10
		WHERE id = $1
	`,
		company.ID,
		company.Name,
		company.Icon,
		company.IconData,
		stages,
		company.CurrentStageLabel,
		string(company.OverallStatus),
		company.NextActionDate,
		company.Pinned,
		company.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresCompaniesRepository) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, icon, icon_data, stages, current_stage_label, overall_status, next_action_date, pinned, ts, created_at, updated_at
		FROM companies
		WHERE id = $1
	`, companyID)

	company, err := scanCompany(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query company: %w", err)
	}
	return company, nil
}

func (r *PostgresCompaniesRepository) ListCompanies(ctx context.Context) ([]*domain.Company, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, icon, icon_data, stages, current_stage_label, overall_status, next_action_date, pinned, ts, created_at, updated_at
		FROM companies
		ORDER BY pinned DESC, ts DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]*domain.Company, 0)
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, company)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate companies: %w", rows.Err())
	}
	return companies, nil
}

func (r *PostgresCompaniesRepository) DeleteCompany(ctx context.Context, companyID string) error {
	command, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, companyID)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeStages(stages []domain.StageRecord) ([]byte, error) {
	encoded, err := json.Marshal(stages)
	if err != nil {
		return nil, fmt.Errorf("encode stages: %w", err)
	}
	return encoded, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*domain.Company, error) {
	var (
		company        domain.Company
		stagesData     []byte
		overallStatus  string
		nextActionDate *time.Time
	)

	err := row.Scan(
		&company.ID,
		&company.Name,
		&company.Icon,
		&company.IconData,
		&stagesData,
		&company.CurrentStageLabel,
		&overallStatus,
		&nextActionDate,
		&company.Pinned,
		&company.Timestamp,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// A stage document that no longer decodes is a corruption we surface,
	// not a state we silently reset.
	if len(stagesData) > 0 {
		if err := json.Unmarshal(stagesData, &company.Stages); err != nil {
			return nil, fmt.Errorf("decode stages for company %s: %w", company.ID, err)
		}
	}
	if company.Stages == nil {
		company.Stages = []domain.StageRecord{}
	}
	company.OverallStatus = domain.OverallStatus(overallStatus)
	company.NextActionDate = nextActionDate
	return &company, nil
}
