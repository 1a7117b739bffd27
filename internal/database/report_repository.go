package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// ErrReportNotFound is returned when no report row matches.
var ErrReportNotFound = domain.ErrReportNotFound

// ReportRepository stores terminal reports as JSONB alongside the columns
// used for listing.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ReportSummary is one row of a report listing.
type ReportSummary struct {
	ID                 string     `db:"id"                   json:"id"`
	Domain             string     `db:"domain"               json:"domain"`
	Status             string     `db:"status"               json:"status"`
	TotalRevenueImpact float64    `db:"total_revenue_impact" json:"total_revenue_impact"`
	IssueCount         int        `db:"issue_count"          json:"issue_count"`
	StartedAt          time.Time  `db:"started_at"           json:"started_at"`
	CompletedAt        *time.Time `db:"completed_at"         json:"completed_at,omitempty"`
}

// SaveReport upserts report. Saving the same id twice keeps the newer copy.
func (r *ReportRepository) SaveReport(ctx context.Context, report *domain.AnalysisReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", report.ID, err)
	}

	categories := make([]string, 0, len(report.PerCategoryScores))
	for c := range report.PerCategoryScores {
		categories = append(categories, c)
	}

	query := `
		INSERT INTO analysis_reports (
			id, domain, conversation_id, status, started_at, completed_at,
			duration_seconds, total_revenue_impact, issue_count, categories, report
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			duration_seconds = EXCLUDED.duration_seconds,
			total_revenue_impact = EXCLUDED.total_revenue_impact,
			issue_count = EXCLUDED.issue_count,
			categories = EXCLUDED.categories,
			report = EXCLUDED.report,
			updated_at = NOW()
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		report.ID,
		report.Domain,
		report.ConversationID,
		string(report.Status),
		report.StartedAt,
		report.CompletedAt,
		report.DurationSeconds,
		report.TotalRevenueImpact,
		len(report.IssuesFound),
		pq.Array(categories),
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ID, err)
	}

	return nil
}

// GetReport loads a report by id.
func (r *ReportRepository) GetReport(ctx context.Context, id string) (*domain.AnalysisReport, error) {
	var payload []byte
	query := `SELECT report FROM analysis_reports WHERE id = $1`

	if err := r.db.QueryRowContext(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	var report domain.AnalysisReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}

	return &report, nil
}

// LatestForDomain returns the newest report for domain.
func (r *ReportRepository) LatestForDomain(ctx context.Context, host string) (*domain.AnalysisReport, error) {
	var payload []byte
	query := `
		SELECT report FROM analysis_reports
		WHERE domain = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	if err := r.db.QueryRowContext(ctx, query, host).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: domain %s", ErrReportNotFound, host)
		}
		return nil, fmt.Errorf("failed to get latest report for %s: %w", host, err)
	}

	var report domain.AnalysisReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report for %s: %w", host, err)
	}

	return &report, nil
}

// ListRecent returns summaries of the newest reports, newest first.
func (r *ReportRepository) ListRecent(ctx context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, domain, status, total_revenue_impact, issue_count, started_at, completed_at
		FROM analysis_reports
		ORDER BY started_at DESC
		LIMIT $1
	`

	var rows []ReportSummary
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return rows, nil
}
