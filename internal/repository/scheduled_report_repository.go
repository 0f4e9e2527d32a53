package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
)

const scheduledReportColumns = `id, name, description, report_type, parameters, frequency, format, recipients, is_active, next_run_date, last_run_date, created_by, created_at, updated_at`

// ScheduledReportRepository persists scheduled report definitions.
type ScheduledReportRepository struct {
	db *sqlx.DB
}

// NewScheduledReportRepository constructs the repository.
func NewScheduledReportRepository(db *sqlx.DB) *ScheduledReportRepository {
	return &ScheduledReportRepository{db: db}
}

// Create inserts a definition and populates its generated identifier.
func (r *ScheduledReportRepository) Create(ctx context.Context, report *models.ScheduledReport) error {
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = report.CreatedAt
	const query = `INSERT INTO scheduled_reports (name, description, report_type, parameters, frequency, format, recipients, is_active, next_run_date, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`
	row := r.db.QueryRowxContext(ctx, query,
		report.Name,
		report.Description,
		report.ReportType,
		report.Parameters,
		report.Frequency,
		report.Format,
		report.Recipients,
		report.IsActive,
		report.NextRunDate,
		report.CreatedBy,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err := row.Scan(&report.ID); err != nil {
		return fmt.Errorf("create scheduled report: %w", err)
	}
	return nil
}

// GetByID fetches a definition. When owner is set the row must also belong to that user.
func (r *ScheduledReportRepository) GetByID(ctx context.Context, id int64, owner *string) (*models.ScheduledReport, error) {
	query := "SELECT " + scheduledReportColumns + " FROM scheduled_reports WHERE id = $1"
	args := []interface{}{id}
	if owner != nil {
		query += " AND created_by = $2"
		args = append(args, *owner)
	}
	var report models.ScheduledReport
	if err := r.db.GetContext(ctx, &report, query, args...); err != nil {
		return nil, fmt.Errorf("get scheduled report: %w", err)
	}
	return &report, nil
}

// List returns a page of definitions along with the total number of matches.
func (r *ScheduledReportRepository) List(ctx context.Context, filter models.ScheduledReportFilter) ([]models.ScheduledReport, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if filter.ReportType != nil {
		args = append(args, *filter.ReportType)
		conditions = append(conditions, fmt.Sprintf("report_type = $%d", len(args)))
	}
	if filter.Frequency != nil {
		args = append(args, *filter.Frequency)
		conditions = append(conditions, fmt.Sprintf("frequency = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM scheduled_reports"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count scheduled reports: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf("SELECT %s FROM scheduled_reports%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		scheduledReportColumns, where, len(args)-1, len(args))

	var reports []models.ScheduledReport
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list scheduled reports: %w", err)
	}
	return reports, total, nil
}

// ListActive returns all definitions that should hold a trigger.
func (r *ScheduledReportRepository) ListActive(ctx context.Context) ([]models.ScheduledReport, error) {
	query := "SELECT " + scheduledReportColumns + " FROM scheduled_reports WHERE is_active = TRUE ORDER BY id ASC"
	var reports []models.ScheduledReport
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("list active scheduled reports: %w", err)
	}
	return reports, nil
}

// UpdateScheduledReportParams defines the mutable fields of a definition.
type UpdateScheduledReportParams struct {
	Name        *string
	Description *string
	ReportType  *models.ReportType
	Parameters  *models.ReportParameters
	Frequency   *models.ReportFrequency
	Format      *models.ReportFormat
	Recipients  *models.Recipients
	IsActive    *bool
	NextRunDate *time.Time
}

// Empty reports whether no field is set.
func (p UpdateScheduledReportParams) Empty() bool {
	return p.Name == nil && p.Description == nil && p.ReportType == nil && p.Parameters == nil &&
		p.Frequency == nil && p.Format == nil && p.Recipients == nil && p.IsActive == nil && p.NextRunDate == nil
}

// Update applies the provided changes and returns the stored row. Missing or foreign rows yield sql.ErrNoRows.
func (r *ScheduledReportRepository) Update(ctx context.Context, id int64, owner *string, params UpdateScheduledReportParams) (*models.ScheduledReport, error) {
	set := make([]string, 0, 10)
	args := make([]interface{}, 0, 12)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Description != nil {
		add("description", *params.Description)
	}
	if params.ReportType != nil {
		add("report_type", *params.ReportType)
	}
	if params.Parameters != nil {
		add("parameters", *params.Parameters)
	}
	if params.Frequency != nil {
		add("frequency", *params.Frequency)
	}
	if params.Format != nil {
		add("format", *params.Format)
	}
	if params.Recipients != nil {
		add("recipients", *params.Recipients)
	}
	if params.IsActive != nil {
		add("is_active", *params.IsActive)
	}
	if params.NextRunDate != nil {
		add("next_run_date", *params.NextRunDate)
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id, owner)
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE scheduled_reports SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if owner != nil {
		args = append(args, *owner)
		query += fmt.Sprintf(" AND created_by = $%d", len(args))
	}
	query += " RETURNING " + scheduledReportColumns

	var report models.ScheduledReport
	if err := r.db.GetContext(ctx, &report, query, args...); err != nil {
		return nil, fmt.Errorf("update scheduled report: %w", err)
	}
	return &report, nil
}

// UpdateRunDates records the outcome of a successful run.
func (r *ScheduledReportRepository) UpdateRunDates(ctx context.Context, id int64, lastRun, nextRun time.Time) error {
	const query = `UPDATE scheduled_reports SET last_run_date = $1, next_run_date = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, lastRun, nextRun, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update scheduled report run dates: %w", err)
	}
	return nil
}

// Delete removes a definition. Missing or foreign rows yield sql.ErrNoRows.
func (r *ScheduledReportRepository) Delete(ctx context.Context, id int64, owner *string) error {
	query := "DELETE FROM scheduled_reports WHERE id = $1"
	args := []interface{}{id}
	if owner != nil {
		query += " AND created_by = $2"
		args = append(args, *owner)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete scheduled report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scheduled report rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
