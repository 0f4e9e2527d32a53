package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
	"github.com/noah-isme/sma-report-scheduler/pkg/export"
)

// ReportDataFilter bounds the rows aggregated into a report.
type ReportDataFilter struct {
	StartDate time.Time
	EndDate   time.Time
	TermID    string
	ClassID   string
}

// Every query takes the date range as $1/$2 and optional term/class filters as $3/$4 ('' disables them).
var reportDataQueries = map[models.ReportType]string{
	models.ReportTypeAttendance: `SELECT c.name AS class_name,
    COUNT(*) AS total_records,
    COUNT(*) FILTER (WHERE da.status = 'H') AS present_count,
    COUNT(*) FILTER (WHERE da.status = 'S') AS sick_count,
    COUNT(*) FILTER (WHERE da.status = 'I') AS excused_count,
    COUNT(*) FILTER (WHERE da.status = 'A') AS absent_count,
    ROUND(100.0 * COUNT(*) FILTER (WHERE da.status = 'H') / NULLIF(COUNT(*), 0), 2) AS attendance_percentage
FROM daily_attendance da
JOIN enrollments e ON e.id = da.enrollment_id
LEFT JOIN classes c ON c.id = e.class_id
WHERE da.date BETWEEN $1 AND $2
  AND ($3 = '' OR e.term_id = $3)
  AND ($4 = '' OR e.class_id = $4)
GROUP BY c.name
ORDER BY c.name`,
	models.ReportTypeAcademic: `SELECT sub.name AS subject_name,
    COUNT(DISTINCT g.enrollment_id) AS student_count,
    ROUND(AVG(g.grade_value)::numeric, 2) AS average_score,
    MIN(g.grade_value) AS lowest_score,
    MAX(g.grade_value) AS highest_score
FROM grades g
JOIN enrollments e ON e.id = g.enrollment_id
JOIN subjects sub ON sub.id = g.subject_id
WHERE g.updated_at::date BETWEEN $1 AND $2
  AND ($3 = '' OR e.term_id = $3)
  AND ($4 = '' OR e.class_id = $4)
GROUP BY sub.name
ORDER BY sub.name`,
	models.ReportTypeFinancial: `SELECT fp.category AS category,
    COUNT(*) AS transactions,
    COALESCE(SUM(fp.amount), 0) AS total_amount,
    COALESCE(SUM(fp.amount) FILTER (WHERE fp.status = 'PAID'), 0) AS paid_amount,
    COALESCE(SUM(fp.amount) FILTER (WHERE fp.status <> 'PAID'), 0) AS outstanding_amount
FROM fee_payments fp
LEFT JOIN enrollments e ON e.student_id = fp.student_id AND ($3 = '' OR e.term_id = $3)
WHERE fp.due_date BETWEEN $1 AND $2
  AND ($4 = '' OR e.class_id = $4)
GROUP BY fp.category
ORDER BY fp.category`,
	models.ReportTypeEnrollment: `SELECT c.name AS class_name,
    t.name AS term_name,
    COUNT(*) FILTER (WHERE e.status = 'ACTIVE') AS active_students,
    COUNT(*) FILTER (WHERE e.joined_at::date BETWEEN $1 AND $2) AS new_enrollments,
    COUNT(*) FILTER (WHERE e.left_at::date BETWEEN $1 AND $2) AS withdrawals
FROM enrollments e
LEFT JOIN classes c ON c.id = e.class_id
LEFT JOIN terms t ON t.id = e.term_id
WHERE ($3 = '' OR e.term_id = $3)
  AND ($4 = '' OR e.class_id = $4)
GROUP BY c.name, t.name
ORDER BY c.name, t.name`,
	models.ReportTypeTeacherWorkload: `SELECT tc.full_name AS teacher_name,
    COUNT(DISTINCT ta.class_id) AS classes,
    COUNT(DISTINCT ta.subject_id) AS subjects,
    COUNT(*) AS assignments,
    COUNT(*) FILTER (WHERE ta.created_at::date BETWEEN $1 AND $2) AS new_assignments
FROM teacher_assignments ta
JOIN teachers tc ON tc.id = ta.teacher_id
WHERE ta.created_at::date <= $2
  AND ($3 = '' OR ta.term_id = $3)
  AND ($4 = '' OR ta.class_id = $4)
GROUP BY tc.full_name
ORDER BY assignments DESC, tc.full_name`,
	models.ReportTypeClassPerformance: `SELECT c.name AS class_name,
    COUNT(DISTINCT e.student_id) AS student_count,
    ROUND(AVG(g.grade_value)::numeric, 2) AS average_score,
    ROUND(100.0 * COUNT(*) FILTER (WHERE g.grade_value >= 75) / NULLIF(COUNT(g.id), 0), 2) AS pass_percentage
FROM enrollments e
JOIN classes c ON c.id = e.class_id
LEFT JOIN grades g ON g.enrollment_id = e.id AND g.updated_at::date BETWEEN $1 AND $2
WHERE ($3 = '' OR e.term_id = $3)
  AND ($4 = '' OR e.class_id = $4)
GROUP BY c.name
ORDER BY average_score DESC NULLS LAST, c.name`,
	models.ReportTypeFeeCollection: `SELECT fp.due_date AS due_date,
    COUNT(*) AS invoices,
    COALESCE(SUM(fp.amount), 0) AS billed_amount,
    COALESCE(SUM(fp.amount) FILTER (WHERE fp.status = 'PAID'), 0) AS collected_amount,
    ROUND(100.0 * COUNT(*) FILTER (WHERE fp.status = 'PAID') / NULLIF(COUNT(*), 0), 2) AS collection_percentage
FROM fee_payments fp
LEFT JOIN enrollments e ON e.student_id = fp.student_id AND ($3 = '' OR e.term_id = $3)
WHERE fp.due_date BETWEEN $1 AND $2
  AND ($4 = '' OR e.class_id = $4)
GROUP BY fp.due_date
ORDER BY fp.due_date`,
	models.ReportTypeStudentProgress: `SELECT s.nis AS nis,
    s.full_name AS student_name,
    c.name AS class_name,
    ROUND(AVG(g.grade_value)::numeric, 2) AS average_score,
    ROUND(100.0 * COUNT(da.id) FILTER (WHERE da.status = 'H') / NULLIF(COUNT(da.id), 0), 2) AS attendance_percentage
FROM enrollments e
JOIN students s ON s.id = e.student_id
LEFT JOIN classes c ON c.id = e.class_id
LEFT JOIN grades g ON g.enrollment_id = e.id AND g.updated_at::date BETWEEN $1 AND $2
LEFT JOIN daily_attendance da ON da.enrollment_id = e.id AND da.date BETWEEN $1 AND $2
WHERE ($3 = '' OR e.term_id = $3)
  AND ($4 = '' OR e.class_id = $4)
GROUP BY s.nis, s.full_name, c.name
ORDER BY c.name, s.full_name`,
}

// ReportDataRepository runs the aggregate query behind each report type.
type ReportDataRepository struct {
	db *sqlx.DB
}

// NewReportDataRepository constructs the repository.
func NewReportDataRepository(db *sqlx.DB) *ReportDataRepository {
	return &ReportDataRepository{db: db}
}

// Supports reports whether reportType has a backing query.
func (r *ReportDataRepository) Supports(reportType models.ReportType) bool {
	_, ok := reportDataQueries[reportType]
	return ok
}

// Fetch returns the rows for reportType in column order.
func (r *ReportDataRepository) Fetch(ctx context.Context, reportType models.ReportType, filter ReportDataFilter) ([]export.Row, error) {
	query, ok := reportDataQueries[reportType]
	if !ok {
		return nil, fmt.Errorf("no data source for report type %q", reportType)
	}
	rows, err := r.db.QueryxContext(ctx, query,
		filter.StartDate.Format("2006-01-02"),
		filter.EndDate.Format("2006-01-02"),
		filter.TermID,
		filter.ClassID,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s report data: %w", reportType, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read %s report columns: %w", reportType, err)
	}

	result := make([]export.Row, 0)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan %s report row: %w", reportType, err)
		}
		row := make(export.Row, len(columns))
		for i, column := range columns {
			row[i] = export.Cell{Key: column, Value: normalizeValue(values[i])}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s report rows: %w", reportType, err)
	}
	return result, nil
}

// lib/pq returns NUMERIC columns as []byte.
func normalizeValue(value interface{}) interface{} {
	raw, ok := value.([]byte)
	if !ok {
		return value
	}
	text := string(raw)
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}
