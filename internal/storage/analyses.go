package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/service"
)

const analysisColumns = `id, source, row_index, probability, label, confidence, color,
	true_label, abnormal_threshold, uncertain_margin, analyzed_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveAnalysis stores one analysis, replacing any previous row with the same ID.
func (s *SQLiteStorage) SaveAnalysis(ctx context.Context, analysis *model.Analysis) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAnalysis(analysis); err != nil {
		return err
	}
	return saveAnalysis(ctx, s.db, analysis)
}

// SaveAnalyses stores a batch of analyses in one transaction.
func (s *SQLiteStorage) SaveAnalyses(ctx context.Context, analyses []model.Analysis) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(analyses) == 0 {
		return fmt.Errorf("%w: analyses", ErrEmptySlice)
	}
	for i := range analyses {
		if err := validateAnalysis(&analyses[i]); err != nil {
			return fmt.Errorf("analysis at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range analyses {
		if err := saveAnalysis(ctx, tx, &analyses[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func saveAnalysis(ctx context.Context, db execer, a *model.Analysis) error {
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = time.Now()
	}

	var trueLabel sql.NullInt64
	if a.TrueLabel != nil {
		trueLabel = sql.NullInt64{Int64: int64(*a.TrueLabel), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			row_index = excluded.row_index,
			probability = excluded.probability,
			label = excluded.label,
			confidence = excluded.confidence,
			color = excluded.color,
			true_label = excluded.true_label,
			abnormal_threshold = excluded.abnormal_threshold,
			uncertain_margin = excluded.uncertain_margin,
			analyzed_at = excluded.analyzed_at
	`,
		a.ID,
		a.Source,
		a.Row,
		a.Probability,
		string(a.Decision.Label),
		a.Decision.Confidence,
		string(a.Decision.Color),
		trueLabel,
		a.AbnormalThreshold,
		a.UncertainMargin,
		a.AnalyzedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", a.ID, err)
	}
	return nil
}

// GetAnalysis returns the analysis with the given ID.
func (s *SQLiteStorage) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = ?`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnalyses returns analyses matching filter, newest first.
func (s *SQLiteStorage) ListAnalyses(ctx context.Context, filter service.AnalysisFilter) ([]model.Analysis, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + analysisColumns + ` FROM analyses` + where + ` ORDER BY analyzed_at DESC, source, row_index`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var analyses []model.Analysis
	for rows.Next() {
		a, scanErr := scanAnalysis(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		analyses = append(analyses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyses: %w", err)
	}
	return analyses, nil
}

// SummarizeAnalyses aggregates analyses matching filter. Limit is ignored.
func (s *SQLiteStorage) SummarizeAnalyses(ctx context.Context, filter service.AnalysisFilter) (*service.AnalysisSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}

	summary := &service.AnalysisSummary{ByLabel: make(map[model.DecisionLabel]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT label, COUNT(*) FROM analyses`+where+` GROUP BY label`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		summary.ByLabel[model.DecisionLabel(label)] = count
		summary.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate label counts: %w", err)
	}

	var mean sql.NullFloat64
	var labeled, agreements sql.NullInt64
	err = s.db.QueryRowContext(ctx, `
		SELECT
			AVG(probability),
			SUM(CASE WHEN true_label IS NOT NULL AND label != 'UNCERTAIN' THEN 1 ELSE 0 END),
			SUM(CASE
				WHEN label = 'ABNORMAL' AND true_label = 1 THEN 1
				WHEN label = 'NORMAL' AND true_label = 0 THEN 1
				ELSE 0 END)
		FROM analyses`+where, args...).Scan(&mean, &labeled, &agreements)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate analyses: %w", err)
	}
	summary.MeanProbability = mean.Float64
	summary.Labeled = int(labeled.Int64)
	summary.Agreements = int(agreements.Int64)

	return summary, nil
}

// DeleteAnalysesBefore removes analyses older than before and returns how
// many rows were deleted.
func (s *SQLiteStorage) DeleteAnalysesBefore(ctx context.Context, before time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE analyzed_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete analyses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted analyses: %w", err)
	}
	return n, nil
}

func buildWhere(filter service.AnalysisFilter) (string, []any, error) {
	if filter.Limit < 0 {
		return "", nil, ErrInvalidLimit
	}

	var clauses []string
	var args []any

	if filter.Label != "" {
		if !filter.Label.Valid() {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidLabelName, filter.Label)
		}
		clauses = append(clauses, "label = ?")
		args = append(args, string(filter.Label))
	}
	if filter.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Since != nil {
		clauses = append(clauses, "analyzed_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*model.Analysis, error) {
	var (
		a         model.Analysis
		label     string
		color     string
		trueLabel sql.NullInt64
	)

	err := row.Scan(
		&a.ID,
		&a.Source,
		&a.Row,
		&a.Probability,
		&label,
		&a.Decision.Confidence,
		&color,
		&trueLabel,
		&a.AbnormalThreshold,
		&a.UncertainMargin,
		&a.AnalyzedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	a.Decision.Label = model.DecisionLabel(label)
	a.Decision.Color = model.ColorTag(color)
	if trueLabel.Valid {
		v := int(trueLabel.Int64)
		a.TrueLabel = &v
	}
	return &a, nil
}
