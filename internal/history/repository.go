// Package history stores finished analysis runs in PostgreSQL.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/service/database"
	"go.uber.org/zap"
)

const schema = `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id                    BIGSERIAL PRIMARY KEY,
		generated_at          TIMESTAMPTZ NOT NULL,
		video_count           INTEGER NOT NULL,
		mean_views            DOUBLE PRECISION NOT NULL,
		mean_interaction_rate DOUBLE PRECISION NOT NULL,
		top_author            TEXT NOT NULL DEFAULT '',
		ai_summary            TEXT NOT NULL DEFAULT '',
		payload               JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS analysis_runs_generated_at_idx ON analysis_runs (generated_at DESC);
`

const defaultRecentLimit = 20

type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(postgres *database.PostgresService, logger *zap.Logger) *Repository {
	return &Repository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// Migrate creates the table when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create analysis_runs: %w", err)
	}
	return nil
}

// Save stores result and returns the new row id.
func (r *Repository) Save(ctx context.Context, result *domain.AnalysisResult) (int64, error) {
	if result == nil {
		return 0, fmt.Errorf("nil analysis result")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to encode analysis payload: %w", err)
	}

	run := Summarize(result)
	query := `
		INSERT INTO analysis_runs (generated_at, video_count, mean_views, mean_interaction_rate,
		                           top_author, ai_summary, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		run.GeneratedAt, run.VideoCount, run.MeanViews, run.MeanInteractionRate,
		run.TopAuthor, run.AISummary, payload,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis run: %w", err)
	}

	r.logger.Debug("Analysis run stored", zap.Int64("id", id), zap.Int("videos", run.VideoCount))
	return id, nil
}

// Recent lists the newest runs first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	query := `
		SELECT id, generated_at, video_count, mean_views, mean_interaction_rate, top_author, ai_summary
		FROM analysis_runs
		ORDER BY generated_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.AnalysisRun, 0, limit)
	for rows.Next() {
		var run domain.AnalysisRun
		if err := rows.Scan(&run.ID, &run.GeneratedAt, &run.VideoCount, &run.MeanViews,
			&run.MeanInteractionRate, &run.TopAuthor, &run.AISummary); err != nil {
			r.logger.Warn("Failed to scan analysis run", zap.Error(err))
			continue
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis runs: %w", err)
	}

	return runs, nil
}

// Get loads the full stored result of one run. A missing id returns nil, nil.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.AnalysisResult, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM analysis_runs WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis run %d: %w", id, err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis run %d: %w", id, err)
	}
	return &result, nil
}

// Summarize extracts the indexed columns of a result.
func Summarize(result *domain.AnalysisResult) domain.AnalysisRun {
	run := domain.AnalysisRun{
		GeneratedAt:         result.GeneratedAt,
		VideoCount:          len(result.VideoDetails),
		MeanViews:           result.DescriptiveStats[domain.FieldView].Mean,
		MeanInteractionRate: result.DescriptiveStats[domain.FieldInteractionRate].Mean,
		AISummary:           result.AISummary,
	}
	if len(result.AuthorAggregate) > 0 {
		run.TopAuthor = result.AuthorAggregate[0].Author
	}
	return run
}
