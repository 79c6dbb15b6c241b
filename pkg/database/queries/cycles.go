package queries

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

type CycleRepository struct {
	db *sqlx.DB
}

func NewCycleRepository(db *sqlx.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

type CycleStats struct {
	ClusterID      string     `json:"cluster_id" db:"cluster_id"`
	TotalCycles    int        `json:"total_cycles" db:"total_cycles"`
	FailedCycles   int        `json:"failed_cycles" db:"failed_cycles"`
	ScalingCycles  int        `json:"scaling_cycles" db:"scaling_cycles"`
	AvgPrediction  *float64   `json:"avg_prediction,omitempty" db:"avg_prediction"`
	LastCycleStart *time.Time `json:"last_cycle_start,omitempty" db:"-"`
}

const cycleColumns = `id, cluster_id, started_at, finished_at, prediction, action,
	nodes_before, nodes_after, status, error_kind, error_message`

func (r *CycleRepository) Insert(ctx context.Context, record *models.CycleRecord) error {
	row := *record
	row.StartedAt = row.StartedAt.UTC()
	row.FinishedAt = row.FinishedAt.UTC()

	query := `
		INSERT INTO scaling_cycles (` + cycleColumns + `)
		VALUES (:id, :cluster_id, :started_at, :finished_at, :prediction, :action,
			:nodes_before, :nodes_after, :status, :error_kind, :error_message)`

	_, err := r.db.NamedExecContext(ctx, query, &row)
	return err
}

func (r *CycleRepository) Recent(ctx context.Context, limit int) ([]models.CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := r.db.Rebind(`
		SELECT ` + cycleColumns + `
		FROM scaling_cycles
		ORDER BY started_at DESC
		LIMIT ?`)

	records := []models.CycleRecord{}
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *CycleRepository) ByCluster(ctx context.Context, clusterID string, from, to time.Time, limit int) ([]models.CycleRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.Rebind(`
		SELECT ` + cycleColumns + `
		FROM scaling_cycles
		WHERE cluster_id = ? AND started_at >= ? AND started_at <= ?
		ORDER BY started_at DESC
		LIMIT ?`)

	records := []models.CycleRecord{}
	if err := r.db.SelectContext(ctx, &records, query, clusterID, from.UTC(), to.UTC(), limit); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *CycleRepository) Get(ctx context.Context, id string) (*models.CycleRecord, error) {
	query := r.db.Rebind(`SELECT ` + cycleColumns + ` FROM scaling_cycles WHERE id = ?`)

	var record models.CycleRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *CycleRepository) Stats(ctx context.Context, clusterID string, since time.Time) (*CycleStats, error) {
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total_cycles,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed_cycles,
			COALESCE(SUM(CASE WHEN status = ? AND action = ? THEN 1 ELSE 0 END), 0) AS scaling_cycles,
			AVG(prediction) AS avg_prediction
		FROM scaling_cycles
		WHERE cluster_id = ? AND started_at >= ?`)

	stats := CycleStats{ClusterID: clusterID}
	err := r.db.QueryRowxContext(ctx, query,
		models.CycleFailed,
		models.CycleSuccess, models.ActionSetNodeCount,
		clusterID, since.UTC(),
	).Scan(&stats.TotalCycles, &stats.FailedCycles, &stats.ScalingCycles, &stats.AvgPrediction)
	if err != nil {
		return nil, err
	}

	if stats.TotalCycles > 0 {
		var last time.Time
		lastQuery := r.db.Rebind(`
			SELECT started_at FROM scaling_cycles
			WHERE cluster_id = ? AND started_at >= ?
			ORDER BY started_at DESC LIMIT 1`)
		if err := r.db.GetContext(ctx, &last, lastQuery, clusterID, since.UTC()); err != nil {
			return nil, err
		}
		stats.LastCycleStart = &last
	}

	return &stats, nil
}

// DeleteBefore prunes history older than cutoff and returns the rows removed.
func (r *CycleRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM scaling_cycles WHERE started_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
