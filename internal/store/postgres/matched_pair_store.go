package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// MatchedPairStore implements domain.MatchedPairStore using PostgreSQL.
// Pairs are stored in canonical order (KeyA < KeyB) so the same two markets
// never appear under both orderings.
type MatchedPairStore struct {
	pool *pgxpool.Pool
}

// NewMatchedPairStore creates a new MatchedPairStore backed by the given pool.
func NewMatchedPairStore(pool *pgxpool.Pool) *MatchedPairStore {
	return &MatchedPairStore{pool: pool}
}

var _ domain.MatchedPairStore = (*MatchedPairStore)(nil)

const pairCols = `
	id, source_a, market_id_a, source_b, market_id_b,
	similarity_score, classifier_prob, name_score, category_score,
	structure_score, temporal_score,
	is_manual_confirmed, confirmed_by, confirmed_at,
	notes, created_at, updated_at`

// scanPair scans a matched pair row using the pairCols column order.
func scanPair(row pgx.Row) (domain.MatchedPair, error) {
	var p domain.MatchedPair
	err := row.Scan(
		&p.ID, &p.SourceA, &p.MarketIDA, &p.SourceB, &p.MarketIDB,
		&p.SimilarityScore, &p.ClassifierProb, &p.NameScore, &p.CategoryScore,
		&p.StructureScore, &p.TemporalScore,
		&p.IsManualConfirmed, &p.ConfirmedBy, &p.ConfirmedAt,
		&p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.MatchedPair{}, err
	}
	return p, nil
}

// Upsert inserts a pair or refreshes its scores when the same two markets are
// matched again. Manual confirmation fields survive re-matching; a re-run of
// the matcher must not undo an operator's confirmation.
func (s *MatchedPairStore) Upsert(ctx context.Context, pair domain.MatchedPair) (domain.MatchedPair, error) {
	pair.Canonicalize()

	const query = `
		INSERT INTO matched_pairs (
			source_a, market_id_a, source_b, market_id_b,
			similarity_score, classifier_prob, name_score, category_score,
			structure_score, temporal_score, notes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			NOW(), NOW()
		)
		ON CONFLICT (source_a, market_id_a, source_b, market_id_b) DO UPDATE SET
			similarity_score = EXCLUDED.similarity_score,
			classifier_prob  = EXCLUDED.classifier_prob,
			name_score       = EXCLUDED.name_score,
			category_score   = EXCLUDED.category_score,
			structure_score  = EXCLUDED.structure_score,
			temporal_score   = EXCLUDED.temporal_score,
			notes            = EXCLUDED.notes,
			updated_at       = NOW()
		RETURNING ` + pairCols

	row := s.pool.QueryRow(ctx, query,
		pair.SourceA, pair.MarketIDA, pair.SourceB, pair.MarketIDB,
		pair.SimilarityScore, pair.ClassifierProb, pair.NameScore, pair.CategoryScore,
		pair.StructureScore, pair.TemporalScore, pair.Notes,
	)
	saved, err := scanPair(row)
	if err != nil {
		return domain.MatchedPair{}, fmt.Errorf("postgres: upsert pair %s/%s~%s/%s: %w",
			pair.SourceA, pair.MarketIDA, pair.SourceB, pair.MarketIDB, err)
	}
	return saved, nil
}

// GetByID retrieves a single pair.
func (s *MatchedPairStore) GetByID(ctx context.Context, id int64) (domain.MatchedPair, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pairCols+` FROM matched_pairs WHERE id = $1`, id)
	p, err := scanPair(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MatchedPair{}, domain.ErrNotFound
		}
		return domain.MatchedPair{}, fmt.Errorf("postgres: get pair %d: %w", id, err)
	}
	return p, nil
}

// List returns pairs matching the filter, best similarity first.
func (s *MatchedPairStore) List(ctx context.Context, filter domain.PairFilter) ([]domain.MatchedPair, error) {
	query := `SELECT ` + pairCols + ` FROM matched_pairs WHERE TRUE`
	args := []any{}
	argIdx := 1

	if filter.MinSimilarity > 0 {
		query += fmt.Sprintf(" AND similarity_score >= $%d", argIdx)
		args = append(args, filter.MinSimilarity)
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(" AND (source_a = $%d OR source_b = $%d)", argIdx, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	if filter.ConfirmedOnly {
		query += " AND is_manual_confirmed"
	}

	query += " ORDER BY similarity_score DESC, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pairs: %w", err)
	}
	defer rows.Close()

	var pairs []domain.MatchedPair
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list pairs rows: %w", err)
	}
	return pairs, nil
}

// Confirm marks a pair as manually verified by an operator.
func (s *MatchedPairStore) Confirm(ctx context.Context, id int64, confirmedBy string) (domain.MatchedPair, error) {
	const query = `
		UPDATE matched_pairs SET
			is_manual_confirmed = TRUE,
			confirmed_by        = $2,
			confirmed_at        = NOW(),
			updated_at          = NOW()
		WHERE id = $1
		RETURNING ` + pairCols

	row := s.pool.QueryRow(ctx, query, id, confirmedBy)
	p, err := scanPair(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MatchedPair{}, domain.ErrNotFound
		}
		return domain.MatchedPair{}, fmt.Errorf("postgres: confirm pair %d: %w", id, err)
	}
	return p, nil
}

// Delete removes a pair.
func (s *MatchedPairStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM matched_pairs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete pair %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Stats returns aggregate counts over the stored pairs.
func (s *MatchedPairStore) Stats(ctx context.Context) (domain.PairStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_manual_confirmed),
			COUNT(*) FILTER (WHERE similarity_score > 0.8),
			COALESCE(AVG(similarity_score), 0)
		FROM matched_pairs`

	var stats domain.PairStats
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalPairs, &stats.ConfirmedPairs, &stats.HighSimilarity, &stats.AvgSimilarity,
	)
	if err != nil {
		return domain.PairStats{}, fmt.Errorf("postgres: pair stats: %w", err)
	}
	return stats, nil
}
