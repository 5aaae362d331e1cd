package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
// Opportunities are append-only: a scan inserts what it found and history is
// queried by detection time.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)

const oppCols = `
	id, matched_pair_id,
	source_a, market_id_a, market_name_a,
	source_b, market_id_b, market_name_b,
	yes_source, yes_market_id, yes_contract_id, yes_side, yes_price,
	no_source, no_market_id, no_contract_id, no_side, no_price,
	total_investment, profit_if_yes, profit_if_no, min_profit, max_profit,
	roi_percent, break_even_spread, similarity,
	is_arbitrage, is_scalp, type, notes, detected_at`

const oppInsertSQL = `
	INSERT INTO opportunities (
		id, matched_pair_id,
		source_a, market_id_a, market_name_a,
		source_b, market_id_b, market_name_b,
		yes_source, yes_market_id, yes_contract_id, yes_side, yes_price,
		no_source, no_market_id, no_contract_id, no_side, no_price,
		total_investment, profit_if_yes, profit_if_no, min_profit, max_profit,
		roi_percent, break_even_spread, similarity,
		is_arbitrage, is_scalp, type, notes, detected_at
	) VALUES (
		$1, $2,
		$3, $4, $5,
		$6, $7, $8,
		$9, $10, $11, $12, $13,
		$14, $15, $16, $17, $18,
		$19, $20, $21, $22, $23,
		$24, $25, $26,
		$27, $28, $29, $30, $31
	)
	ON CONFLICT (id) DO NOTHING`

func oppArgs(o domain.ArbitrageOpportunity) []any {
	return []any{
		o.ID, o.MatchedPairID,
		o.SourceA, o.MarketIDA, o.MarketNameA,
		o.SourceB, o.MarketIDB, o.MarketNameB,
		o.YesLeg.Source, o.YesLeg.MarketID, o.YesLeg.ContractID, o.YesLeg.Side, o.YesLeg.Price,
		o.NoLeg.Source, o.NoLeg.MarketID, o.NoLeg.ContractID, o.NoLeg.Side, o.NoLeg.Price,
		o.TotalInvestment, o.ProfitIfYes, o.ProfitIfNo, o.MinProfit, o.MaxProfit,
		o.ROIPercent, o.BreakEvenSpread, o.Similarity,
		o.IsArbitrage, o.IsScalp, string(o.Type), o.Notes, o.DetectedAt,
	}
}

// scanOpportunity scans an opportunity row using the oppCols column order.
func scanOpportunity(row pgx.Row) (domain.ArbitrageOpportunity, error) {
	var (
		o       domain.ArbitrageOpportunity
		oppType string
	)
	err := row.Scan(
		&o.ID, &o.MatchedPairID,
		&o.SourceA, &o.MarketIDA, &o.MarketNameA,
		&o.SourceB, &o.MarketIDB, &o.MarketNameB,
		&o.YesLeg.Source, &o.YesLeg.MarketID, &o.YesLeg.ContractID, &o.YesLeg.Side, &o.YesLeg.Price,
		&o.NoLeg.Source, &o.NoLeg.MarketID, &o.NoLeg.ContractID, &o.NoLeg.Side, &o.NoLeg.Price,
		&o.TotalInvestment, &o.ProfitIfYes, &o.ProfitIfNo, &o.MinProfit, &o.MaxProfit,
		&o.ROIPercent, &o.BreakEvenSpread, &o.Similarity,
		&o.IsArbitrage, &o.IsScalp, &oppType, &o.Notes, &o.DetectedAt,
	)
	if err != nil {
		return domain.ArbitrageOpportunity{}, err
	}
	o.Type = domain.OpportunityType(oppType)
	return o, nil
}

// Insert stores one opportunity. Re-inserting an already stored ID is a no-op.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if _, err := s.pool.Exec(ctx, oppInsertSQL, oppArgs(opp)...); err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// InsertBatch stores multiple opportunities in one round trip.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.ArbitrageOpportunity) error {
	if len(opps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, o := range opps {
		batch.Queue(oppInsertSQL, oppArgs(o)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range opps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert opportunity %s (batch item %d): %w", opps[i].ID, i, err)
		}
	}
	return nil
}

// ListRecent returns the newest opportunities, most recent first.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+oppCols+` FROM opportunities ORDER BY detected_at DESC, min_profit DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities rows: %w", err)
	}
	return opps, nil
}

// CountSince returns how many opportunities were detected at or after the
// given time.
func (s *OpportunityStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM opportunities WHERE detected_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count opportunities since %s: %w", since.Format(time.RFC3339), err)
	}
	return count, nil
}
