package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL. Markets are
// keyed (source, market_id); contract rows are replaced wholesale on every
// upsert so stale outcomes never linger after a venue restructures a market.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

var _ domain.MarketStore = (*MarketStore)(nil)

const marketUpsertSQL = `
	INSERT INTO markets (
		source, market_id, name, category, event_time,
		url, status, fetched_at, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, NOW(), NOW()
	)
	ON CONFLICT (source, market_id) DO UPDATE SET
		name       = EXCLUDED.name,
		category   = EXCLUDED.category,
		event_time = EXCLUDED.event_time,
		url        = EXCLUDED.url,
		status     = EXCLUDED.status,
		fetched_at = EXCLUDED.fetched_at,
		updated_at = NOW()`

const contractDeleteSQL = `DELETE FROM contracts WHERE source = $1 AND market_id = $2`

const contractInsertSQL = `
	INSERT INTO contracts (
		source, market_id, contract_id, name, side,
		outcome_type, bid, ask, last_price, volume, ordinal
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Upsert writes a market and replaces its contract rows in one transaction.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin upsert market: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertMarketTx(ctx, tx, m); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit upsert market %s/%s: %w", m.Source, m.MarketID, err)
	}
	return nil
}

// UpsertBatch writes multiple markets in one transaction, pipelining the
// per-market statements through a pgx batch.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin upsert batch: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, m := range markets {
		queueMarket(batch, m)
	}

	br := tx.SendBatch(ctx, batch)
	if err := execBatch(br, batch.Len()); err != nil {
		_ = br.Close()
		return fmt.Errorf("postgres: upsert market batch: %w", err)
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: close market batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit upsert batch: %w", err)
	}
	return nil
}

func upsertMarketTx(ctx context.Context, tx pgx.Tx, m domain.Market) error {
	if _, err := tx.Exec(ctx, marketUpsertSQL,
		m.Source, m.MarketID, m.Name, m.Category, m.EventTime,
		m.URL, string(m.Status), m.FetchedAt,
	); err != nil {
		return fmt.Errorf("postgres: upsert market %s/%s: %w", m.Source, m.MarketID, err)
	}

	if _, err := tx.Exec(ctx, contractDeleteSQL, m.Source, m.MarketID); err != nil {
		return fmt.Errorf("postgres: clear contracts %s/%s: %w", m.Source, m.MarketID, err)
	}

	for i, c := range m.Contracts {
		if _, err := tx.Exec(ctx, contractInsertSQL,
			m.Source, m.MarketID, c.ContractID, c.Name, c.Side,
			string(c.OutcomeType), c.Bid, c.Ask, c.LastPrice, c.Volume, i,
		); err != nil {
			return fmt.Errorf("postgres: insert contract %s: %w", c.ContractID, err)
		}
	}
	return nil
}

func queueMarket(batch *pgx.Batch, m domain.Market) {
	batch.Queue(marketUpsertSQL,
		m.Source, m.MarketID, m.Name, m.Category, m.EventTime,
		m.URL, string(m.Status), m.FetchedAt,
	)
	batch.Queue(contractDeleteSQL, m.Source, m.MarketID)
	for i, c := range m.Contracts {
		batch.Queue(contractInsertSQL,
			m.Source, m.MarketID, c.ContractID, c.Name, c.Side,
			string(c.OutcomeType), c.Bid, c.Ask, c.LastPrice, c.Volume, i,
		)
	}
}

func execBatch(br pgx.BatchResults, n int) error {
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return nil
}

const marketCols = `source, market_id, name, category, event_time,
	url, status, fetched_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m      domain.Market
		status string
	)
	err := row.Scan(
		&m.Source, &m.MarketID, &m.Name, &m.Category, &m.EventTime,
		&m.URL, &status, &m.FetchedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	return m, nil
}

// GetByKey retrieves a market and its contracts.
func (s *MarketStore) GetByKey(ctx context.Context, key domain.MarketKey) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE source = $1 AND market_id = $2`,
		key.Source, key.MarketID)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s/%s: %w", key.Source, key.MarketID, err)
	}

	contracts, err := s.loadContracts(ctx, key.Source, []string{key.MarketID})
	if err != nil {
		return domain.Market{}, err
	}
	m.Contracts = contracts[key.MarketID]
	return m, nil
}

// ListBySource returns one venue's markets with contracts attached.
func (s *MarketStore) ListBySource(ctx context.Context, source string, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE source = $1`
	args := []any{source}
	query, args = applyListOpts(query, args, opts)

	markets, err := s.queryMarkets(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets for %s: %w", source, err)
	}
	if err := s.attachContracts(ctx, markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// ListAll returns markets across all venues with contracts attached.
func (s *MarketStore) ListAll(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE TRUE`
	args := []any{}
	query, args = applyListOpts(query, args, opts)

	markets, err := s.queryMarkets(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	if err := s.attachContracts(ctx, markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// Sources returns the distinct venue tags present in the store.
func (s *MarketStore) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT source FROM markets ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("postgres: scan source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list sources rows: %w", err)
	}
	return sources, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func applyListOpts(query string, args []any, opts domain.ListOpts) (string, []any) {
	argIdx := len(args) + 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND updated_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND updated_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY source, market_id"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}

func (s *MarketStore) queryMarkets(ctx context.Context, query string, args ...any) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// attachContracts loads contract rows for the given markets, grouped per
// source so each venue needs one query.
func (s *MarketStore) attachContracts(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	idsBySource := make(map[string][]string)
	for i := range markets {
		idsBySource[markets[i].Source] = append(idsBySource[markets[i].Source], markets[i].MarketID)
	}

	bySource := make(map[string]map[string][]domain.Contract, len(idsBySource))
	for source, ids := range idsBySource {
		grouped, err := s.loadContracts(ctx, source, ids)
		if err != nil {
			return err
		}
		bySource[source] = grouped
	}

	for i := range markets {
		markets[i].Contracts = bySource[markets[i].Source][markets[i].MarketID]
	}
	return nil
}

func (s *MarketStore) loadContracts(ctx context.Context, source string, marketIDs []string) (map[string][]domain.Contract, error) {
	const query = `
		SELECT source, market_id, contract_id, name, side,
			outcome_type, bid, ask, last_price, volume
		FROM contracts
		WHERE source = $1 AND market_id = ANY($2)
		ORDER BY market_id, ordinal`

	rows, err := s.pool.Query(ctx, query, source, marketIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: load contracts for %s: %w", source, err)
	}
	defer rows.Close()

	grouped := make(map[string][]domain.Contract)
	for rows.Next() {
		var c domain.Contract
		var outcomeType string
		if err := rows.Scan(
			&c.Source, &c.MarketID, &c.ContractID, &c.Name, &c.Side,
			&outcomeType, &c.Bid, &c.Ask, &c.LastPrice, &c.Volume,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan contract: %w", err)
		}
		c.OutcomeType = domain.OutcomeType(outcomeType)
		grouped[c.MarketID] = append(grouped[c.MarketID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load contracts rows: %w", err)
	}
	return grouped, nil
}
