package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/samthambad/naviin/internal/entity"
)

const accountRowID = 1

// PortfolioRepository persists the full ledger snapshot: one account row,
// the holdings and open-order tables replaced wholesale on every save, and
// the append-only trade log.
type PortfolioRepository struct {
	db *sqlx.DB
}

func NewPortfolioRepository(db *sqlx.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// Save writes a snapshot inside one transaction. Trades are append-only:
// only entries beyond the persisted count are inserted.
func (r *PortfolioRepository) Save(ctx context.Context, snap entity.PortfolioSnapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := r.saveAccount(ctx, tx, snap.CashBalance); err != nil {
		return err
	}
	if err := r.saveHoldings(ctx, tx, snap.Holdings); err != nil {
		return err
	}
	if err := r.appendTrades(ctx, tx, snap.Trades); err != nil {
		return err
	}
	if err := r.saveOpenOrders(ctx, tx, snap.OpenOrders); err != nil {
		return err
	}
	if err := r.saveWatchlist(ctx, tx, snap.Watchlist); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}

	return nil
}

func (r *PortfolioRepository) saveAccount(ctx context.Context, tx *sqlx.Tx, cashBalance decimal.Decimal) error {
	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("account").
		Set("cash_balance", cashBalance).
		Set("updated_at", time.Now().UTC().Unix()).
		Where(sq.Eq{"id": accountRowID}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("account row not found, run migrations first")
	}

	return nil
}

func (r *PortfolioRepository) saveHoldings(ctx context.Context, tx *sqlx.Tx, holdings map[string]entity.Holding) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM holdings"); err != nil {
		return err
	}
	if len(holdings) == 0 {
		return nil
	}

	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("holdings").
		Columns("symbol", "quantity", "avg_cost")
	for _, holding := range holdings {
		builder = builder.Values(holding.Symbol, holding.Quantity, holding.AvgCost)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (r *PortfolioRepository) appendTrades(ctx context.Context, tx *sqlx.Tx, trades []entity.Trade) error {
	var persisted int
	if err := tx.GetContext(ctx, &persisted, "SELECT COUNT(*) FROM trades"); err != nil {
		return err
	}
	if persisted >= len(trades) {
		return nil
	}

	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("trades").
		Columns("symbol", "quantity", "price_per_unit", "side", "executed_at")
	for _, trade := range trades[persisted:] {
		builder = builder.Values(trade.Symbol, trade.Quantity, trade.PricePerUnit, trade.Side, trade.ExecutedAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (r *PortfolioRepository) saveOpenOrders(ctx context.Context, tx *sqlx.Tx, orders []entity.OpenOrder) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM open_orders"); err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}

	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("open_orders").
		Columns("kind", "symbol", "quantity", "trigger_price", "created_at")
	for _, order := range orders {
		builder = builder.Values(order.Kind, order.Symbol, order.Quantity, order.TriggerPrice, order.CreatedAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (r *PortfolioRepository) saveWatchlist(ctx context.Context, tx *sqlx.Tx, watchlist []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM watchlist"); err != nil {
		return err
	}
	if len(watchlist) == 0 {
		return nil
	}

	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("watchlist").
		Columns("symbol")
	for _, symbol := range watchlist {
		builder = builder.Values(symbol)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// Load reads the persisted snapshot. The second return value is false when
// no account row exists yet.
func (r *PortfolioRepository) Load(ctx context.Context) (entity.PortfolioSnapshot, bool, error) {
	var snap entity.PortfolioSnapshot

	var cashBalance decimal.Decimal
	err := r.db.GetContext(ctx, &cashBalance, "SELECT cash_balance FROM account WHERE id = $1", accountRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("load account: %w", err)
	}
	snap.CashBalance = cashBalance

	var holdings []entity.Holding
	if err := r.db.SelectContext(ctx, &holdings, "SELECT symbol, quantity, avg_cost FROM holdings ORDER BY symbol"); err != nil {
		return snap, false, fmt.Errorf("load holdings: %w", err)
	}
	snap.Holdings = make(map[string]entity.Holding, len(holdings))
	for _, holding := range holdings {
		snap.Holdings[holding.Symbol] = holding
	}

	if err := r.db.SelectContext(ctx, &snap.Trades, "SELECT * FROM trades ORDER BY id"); err != nil {
		return snap, false, fmt.Errorf("load trades: %w", err)
	}

	if err := r.db.SelectContext(ctx, &snap.OpenOrders, "SELECT * FROM open_orders ORDER BY id"); err != nil {
		return snap, false, fmt.Errorf("load open orders: %w", err)
	}

	if err := r.db.SelectContext(ctx, &snap.Watchlist, "SELECT symbol FROM watchlist ORDER BY symbol"); err != nil {
		return snap, false, fmt.Errorf("load watchlist: %w", err)
	}

	return snap, true, nil
}

// Reset empties every portfolio table and zeroes the account row.
func (r *PortfolioRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"holdings", "trades", "open_orders", "watchlist"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	if err := r.saveAccount(ctx, tx, decimal.Zero); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset tx: %w", err)
	}

	return nil
}
