package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/perpsim/perpsim/internal/entity"
)

type TradeHistoryRepository struct {
	db *sqlx.DB
}

func NewTradeHistoryRepository(db *sqlx.DB) *TradeHistoryRepository {
	return &TradeHistoryRepository{db: db}
}

func (r *TradeHistoryRepository) Create(ctx context.Context, trade *entity.TradeHistory) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(trade.TableName()).
		Columns(
			"id",
			"symbol",
			"order_id",
			"side",
			"type",
			"price",
			"quantity",
			"fee",
			"realized_pnl",
			"status",
			"reason",
			"balance_after",
			"created_at",
		).
		Values(
			trade.ID,
			trade.Symbol,
			trade.OrderID,
			trade.Side,
			trade.Type,
			trade.Price,
			trade.Quantity,
			trade.Fee,
			trade.RealizedPnl,
			trade.Status,
			trade.Reason,
			trade.BalanceAfter,
			trade.CreatedAt,
		).
		Suffix("ON CONFLICT (id) DO NOTHING")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)

	return err
}

func (r *TradeHistoryRepository) GetRecentBySymbol(ctx context.Context, symbol string, limit uint64) ([]entity.TradeHistory, error) {
	if limit == 0 {
		limit = 20
	}

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From("trade_histories").
		Where(sq.Eq{"symbol": symbol}).
		OrderBy("created_at desc").
		Limit(limit)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var trades []entity.TradeHistory
	err = r.db.SelectContext(ctx, &trades, query, args...)
	if err != nil {
		return nil, err
	}

	return trades, nil
}
