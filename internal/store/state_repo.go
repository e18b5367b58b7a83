package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingxuan/fishbowl/internal/contracts"
)

// StateRepository implements contracts.StateStore on PostgreSQL. The book is
// written wholesale once per cycle; trades are append-only.
// ⭐ SSOT: 持仓和流水的持久化只在这里
type StateRepository struct {
	pool *pgxpool.Pool
}

// NewStateRepository creates a new state repository
func NewStateRepository(pool *pgxpool.Pool) *StateRepository {
	return &StateRepository{pool: pool}
}

// LoadPositions reads the full position book. Sleeves without a row are flat.
func (r *StateRepository) LoadPositions(ctx context.Context) (contracts.PositionBook, error) {
	query := `
		SELECT
			sleeve, code, name, category, position_ratio,
			buy_price, buy_date, last_add_date,
			direction, open_price, open_date, expected_return, pair_code
		FROM fishbowl.positions
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	book := contracts.NewPositionBook()

	for rows.Next() {
		var (
			sleeve, code, name, category   string
			ratio                          float64
			buyPrice, openPrice, expReturn *float64
			buyDate, lastAddDate, openDate *time.Time
			direction, pairCode            *string
		)

		err := rows.Scan(
			&sleeve, &code, &name, &category, &ratio,
			&buyPrice, &buyDate, &lastAddDate,
			&direction, &openPrice, &openDate, &expReturn, &pairCode,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}

		pos := &contracts.Position{
			Code:     code,
			Name:     name,
			Category: contracts.Category(category),
			Ratio:    ratio,
		}
		if buyPrice != nil {
			pos.BuyPrice = *buyPrice
		}
		if buyDate != nil {
			pos.BuyDate = *buyDate
		}
		if lastAddDate != nil {
			pos.LastAddDate = *lastAddDate
		}
		if direction != nil {
			pos.Direction = *direction
		}
		if openPrice != nil {
			pos.OpenPrice = *openPrice
		}
		if openDate != nil {
			pos.OpenDate = *openDate
		}
		if expReturn != nil {
			pos.ExpectedReturn = *expReturn
		}
		if pairCode != nil {
			pos.PairCode = *pairCode
		}

		book[contracts.Sleeve(sleeve)] = pos
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}

	return book, nil
}

// SavePositions replaces the stored book with the given one in a single
// transaction. Flat sleeves end up with no row.
func (r *StateRepository) SavePositions(ctx context.Context, book contracts.PositionBook) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM fishbowl.positions`); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	query := `
		INSERT INTO fishbowl.positions (
			sleeve, code, name, category, position_ratio,
			buy_price, buy_date, last_add_date,
			direction, open_price, open_date, expected_return, pair_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for sleeve, pos := range book {
		if pos == nil {
			continue
		}

		_, err := tx.Exec(ctx, query,
			string(sleeve), pos.Code, pos.Name, string(pos.Category), pos.Ratio,
			nullFloat(pos.BuyPrice), nullTime(pos.BuyDate), nullTime(pos.LastAddDate),
			nullString(pos.Direction), nullFloat(pos.OpenPrice), nullTime(pos.OpenDate),
			nullFloat(pos.ExpectedReturn), nullString(pos.PairCode),
		)
		if err != nil {
			return fmt.Errorf("failed to save position for %s: %w", sleeve, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AppendTrade writes one ledger entry. Entries are never updated or deleted.
func (r *StateRepository) AppendTrade(ctx context.Context, rec contracts.TradeRecord) error {
	query := `
		INSERT INTO fishbowl.trades (trade_type, sleeve, code, name, amount, reason, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		string(rec.Type), string(rec.Sleeve), rec.Code, rec.Name,
		rec.Amount, rec.Reason, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append trade: %w", err)
	}

	return nil
}

// TradesSince returns records with Timestamp >= from, oldest first.
func (r *StateRepository) TradesSince(ctx context.Context, from time.Time) ([]contracts.TradeRecord, error) {
	query := `
		SELECT trade_type, sleeve, code, name, amount, reason, ts
		FROM fishbowl.trades
		WHERE ts >= $1
		ORDER BY ts ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	records := make([]contracts.TradeRecord, 0)
	for rows.Next() {
		var rec contracts.TradeRecord
		var tradeType, sleeve string

		err := rows.Scan(&tradeType, &sleeve, &rec.Code, &rec.Name, &rec.Amount, &rec.Reason, &rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}

		rec.Type = contracts.TradeType(tradeType)
		rec.Sleeve = contracts.Sleeve(sleeve)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}

	return records, nil
}

// NULL helpers: zero values mean "field unused for this sleeve type".

func nullFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
