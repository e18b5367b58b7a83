package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

// Ledger applies sleeve decisions to the position book and emits trade
// records. It is the sole writer of position state.
// ⭐ SSOT: 持仓状态只在这里被修改
type Ledger struct {
	store contracts.StateStore
	log   *logger.Logger
}

// NewLedger creates the transition applier.
func NewLedger(store contracts.StateStore, log *logger.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Apply mutates the book according to one decision, appending trade records
// first. Switch and pair-trade are the only decisions producing two records;
// both legs are written before the position snapshot changes. Persisting the
// whole book is the engine's job, once per cycle after all sleeves.
func (l *Ledger) Apply(ctx context.Context, book contracts.PositionBook, d contracts.Decision, now time.Time) error {
	switch d.Action {
	case contracts.ActionHold:
		return nil
	case contracts.ActionBuy:
		if d.Sleeve == contracts.SleeveArbitrage {
			return l.applyArbitrageOpen(ctx, book, d, now)
		}
		return l.applyBuy(ctx, book, d, now)
	case contracts.ActionAdd:
		return l.applyAdd(ctx, book, d, now)
	case contracts.ActionSell, contracts.ActionClose:
		return l.applyExit(ctx, book, d, now)
	case contracts.ActionPartialSell:
		return l.applyPartialSell(ctx, book, d, now)
	case contracts.ActionSwitch:
		return l.applySwitch(ctx, book, d, now)
	default:
		return fmt.Errorf("unknown action %q for sleeve %s", d.Action, d.Sleeve)
	}
}

func (l *Ledger) record(ctx context.Context, t contracts.TradeType, d contracts.Decision, code, name string, amount float64, now time.Time) error {
	rec := contracts.TradeRecord{
		Type:      t,
		Sleeve:    d.Sleeve,
		Code:      code,
		Name:      name,
		Amount:    amount,
		Reason:    d.Reason,
		Timestamp: now,
	}
	if err := l.store.AppendTrade(ctx, rec); err != nil {
		return fmt.Errorf("append trade (%s %s): %w", t, code, err)
	}
	l.log.WithFields(map[string]interface{}{
		"type": t, "sleeve": d.Sleeve, "code": code, "amount": amount,
	}).Info("Trade recorded")
	return nil
}

func (l *Ledger) applyBuy(ctx context.Context, book contracts.PositionBook, d contracts.Decision, now time.Time) error {
	if book[d.Sleeve] != nil {
		return fmt.Errorf("buy on non-flat sleeve %s", d.Sleeve)
	}
	if err := l.record(ctx, contracts.TradeBuy, d, d.Code, d.Name, d.Amount, now); err != nil {
		return err
	}
	pos := &contracts.Position{
		Code:     d.Code,
		Name:     d.Name,
		Ratio:    d.ResultingRatio,
		BuyPrice: d.Price,
		BuyDate:  now,
	}
	if d.Candidate != nil {
		pos.Category = d.Candidate.Category
	}
	book[d.Sleeve] = pos
	return nil
}

func (l *Ledger) applyAdd(ctx context.Context, book contracts.PositionBook, d contracts.Decision, now time.Time) error {
	pos := book[d.Sleeve]
	if pos == nil {
		return fmt.Errorf("add on flat sleeve %s", d.Sleeve)
	}
	if err := l.record(ctx, contracts.TradeAdd, d, pos.Code, pos.Name, d.Amount, now); err != nil {
		return err
	}
	ceiling := d.Sleeve.Params().Ceiling
	pos.Ratio = d.ResultingRatio
	if pos.Ratio > ceiling {
		pos.Ratio = ceiling
	}
	pos.LastAddDate = now
	return nil
}

func (l *Ledger) applyExit(ctx context.Context, book contracts.PositionBook, d contracts.Decision, now time.Time) error {
	pos := book[d.Sleeve]
	if pos == nil {
		return fmt.Errorf("%s on flat sleeve %s", d.Action, d.Sleeve)
	}
	t := contracts.TradeSell
	if d.Action == contracts.ActionClose {
		t = contracts.TradeClose
	}
	// 套利仓平仓时第二腿同步退出，和开仓一样两腿各记一半
	amount := d.Amount
	if pos.PairCode != "" {
		amount /= 2
	}
	if err := l.record(ctx, t, d, pos.Code, pos.Name, amount, now); err != nil {
		return err
	}
	if pos.PairCode != "" {
		if err := l.record(ctx, t, d, pos.PairCode, "", amount, now); err != nil {
			return err
		}
	}
	book[d.Sleeve] = nil
	return nil
}

func (l *Ledger) applyPartialSell(ctx context.Context, book contracts.PositionBook, d contracts.Decision, now time.Time) error {
	pos := book[d.Sleeve]
	if pos == nil {
		return fmt.Errorf("partial sell on flat sleeve %s", d.Sleeve)
	}
	if err := l.record(ctx, contracts.TradePartialSell, d, pos.Code, pos.Name, d.Amount, now); err != nil {
		return err
	}
	pos.Ratio = d.ResultingRatio
	if pos.Ratio <= 0 {
		book[d.Sleeve] = nil
	}
	return nil
}

func (l *Ledger) applySwitch(ctx context.Context, book contracts.PositionBook, d contracts.Decision, now time.Time) error {
	pos := book[d.Sleeve]
	if pos == nil || d.Switch == nil {
		return fmt.Errorf("switch needs a holding and a plan (sleeve %s)", d.Sleeve)
	}
	// 先卖后买，两条记录之间不落任何持仓变更
	if err := l.record(ctx, contracts.TradeSwitchSell, d, d.Switch.SellCode, d.Switch.SellName, d.Switch.SellAmount, now); err != nil {
		return err
	}
	if err := l.record(ctx, contracts.TradeSwitchBuy, d, d.Switch.Buy.Code, d.Switch.Buy.Name, d.Switch.BuyAmount, now); err != nil {
		return err
	}
	book[d.Sleeve] = &contracts.Position{
		Code:     d.Switch.Buy.Code,
		Name:     d.Switch.Buy.Name,
		Category: d.Switch.Buy.Category,
		Ratio:    d.ResultingRatio,
		BuyPrice: d.Switch.BuyPrice,
		BuyDate:  now,
	}
	return nil
}

func (l *Ledger) applyArbitrageOpen(ctx context.Context, book contracts.PositionBook, d contracts.Decision, now time.Time) error {
	if book[d.Sleeve] != nil {
		return fmt.Errorf("arbitrage open on non-flat sleeve")
	}
	opp := d.Opportunity
	if opp == nil {
		return fmt.Errorf("arbitrage open without opportunity")
	}

	if opp.IsPair() {
		// 配对交易：两腿各占一半，两条记录连续写入
		half := d.Amount / 2
		if err := l.record(ctx, contracts.TradeBuy, d, opp.Code, opp.Name, half, now); err != nil {
			return err
		}
		if err := l.record(ctx, contracts.TradeBuy, d, opp.PairCode, opp.PairName, half, now); err != nil {
			return err
		}
	} else {
		if err := l.record(ctx, contracts.TradeBuy, d, opp.Code, opp.Name, d.Amount, now); err != nil {
			return err
		}
	}

	book[d.Sleeve] = &contracts.Position{
		Code:           opp.Code,
		Name:           opp.Name,
		Ratio:          d.ResultingRatio,
		Direction:      opp.Direction,
		OpenPrice:      d.Price,
		OpenDate:       now,
		ExpectedReturn: opp.ExpectedReturn,
		PairCode:       opp.PairCode,
	}
	return nil
}
