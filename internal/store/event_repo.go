package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingxuan/fishbowl/internal/contracts"
)

// EventRepository serves the curated event tables. The tables are maintained
// by hand (or by external loaders); the engine only reads them.
// ⭐ SSOT: 事件类数据的读取只在这里
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// CorporateEvents returns events from today onwards, soonest first.
func (r *EventRepository) CorporateEvents(ctx context.Context, code string) ([]contracts.CorporateEvent, error) {
	query := `
		SELECT event_date, event_type
		FROM fishbowl.corporate_events
		WHERE code = $1 AND event_date >= CURRENT_DATE
		ORDER BY event_date ASC
	`

	rows, err := r.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query corporate events: %w", err)
	}
	defer rows.Close()

	events := make([]contracts.CorporateEvent, 0)
	for rows.Next() {
		var ev contracts.CorporateEvent
		var evType string

		if err := rows.Scan(&ev.Date, &evType); err != nil {
			return nil, fmt.Errorf("failed to scan corporate event: %w", err)
		}
		ev.Type = contracts.CorporateEventType(evType)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corporate events: %w", err)
	}

	return events, nil
}

// PolicyEvents returns policy events from the last 30 days, newest first.
func (r *EventRepository) PolicyEvents(ctx context.Context, code string) ([]contracts.PolicyEvent, error) {
	query := `
		SELECT event_date, impact
		FROM fishbowl.policy_events
		WHERE code = $1 AND event_date >= $2
		ORDER BY event_date DESC
	`

	rows, err := r.pool.Query(ctx, query, code, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("failed to query policy events: %w", err)
	}
	defer rows.Close()

	events := make([]contracts.PolicyEvent, 0)
	for rows.Next() {
		var ev contracts.PolicyEvent
		var impact string

		if err := rows.Scan(&ev.Date, &impact); err != nil {
			return nil, fmt.Errorf("failed to scan policy event: %w", err)
		}
		ev.Impact = contracts.PolicyImpact(impact)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policy events: %w", err)
	}

	return events, nil
}

// FundamentalAlerts returns constituent alerts from the last 30 days.
func (r *EventRepository) FundamentalAlerts(ctx context.Context, code string) ([]contracts.FundamentalAlert, error) {
	query := `
		SELECT alert_date, constituent_code, detail
		FROM fishbowl.fundamental_alerts
		WHERE etf_code = $1 AND alert_date >= $2
		ORDER BY alert_date DESC
	`

	rows, err := r.pool.Query(ctx, query, code, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("failed to query fundamental alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]contracts.FundamentalAlert, 0)
	for rows.Next() {
		var a contracts.FundamentalAlert

		if err := rows.Scan(&a.Date, &a.Code, &a.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan fundamental alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fundamental alerts: %w", err)
	}

	return alerts, nil
}

// RelatedListings returns same-underlying listings on other markets.
func (r *EventRepository) RelatedListings(ctx context.Context, code string) ([]contracts.Candidate, error) {
	query := `
		SELECT related_code, name, volume
		FROM fishbowl.related_listings
		WHERE code = $1
		ORDER BY related_code ASC
	`

	rows, err := r.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query related listings: %w", err)
	}
	defer rows.Close()

	listings := make([]contracts.Candidate, 0)
	for rows.Next() {
		var c contracts.Candidate

		if err := rows.Scan(&c.Code, &c.Name, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan related listing: %w", err)
		}
		listings = append(listings, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating related listings: %w", err)
	}

	return listings, nil
}
