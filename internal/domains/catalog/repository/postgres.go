package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cleaning-backend/internal/domains/catalog/model"
	"cleaning-backend/internal/domains/pricing"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetServiceType(ctx context.Context, id uuid.UUID) (*pricing.ServiceTypeFacts, error) {
	query := `
		SELECT id, name, base_price, base_duration_minutes
		FROM service_types
		WHERE id = $1 AND is_active = true
	`

	var st pricing.ServiceTypeFacts
	err := r.pool.QueryRow(ctx, query, id).Scan(&st.ID, &st.Name, &st.BasePrice, &st.BaseDurationMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrServiceTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service type: %w", err)
	}
	return &st, nil
}

func (r *postgresRepository) ListServiceLines(ctx context.Context, ids []uuid.UUID) ([]pricing.ServiceLineFacts, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, unit_cost, unit_duration_minutes, service_type_id, relation_type, service_key
		FROM service_lines
		WHERE id = ANY($1) AND is_active = true
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list service lines: %w", err)
	}
	defer rows.Close()

	var lines []pricing.ServiceLineFacts
	for rows.Next() {
		var l pricing.ServiceLineFacts
		var relation string
		if err := rows.Scan(&l.ID, &l.Name, &l.UnitCost, &l.UnitDurationMinutes, &l.ServiceTypeID, &relation, &l.ServiceKey); err != nil {
			return nil, fmt.Errorf("failed to scan service line: %w", err)
		}
		l.RelationType = pricing.RelationType(relation)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *postgresRepository) ListExtraServices(ctx context.Context, ids []uuid.UUID) ([]pricing.ExtraServiceLineFacts, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, unit_price, unit_duration_minutes,
			has_quantity, has_hours, is_deep_cleaning, is_super_deep_cleaning,
			is_same_day_service, price_multiplier
		FROM extra_services
		WHERE id = ANY($1) AND is_active = true
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list extra services: %w", err)
	}
	defer rows.Close()

	var extras []pricing.ExtraServiceLineFacts
	for rows.Next() {
		var e pricing.ExtraServiceLineFacts
		if err := rows.Scan(
			&e.ID, &e.Name, &e.UnitPrice, &e.UnitDurationMinutes,
			&e.HasQuantity, &e.HasHours, &e.IsDeepCleaning, &e.IsSuperDeepCleaning,
			&e.IsSameDayService, &e.PriceMultiplier,
		); err != nil {
			return nil, fmt.Errorf("failed to scan extra service: %w", err)
		}
		extras = append(extras, e)
	}
	return extras, rows.Err()
}

func (r *postgresRepository) GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	query := `
		SELECT id, name, discount_percentage, period_days, is_active
		FROM subscriptions
		WHERE id = $1
	`

	var s model.Subscription
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.DiscountPercentage, &s.PeriodDays, &s.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &s, nil
}
