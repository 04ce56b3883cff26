package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/order/model"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &postgresOrderRepository{
		pool: pool,
	}
}

const orderColumns = `
	id, order_number, user_id, created_by,
	service_type_id, service_type_name, scheduled_at,
	contact_name, contact_email, contact_phone,
	address_line1, address_line2, city, state, zip_code, customer_note,
	apartment_id, subscription_id, promotion_id, promo_code, gift_card_code,
	is_custom_pricing, subtotal, discount_amount, subscription_discount_amount, tax_amount,
	tips, company_development_tip, gift_card_amount_used, total,
	total_duration_minutes, maids_count,
	status, payment_status, payment_intent_id, payment_client_secret, paid_at,
	cancellation_reason, cancelled_at, created_at, updated_at, version`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.CreatedBy,
		&o.ServiceTypeID, &o.ServiceTypeName, &o.ScheduledAt,
		&o.ContactName, &o.ContactEmail, &o.ContactPhone,
		&o.AddressLine1, &o.AddressLine2, &o.City, &o.State, &o.ZipCode, &o.CustomerNote,
		&o.ApartmentID, &o.SubscriptionID, &o.PromotionID, &o.PromoCode, &o.GiftCardCode,
		&o.IsCustomPricing, &o.Subtotal, &o.DiscountAmount, &o.SubscriptionDiscountAmount, &o.TaxAmount,
		&o.Tips, &o.CompanyDevelopmentTip, &o.GiftCardAmountUsed, &o.Total,
		&o.TotalDurationMinutes, &o.MaidsCount,
		&o.Status, &o.PaymentStatus, &o.PaymentIntentID, &o.PaymentClientSecret, &o.PaidAt,
		&o.CancellationReason, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt, &o.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// =====================================================
// CREATE ORDER
// =====================================================

func (r *postgresOrderRepository) CreateOrderWithTx(ctx context.Context, tx pgx.Tx, o *model.Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, created_by,
			service_type_id, service_type_name, scheduled_at,
			contact_name, contact_email, contact_phone,
			address_line1, address_line2, city, state, zip_code, customer_note,
			subscription_id, promotion_id, promo_code, gift_card_code,
			is_custom_pricing, subtotal, discount_amount, subscription_discount_amount, tax_amount,
			tips, company_development_tip, gift_card_amount_used, total,
			total_duration_minutes, maids_count,
			status, payment_status, version
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19,
			$20, $21, $22, $23, $24,
			$25, $26, $27, $28,
			$29, $30,
			$31, $32, $33
		)
		RETURNING order_number, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		o.ID, o.UserID, o.CreatedBy,
		o.ServiceTypeID, o.ServiceTypeName, o.ScheduledAt,
		o.ContactName, o.ContactEmail, o.ContactPhone,
		o.AddressLine1, o.AddressLine2, o.City, o.State, o.ZipCode, o.CustomerNote,
		o.SubscriptionID, o.PromotionID, o.PromoCode, o.GiftCardCode,
		o.IsCustomPricing, o.Subtotal, o.DiscountAmount, o.SubscriptionDiscountAmount, o.TaxAmount,
		o.Tips, o.CompanyDevelopmentTip, o.GiftCardAmountUsed, o.Total,
		o.TotalDurationMinutes, o.MaidsCount,
		o.Status, o.PaymentStatus, o.Version,
	).Scan(&o.OrderNumber, &o.CreatedAt, &o.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create order with tx: %w", err)
	}

	return nil
}

// =====================================================
// GET ORDER
// =====================================================

func (r *postgresOrderRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, query, orderID))
	if err != nil && !errors.Is(err, model.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, err
}

func (r *postgresOrderRepository) GetOrderByIDAndUserID(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`
	o, err := scanOrder(r.pool.QueryRow(ctx, query, orderID, userID))
	if err != nil && !errors.Is(err, model.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, err
}

func (r *postgresOrderRepository) GetOrderByPaymentIntent(ctx context.Context, intentID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, query, intentID))
	if err != nil && !errors.Is(err, model.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to get order by payment intent: %w", err)
	}
	return o, err
}

func (r *postgresOrderRepository) LockOrderWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	o, err := scanOrder(tx.QueryRow(ctx, query, orderID))
	if err != nil && !errors.Is(err, model.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return o, err
}

// =====================================================
// UPDATE ORDER
// =====================================================

func (r *postgresOrderRepository) UpdatePricingWithTx(ctx context.Context, tx pgx.Tx, o *model.Order, version int) error {
	query := `
		UPDATE orders SET
			service_type_id = $1, service_type_name = $2, scheduled_at = $3,
			contact_name = $4, contact_email = $5, contact_phone = $6,
			address_line1 = $7, address_line2 = $8, city = $9, state = $10, zip_code = $11,
			customer_note = $12, subscription_id = $13, promotion_id = $14, promo_code = $15,
			gift_card_code = $16, is_custom_pricing = $17,
			subtotal = $18, discount_amount = $19, subscription_discount_amount = $20, tax_amount = $21,
			tips = $22, company_development_tip = $23, gift_card_amount_used = $24, total = $25,
			total_duration_minutes = $26, maids_count = $27,
			payment_status = $28, payment_intent_id = NULL, payment_client_secret = NULL,
			version = version + 1, updated_at = NOW()
		WHERE id = $29 AND version = $30
		RETURNING version, updated_at
	`

	err := tx.QueryRow(ctx, query,
		o.ServiceTypeID, o.ServiceTypeName, o.ScheduledAt,
		o.ContactName, o.ContactEmail, o.ContactPhone,
		o.AddressLine1, o.AddressLine2, o.City, o.State, o.ZipCode,
		o.CustomerNote, o.SubscriptionID, o.PromotionID, o.PromoCode,
		o.GiftCardCode, o.IsCustomPricing,
		o.Subtotal, o.DiscountAmount, o.SubscriptionDiscountAmount, o.TaxAmount,
		o.Tips, o.CompanyDevelopmentTip, o.GiftCardAmountUsed, o.Total,
		o.TotalDurationMinutes, o.MaidsCount,
		o.PaymentStatus,
		o.ID, version,
	).Scan(&o.Version, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrVersionMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to update order pricing: %w", err)
	}
	o.PaymentIntentID = nil
	o.PaymentClientSecret = nil
	return nil
}

func (r *postgresOrderRepository) UpdateTotalsWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, giftCardUsed, total decimal.Decimal) error {
	query := `
		UPDATE orders
		SET gift_card_amount_used = $1, total = $2, updated_at = NOW()
		WHERE id = $3
	`
	if _, err := tx.Exec(ctx, query, giftCardUsed, total, orderID); err != nil {
		return fmt.Errorf("failed to update order totals: %w", err)
	}
	return nil
}

func (r *postgresOrderRepository) SetPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID, clientSecret *string, paymentStatus string) error {
	query := `
		UPDATE orders
		SET payment_intent_id = $1, payment_client_secret = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $4 AND payment_status <> 'paid'
	`
	if _, err := r.pool.Exec(ctx, query, intentID, clientSecret, paymentStatus, orderID); err != nil {
		return fmt.Errorf("failed to set payment intent: %w", err)
	}
	return nil
}

func (r *postgresOrderRepository) MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET payment_status = 'paid', status = 'confirmed', paid_at = $1,
			version = version + 1, updated_at = NOW()
		WHERE id = $2 AND payment_status <> 'paid' AND status = 'pending'
	`
	tag, err := r.pool.Exec(ctx, query, paidAt, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetApartment links the apartment only when none is linked yet.
func (r *postgresOrderRepository) SetApartment(ctx context.Context, orderID, apartmentID uuid.UUID) error {
	query := `UPDATE orders SET apartment_id = $1, updated_at = NOW() WHERE id = $2 AND apartment_id IS NULL`
	if _, err := r.pool.Exec(ctx, query, apartmentID, orderID); err != nil {
		return fmt.Errorf("failed to link apartment: %w", err)
	}
	return nil
}

func (r *postgresOrderRepository) CancelOrderWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, reason string, version int) error {
	result, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = 'cancelled',
			cancellation_reason = $1,
			cancelled_at = NOW(),
			version = version + 1,
			updated_at = NOW()
		WHERE id = $2 AND version = $3 AND payment_status <> 'paid'
	`, reason, orderID, version)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrVersionMismatch
	}
	return nil
}

// =====================================================
// ORDER ITEMS
// =====================================================

func (r *postgresOrderRepository) ReplaceOrderItemsWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, items []model.OrderItem) error {
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO order_items (
			id, order_id, kind, line_id, name,
			quantity, hours, cost, duration_minutes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, it := range items {
		batch.Queue(query,
			it.ID, orderID, string(it.Kind), it.LineID, it.Name,
			it.Quantity, it.Hours, it.Cost, it.DurationMinutes,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create order item %d: %w", i, err)
		}
	}

	return nil
}

func (r *postgresOrderRepository) GetOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, kind, line_id, name, quantity, hours, cost, duration_minutes, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, name
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.Kind, &it.LineID, &it.Name,
			&it.Quantity, &it.Hours, &it.Cost, &it.DurationMinutes, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// =====================================================
// LIST
// =====================================================

func (r *postgresOrderRepository) ListOrdersByUserID(ctx context.Context, userID uuid.UUID, status string, page, limit int) ([]model.Order, int, error) {
	offset := (page - 1) * limit

	var total int
	countQuery := `SELECT COUNT(*) FROM orders WHERE user_id = $1 AND ($2 = '' OR status = $2)`
	if err := r.pool.QueryRow(ctx, countQuery, userID, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	orders, err := r.queryOrders(ctx, query, userID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *postgresOrderRepository) ListPendingWithIntent(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = 'pending'
			AND payment_status = 'pending'
			AND payment_intent_id IS NOT NULL
			AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`
	return r.queryOrders(ctx, query, olderThan, limit)
}

func (r *postgresOrderRepository) CountConfirmedOrdersByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1 AND payment_status = 'paid'`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed orders: %w", err)
	}
	return n, nil
}

func (r *postgresOrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// =====================================================
// ORDER STATUS HISTORY
// =====================================================

func (r *postgresOrderRepository) CreateOrderStatusHistory(ctx context.Context, h *model.OrderStatusHistory) error {
	query := `
		INSERT INTO order_status_history (id, order_id, from_status, to_status, changed_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.pool.Exec(ctx, query, h.ID, h.OrderID, h.FromStatus, h.ToStatus, h.ChangedBy, h.Notes); err != nil {
		return fmt.Errorf("failed to create order status history: %w", err)
	}
	return nil
}

func (r *postgresOrderRepository) CreateOrderStatusHistoryWithTx(ctx context.Context, tx pgx.Tx, h *model.OrderStatusHistory) error {
	query := `
		INSERT INTO order_status_history (id, order_id, from_status, to_status, changed_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query, h.ID, h.OrderID, h.FromStatus, h.ToStatus, h.ChangedBy, h.Notes); err != nil {
		return fmt.Errorf("failed to create order status history with tx: %w", err)
	}
	return nil
}
