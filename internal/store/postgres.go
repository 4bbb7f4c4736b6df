package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Postgres struct {
	DB     Querier
	Logger *zap.Logger
}

func NewPostgres(db Querier, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{DB: db, Logger: logger}
}

const ordersQuery = `
	select
	  o.id, o.status, o.order_type, o.table_number, o.is_scheduled,
	  o.placed_at, o.accepted_at, o.actual_ready_at, o.delivery_assigned_at,
	  o.delivery_delivered_at, o.completed_at, o.delivery_status,
	  o.total_amount, o.subtotal, o.delivery_fee_amount, o.discount_amount,
	  o.delivery_address, o.delivery_latitude, o.delivery_longitude,
	  d.name as driver_name
	from orders o
	left join users d on d.id = o.delivery_driver_user_id
	where o.merchant_id = $1
	  and o.placed_at >= $2
	  and o.placed_at <= $3
	order by o.placed_at asc, o.id asc
`

const orderItemsQuery = `
	select oi.order_id, oi.menu_id, oi.menu_name, m.name, oi.quantity, oi.menu_price,
	  coalesce((
	    select mc.name
	    from menu_category_items mci
	    join menu_categories mc on mc.id = mci.category_id
	    where mci.menu_id = oi.menu_id
	    order by mc.sort_order asc, mc.id asc
	    limit 1
	  ), '') as category_name
	from orders o
	join order_items oi on oi.order_id = o.id
	left join menus m on m.id = oi.menu_id
	where o.merchant_id = $1
	  and o.placed_at >= $2
	  and o.placed_at <= $3
	order by oi.order_id asc, oi.id asc
`

func (p *Postgres) ListOrders(ctx context.Context, merchantID int64, window analytics.DateRange) ([]analytics.Order, error) {
	rows, err := p.DB.Query(ctx, ordersQuery, merchantID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]analytics.Order, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var row orderRow
		if err := rows.Scan(
			&row.ID, &row.Status, &row.OrderType, &row.TableNumber, &row.IsScheduled,
			&row.PlacedAt, &row.AcceptedAt, &row.ReadyAt, &row.AssignedAt,
			&row.DeliveredAt, &row.CompletedAt, &row.DeliveryStatus,
			&row.Total, &row.Subtotal, &row.DeliveryFee, &row.Discount,
			&row.Address, &row.Latitude, &row.Longitude,
			&row.DriverName,
		); err != nil {
			p.Logger.Warn("analytics order row skipped", zap.Error(err))
			continue
		}
		index[row.ID] = len(orders)
		orders = append(orders, row.toOrder())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := p.DB.Query(ctx, orderItemsQuery, merchantID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID      int64
			menuID       pgtype.Int8
			menuName     string
			realName     pgtype.Text
			quantity     int32
			price        pgtype.Numeric
			categoryName string
		)
		if err := itemRows.Scan(&orderID, &menuID, &menuName, &realName, &quantity, &price, &categoryName); err != nil {
			p.Logger.Warn("analytics order item row skipped", zap.Error(err))
			continue
		}
		pos, ok := index[orderID]
		if !ok {
			continue
		}
		name := menuName
		if realName.Valid && strings.TrimSpace(realName.String) != "" {
			name = realName.String
		}
		itemID := name
		if menuID.Valid {
			itemID = fmt.Sprint(menuID.Int64)
		}
		orders[pos].Items = append(orders[pos].Items, analytics.OrderItem{
			ID:       itemID,
			Name:     name,
			Category: categoryName,
			Quantity: float64(quantity),
			Price:    utils.NumericToFloat64(price),
		})
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("read order items: %w", err)
	}
	return orders, nil
}

func (p *Postgres) ActiveMerchantIDs(ctx context.Context, window analytics.DateRange) ([]int64, error) {
	rows, err := p.DB.Query(ctx, `
		select distinct o.merchant_id
		from orders o
		where o.placed_at >= $1 and o.placed_at <= $2
		order by o.merchant_id asc
	`, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query active merchants: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan merchant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MerchantForOrder resolves the merchant an order event belongs to when the
// event payload does not carry it.
func (p *Postgres) MerchantForOrder(ctx context.Context, orderID int64) (int64, error) {
	var merchantID int64
	err := p.DB.QueryRow(ctx, "select merchant_id from orders where id = $1", orderID).Scan(&merchantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrMerchantNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup order merchant: %w", err)
	}
	return merchantID, nil
}

type orderRow struct {
	ID             int64
	Status         string
	OrderType      string
	TableNumber    pgtype.Text
	IsScheduled    bool
	PlacedAt       time.Time
	AcceptedAt     pgtype.Timestamptz
	ReadyAt        pgtype.Timestamptz
	AssignedAt     pgtype.Timestamptz
	DeliveredAt    pgtype.Timestamptz
	CompletedAt    pgtype.Timestamptz
	DeliveryStatus pgtype.Text
	Total          pgtype.Numeric
	Subtotal       pgtype.Numeric
	DeliveryFee    pgtype.Numeric
	Discount       pgtype.Numeric
	Address        pgtype.Text
	Latitude       pgtype.Numeric
	Longitude      pgtype.Numeric
	DriverName     pgtype.Text
}

func timestampPtr(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func firstTimestamp(values ...pgtype.Timestamptz) *time.Time {
	for _, v := range values {
		if t := timestampPtr(v); t != nil {
			return t
		}
	}
	return nil
}

func (row orderRow) toOrder() analytics.Order {
	isDelivery := row.OrderType == "DELIVERY"
	order := analytics.Order{
		ID:          fmt.Sprint(row.ID),
		Status:      mapStatus(row.Status, row.DeliveryStatus.String, row.IsScheduled),
		Timestamp:   row.PlacedAt,
		PreparedAt:  timestampPtr(row.AcceptedAt),
		Total:       utils.NumericToFloat64(row.Total),
		Subtotal:    utils.NumericToFloat64(row.Subtotal),
		DeliveryFee: utils.NumericToFloat64(row.DeliveryFee),
		Discount:    utils.NumericToFloat64(row.Discount),
		Origin:      mapOrigin(row.OrderType),
		IsDelivery:  isDelivery,
		DriverName:  strings.TrimSpace(row.DriverName.String),
		Address:     strings.TrimSpace(row.Address.String),
		Items:       make([]analytics.OrderItem, 0),
	}
	if row.OrderType == "DINE_IN" {
		order.TableNumber = analytics.TableRef(strings.TrimSpace(row.TableNumber.String))
	}
	if isDelivery {
		order.DispatchedAt = firstTimestamp(row.AssignedAt, row.ReadyAt)
		order.DeliveredAt = firstTimestamp(row.DeliveredAt, row.CompletedAt)
	} else {
		order.DispatchedAt = timestampPtr(row.ReadyAt)
		order.DeliveredAt = timestampPtr(row.CompletedAt)
	}
	if row.Latitude.Valid && row.Longitude.Valid {
		order.Coordinates = &analytics.Coordinates{
			Lat: utils.NumericToFloat64(row.Latitude),
			Lng: utils.NumericToFloat64(row.Longitude),
		}
	}
	return order
}

// mapStatus translates the order service lifecycle into the dashboard one.
func mapStatus(status, deliveryStatus string, scheduled bool) analytics.OrderStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PENDING":
		if scheduled {
			return analytics.StatusScheduled
		}
		return analytics.StatusPending
	case "ACCEPTED":
		return analytics.StatusConfirmed
	case "IN_PROGRESS":
		return analytics.StatusPreparing
	case "READY":
		switch strings.ToUpper(strings.TrimSpace(deliveryStatus)) {
		case "ASSIGNED", "PICKED_UP", "ON_THE_WAY", "IN_TRANSIT":
			return analytics.StatusDispatched
		}
		return analytics.StatusReady
	case "COMPLETED":
		return analytics.StatusDelivered
	case "CANCELLED":
		return analytics.StatusCancelled
	default:
		return analytics.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	}
}

func mapOrigin(orderType string) string {
	switch strings.ToUpper(strings.TrimSpace(orderType)) {
	case "DELIVERY":
		return analytics.OriginDelivery
	case "DINE_IN":
		return analytics.OriginTable
	default:
		return "BALCAO"
	}
}
