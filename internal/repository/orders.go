package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/nightbite/internal/model"
)

// OrdersChannel задаёт канал LISTEN/NOTIFY, в который триггер публикует id новых заказов.
const OrdersChannel = "orders_inserted"

const orderColumns = `id, user_id, email, items, subtotal, delivery_fee, platform_fee, total, status, order_time, created_at`

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o         model.Order
		status    string
		orderTime *time.Time
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Email, &o.Items,
		&o.Subtotal, &o.DeliveryFee, &o.PlatformFee, &o.Total,
		&status, &orderTime, &o.CreatedAt,
	)
	if err != nil {
		return model.Order{}, err
	}

	o.Status = model.OrderStatus(status)
	if orderTime != nil {
		o.OrderTime = *orderTime
	} else {
		o.OrderTime = o.CreatedAt
	}
	if o.Items == nil {
		o.Items = []model.OrderItem{}
	}
	return o, nil
}

func (r *PostgresRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]model.Order, error) {
	var orders []model.Order

	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("select orders: %w", err)
		}
		defer rows.Close()

		orders = orders[:0]
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("scan order: %w", err)
			}
			orders = append(orders, o)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return orders, nil
}

// InsertOrder сохраняет оформленный заказ. Уведомление подписчикам публикует триггер.
func (r *PostgresRepository) InsertOrder(ctx context.Context, o model.Order) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO orders (id, user_id, email, items, subtotal, delivery_fee, platform_fee, total, status, order_time, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.UserID, o.Email, o.Items,
		o.Subtotal, o.DeliveryFee, o.PlatformFee, o.Total,
		string(o.Status), o.OrderTime, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по id.
func (r *PostgresRepository) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// GetAllOrders возвращает все заказы в порядке оформления.
func (r *PostgresRepository) GetAllOrders(ctx context.Context) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 ORDER BY COALESCE(order_time, created_at) ASC`,
	)
}

// GetOrdersByUser возвращает заказы пользователя, начиная с последнего.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY COALESCE(order_time, created_at) DESC`,
		userID,
	)
}

// UpdateOrderStatus обновляет статус заказа.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListenOrderInserts слушает уведомления о новых заказах на выделенном соединении
// и передаёт каждый заказ в fn. Возвращает управление при отмене контекста или ошибке соединения.
func (r *PostgresRepository) ListenOrderInserts(ctx context.Context, fn func(model.Order)) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer func() {
		unlistenCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := conn.Exec(unlistenCtx, `UNLISTEN *`); err != nil {
			conn.Conn().Close(unlistenCtx)
		}
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, `LISTEN `+OrdersChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		id, err := uuid.Parse(n.Payload)
		if err != nil {
			continue
		}

		o, err := r.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				continue
			}
			return err
		}
		fn(*o)
	}
}
