// Package model содержит доменные сущности сервиса nightbite.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItem описывает позицию меню.
type MenuItem struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Category      string          `json:"category"`
	Image         string          `json:"image"`
	Description   string          `json:"description"`
	Tag           string          `json:"tag,omitempty"`
	Time          string          `json:"time,omitempty"`
}

// CartLine описывает строку корзины: снимок позиции меню и количество.
type CartLine struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// OrderStatus описывает статус выполнения заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses перечисляет статусы в порядке приоритета обработки.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusAccepted,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// ParseOrderStatus приводит строку к известному статусу без учёта регистра.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	v := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range OrderStatuses {
		if st == v {
			return st, true
		}
	}
	return "", false
}

// OrderItem описывает снимок позиции в момент оформления заказа.
type OrderItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Order описывает оформленный заказ. Суммы фиксируются при создании и больше не пересчитываются.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	Email       string          `json:"email"`
	Items       []OrderItem     `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	Total       decimal.Decimal `json:"total"`
	Status      OrderStatus     `json:"status"`
	OrderTime   time.Time       `json:"orderTime"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Profile описывает анкету пользователя.
type Profile struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Age      *int   `json:"age,omitempty"`
	Gender   string `json:"gender"`
	Phone    string `json:"phone"`
	Year     string `json:"year"`
	RoomNo   string `json:"room_no"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Principal описывает аутентифицированного пользователя внешнего провайдера идентификации.
type Principal struct {
	ID       string
	Email    string
	SignedIn bool
}
