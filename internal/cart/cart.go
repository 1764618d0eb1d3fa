// Package cart реализует корзину покупателя и расчёт стоимости заказа.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/nightbite/internal/model"
)

var (
	// DeliveryFee задаёт фиксированную стоимость доставки для непустой корзины.
	DeliveryFee = decimal.NewFromInt(20)
	// PlatformFee задаёт фиксированный сервисный сбор для непустой корзины.
	PlatformFee = decimal.NewFromInt(5)
)

// Totals содержит состав корзины и рассчитанные суммы.
type Totals struct {
	Lines       []model.CartLine `json:"items"`
	Count       int              `json:"count"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	DeliveryFee decimal.Decimal  `json:"delivery_fee"`
	PlatformFee decimal.Decimal  `json:"platform_fee"`
	Total       decimal.Decimal  `json:"total"`
}

// Cart хранит строки корзины в порядке добавления и счётчик единиц товара.
// Нулевое значение готово к использованию. Cart не потокобезопасен, синхронизацию обеспечивает Store.
type Cart struct {
	lines []model.CartLine
	index map[int64]int
	count int
}

// New создаёт пустую корзину.
func New() *Cart {
	return &Cart{}
}

// Add добавляет одну единицу позиции.
func (c *Cart) Add(item model.MenuItem) {
	if c.index == nil {
		c.index = make(map[int64]int)
	}
	if i, ok := c.index[item.ID]; ok {
		c.lines[i].Quantity++
	} else {
		c.index[item.ID] = len(c.lines)
		c.lines = append(c.lines, model.CartLine{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: 1,
		})
	}
	c.count++
}

// Remove убирает одну единицу позиции. Строка с последней единицей удаляется целиком.
func (c *Cart) Remove(id int64) {
	i, ok := c.index[id]
	if !ok {
		return
	}
	if c.lines[i].Quantity > 1 {
		c.lines[i].Quantity--
		c.count--
		return
	}
	c.deleteAt(i)
}

// RemoveCompletely удаляет строку независимо от количества.
func (c *Cart) RemoveCompletely(id int64) {
	i, ok := c.index[id]
	if !ok {
		return
	}
	c.deleteAt(i)
}

// Subtract убирает из корзины количества, перечисленные в lines.
// Строки, у которых не осталось единиц, удаляются. Добавленное позже остаётся в корзине.
func (c *Cart) Subtract(lines []model.CartLine) {
	for _, l := range lines {
		i, ok := c.index[l.ID]
		if !ok || l.Quantity <= 0 {
			continue
		}
		if c.lines[i].Quantity > l.Quantity {
			c.lines[i].Quantity -= l.Quantity
			c.count -= l.Quantity
			continue
		}
		c.deleteAt(i)
	}
}

func (c *Cart) deleteAt(i int) {
	line := c.lines[i]
	c.count -= line.Quantity
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, line.ID)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].ID] = j
	}
}

// Quantity возвращает количество единиц позиции, 0 если её нет в корзине.
func (c *Cart) Quantity(id int64) int {
	i, ok := c.index[id]
	if !ok {
		return 0
	}
	return c.lines[i].Quantity
}

// Count возвращает общее количество единиц товара.
func (c *Cart) Count() int {
	return c.count
}

// Empty сообщает, пуста ли корзина.
func (c *Cart) Empty() bool {
	return c.count == 0
}

// Lines возвращает копию строк в порядке добавления.
func (c *Cart) Lines() []model.CartLine {
	out := make([]model.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Subtotal возвращает сумму price × quantity по всем строкам.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Fees возвращает стоимость доставки и сервисный сбор.
func (c *Cart) Fees() (delivery, platform decimal.Decimal) {
	if c.count > 0 {
		return DeliveryFee, PlatformFee
	}
	return decimal.Zero, decimal.Zero
}

// Totals рассчитывает итоговые суммы корзины.
func (c *Cart) Totals() Totals {
	subtotal := c.Subtotal()
	delivery, platform := c.Fees()
	return Totals{
		Lines:       c.Lines(),
		Count:       c.count,
		Subtotal:    subtotal,
		DeliveryFee: delivery,
		PlatformFee: platform,
		Total:       subtotal.Add(delivery).Add(platform),
	}
}

// Store хранит корзины пользователей. Корзина принадлежит одному пользователю и не разделяется.
type Store struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewStore создаёт хранилище корзин.
func NewStore() *Store {
	return &Store{carts: make(map[string]*Cart)}
}

// Update выполняет fn над корзиной пользователя под блокировкой и возвращает итоговые суммы.
func (s *Store) Update(userID string, fn func(c *Cart)) Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		c = New()
		s.carts[userID] = c
	}
	if fn != nil {
		fn(c)
	}
	if c.Empty() {
		delete(s.carts, userID)
	}
	return c.Totals()
}

// Totals возвращает итоговые суммы корзины пользователя.
func (s *Store) Totals(userID string) Totals {
	return s.Update(userID, nil)
}

// Clear очищает корзину пользователя.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}
