// Package board реализует панель администратора: список заказов, уведомления о новых заказах
// и смену статусов.
package board

import (
	"github.com/google/uuid"

	"github.com/mmeshcher/nightbite/internal/model"
)

// MaxRecent ограничивает длину списка последних уведомлений.
const MaxRecent = 5

// State описывает состояние панели администратора.
// Overrides хранит локальные статусы, которые снимок из хранилища ещё может не содержать.
type State struct {
	Orders    []model.Order
	Unread    int
	Recent    []model.Order
	Overrides []Override
}

// Override описывает локально выставленный статус заказа.
// Settled равен нулю, пока запись в хранилище не завершилась, и номеру записи после неё.
type Override struct {
	ID      uuid.UUID
	Status  model.OrderStatus
	Settled uint64
}

// Event изменяет состояние панели через Apply.
type Event interface {
	apply(State) State
}

// Snapshot заменяет список заказов данными из хранилища.
// Seq равен номеру последней завершённой записи статуса на момент начала чтения.
type Snapshot struct {
	Orders []model.Order
	Seq    uint64
}

// Inserted добавляет новый заказ, полученный по подписке.
type Inserted struct {
	Order model.Order
}

// StatusSet меняет статус заказа в локальной копии.
type StatusSet struct {
	ID     uuid.UUID
	Status model.OrderStatus
}

// StatusConfirmed фиксирует статус после успешной записи в хранилище под номером Seq.
type StatusConfirmed struct {
	ID     uuid.UUID
	Status model.OrderStatus
	Seq    uint64
}

// StatusReverted откатывает статус заказа после неудачной записи в хранилище.
type StatusReverted struct {
	ID     uuid.UUID
	Status model.OrderStatus
}

// Seen сбрасывает счётчик непрочитанных уведомлений.
type Seen struct{}

// Apply применяет событие к состоянию и возвращает новое состояние. Исходное состояние не меняется.
func Apply(s State, e Event) State {
	return e.apply(s)
}

func (e Snapshot) apply(s State) State {
	// снимок, прочитанный после записи, уже содержит её результат
	kept := make([]Override, 0, len(s.Overrides))
	for _, o := range s.Overrides {
		if o.Settled == 0 || o.Settled > e.Seq {
			kept = append(kept, o)
		}
	}

	orders := cloneOrders(e.Orders)
	for _, o := range kept {
		setStatus(orders, o.ID, o.Status)
	}

	s.Orders = orders
	s.Overrides = kept
	return s
}

func (e Inserted) apply(s State) State {
	s.Unread++

	recent := make([]model.Order, 0, MaxRecent)
	recent = append(recent, e.Order)
	for _, o := range s.Recent {
		if len(recent) == MaxRecent {
			break
		}
		recent = append(recent, o)
	}
	s.Recent = recent

	// заказ мог попасть и в снимок, и в подписку
	for _, o := range s.Orders {
		if o.ID == e.Order.ID {
			return s
		}
	}

	orders := make([]model.Order, 0, len(s.Orders)+1)
	orders = append(orders, e.Order)
	s.Orders = append(orders, s.Orders...)
	return s
}

func (e StatusSet) apply(s State) State {
	s.Orders = cloneOrders(s.Orders)
	setStatus(s.Orders, e.ID, e.Status)
	s.Overrides = append(withoutOverride(s.Overrides, e.ID), Override{ID: e.ID, Status: e.Status})
	return s
}

func (e StatusConfirmed) apply(s State) State {
	for _, o := range s.Overrides {
		// более поздняя смена статуса ещё не записана
		if o.ID == e.ID && o.Status != e.Status {
			return s
		}
	}

	s.Orders = cloneOrders(s.Orders)
	setStatus(s.Orders, e.ID, e.Status)
	s.Overrides = append(withoutOverride(s.Overrides, e.ID), Override{ID: e.ID, Status: e.Status, Settled: e.Seq})
	return s
}

func (e StatusReverted) apply(s State) State {
	s.Orders = cloneOrders(s.Orders)
	setStatus(s.Orders, e.ID, e.Status)
	s.Overrides = withoutOverride(s.Overrides, e.ID)
	return s
}

func (Seen) apply(s State) State {
	s.Unread = 0
	return s
}

func setStatus(orders []model.Order, id uuid.UUID, status model.OrderStatus) {
	for i := range orders {
		if orders[i].ID == id {
			orders[i].Status = status
		}
	}
}

func withoutOverride(in []Override, id uuid.UUID) []Override {
	out := make([]Override, 0, len(in)+1)
	for _, o := range in {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

func cloneOrders(in []model.Order) []model.Order {
	if in == nil {
		return nil
	}
	out := make([]model.Order, len(in))
	copy(out, in)
	return out
}
