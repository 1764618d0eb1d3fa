package board

import (
	"sort"
	"strings"

	"github.com/mmeshcher/nightbite/internal/model"
)

// FilterAll отключает фильтрацию по статусу.
const FilterAll = "all"

var statusPriority = map[model.OrderStatus]int{
	model.OrderStatusPending:   1,
	model.OrderStatusPreparing: 2,
	model.OrderStatusAccepted:  3,
	model.OrderStatusCompleted: 4,
	model.OrderStatusCancelled: 5,
}

const unknownPriority = 999

// Priority возвращает ранг статуса для сортировки очереди. Неизвестные статусы идут последними.
func Priority(s model.OrderStatus) int {
	if p, ok := statusPriority[s]; ok {
		return p
	}
	return unknownPriority
}

// ValidFilter сообщает, допустим ли фильтр статуса.
func ValidFilter(filter string) bool {
	if filter == "" || strings.EqualFold(filter, FilterAll) {
		return true
	}
	_, ok := model.ParseOrderStatus(filter)
	return ok
}

// View описывает отображаемую часть панели.
type View struct {
	Orders []model.Order  `json:"orders"`
	Counts map[string]int `json:"counts"`
	Unread int            `json:"unread"`
	Recent []model.Order  `json:"recent"`
	Filter string         `json:"filter"`
	Query  string         `json:"query"`
}

// Filter оставляет заказы с указанным статусом и email, содержащим query без учёта регистра.
func Filter(orders []model.Order, status, query string) []model.Order {
	status = strings.ToLower(strings.TrimSpace(status))
	query = strings.ToLower(query)

	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && status != FilterAll && strings.ToLower(string(o.Status)) != status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(o.Email), query) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// SortByPriority сортирует заказы по приоритету статуса, сохраняя исходный порядок внутри статуса.
func SortByPriority(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return Priority(orders[i].Status) < Priority(orders[j].Status)
	})
}

// Counts считает заказы по статусам, ключ "all" содержит общее число.
func Counts(orders []model.Order) map[string]int {
	counts := map[string]int{FilterAll: len(orders)}
	for _, st := range model.OrderStatuses {
		counts[string(st)] = 0
	}
	for _, o := range orders {
		if _, ok := statusPriority[o.Status]; ok {
			counts[string(o.Status)]++
		}
	}
	return counts
}

// Render строит представление панели: фильтрация, затем сортировка по приоритету.
func Render(s State, status, query string) View {
	visible := Filter(s.Orders, status, query)
	SortByPriority(visible)

	if status == "" {
		status = FilterAll
	}

	return View{
		Orders: visible,
		Counts: Counts(s.Orders),
		Unread: s.Unread,
		Recent: cloneOrders(s.Recent),
		Filter: strings.ToLower(status),
		Query:  query,
	}
}
