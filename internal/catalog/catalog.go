// Package catalog реализует меню: просмотр позиций покупателями и управление ими администратором.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/nightbite/internal/model"
)

// CategoryAll означает отсутствие фильтра по категории.
const CategoryAll = "All"

// ErrConfirmationRequired возвращается при удалении без подтверждения.
var ErrConfirmationRequired = errors.New("delete requires confirmation")

// Repository описывает хранилище позиций меню.
type Repository interface {
	GetMenuItems(ctx context.Context) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (*model.MenuItem, error)
	CreateMenuItem(ctx context.Context, item model.MenuItem) (int64, error)
	UpdateMenuItem(ctx context.Context, item model.MenuItem) error
	DeleteMenuItem(ctx context.Context, id int64) error
}

// Menu описывает витрину: отфильтрованные позиции и список категорий.
type Menu struct {
	Items      []model.MenuItem `json:"items"`
	Categories []string         `json:"categories"`
	Category   string           `json:"category"`
	Query      string           `json:"query"`
}

// Service реализует операции над меню.
type Service struct {
	repo Repository
}

// NewService создаёт сервис меню.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Categories возвращает "All" и уникальные категории в порядке первого появления.
func Categories(items []model.MenuItem) []string {
	seen := make(map[string]struct{}, len(items))
	out := []string{CategoryAll}
	for _, it := range items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}

// Filter оставляет позиции выбранной категории, название которых содержит query без учёта регистра.
func Filter(items []model.MenuItem, category, query string) []model.MenuItem {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]model.MenuItem, 0, len(items))
	for _, it := range items {
		if category != "" && category != CategoryAll && it.Category != category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(it.Name), query) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// List возвращает все позиции меню по возрастанию id.
func (s *Service) List(ctx context.Context) ([]model.MenuItem, error) {
	items, err := s.repo.GetMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

// Menu возвращает витрину с учётом категории и поискового запроса.
func (s *Service) Menu(ctx context.Context, category, query string) (*Menu, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		category = CategoryAll
	}
	return &Menu{
		Items:      Filter(items, category, query),
		Categories: Categories(items),
		Category:   category,
		Query:      query,
	}, nil
}

// Get возвращает позицию меню по id.
func (s *Service) Get(ctx context.Context, id int64) (*model.MenuItem, error) {
	return s.repo.GetMenuItem(ctx, id)
}

// Create сохраняет новую позицию и возвращает перечитанное меню.
func (s *Service) Create(ctx context.Context, d ItemDraft) ([]model.MenuItem, error) {
	item, err := d.Item(0)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.CreateMenuItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	return s.List(ctx)
}

// Update сохраняет изменения позиции и возвращает перечитанное меню.
func (s *Service) Update(ctx context.Context, id int64, d ItemDraft) ([]model.MenuItem, error) {
	item, err := d.Item(id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return s.List(ctx)
}

// Delete удаляет позицию после явного подтверждения и возвращает перечитанное меню.
func (s *Service) Delete(ctx context.Context, id int64, confirmed bool) ([]model.MenuItem, error) {
	if !confirmed {
		return nil, ErrConfirmationRequired
	}
	if err := s.repo.DeleteMenuItem(ctx, id); err != nil {
		return nil, err
	}
	return s.List(ctx)
}
