package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/nightbite/internal/model"
)

const menuColumns = `id, name, price, original_price, category, image, description, tag, time_label`

func scanMenuItem(row pgx.Row) (model.MenuItem, error) {
	var it model.MenuItem
	err := row.Scan(
		&it.ID, &it.Name, &it.Price, &it.OriginalPrice,
		&it.Category, &it.Image, &it.Description, &it.Tag, &it.Time,
	)
	return it, err
}

// GetMenuItems возвращает все позиции меню по возрастанию id.
func (r *PostgresRepository) GetMenuItems(ctx context.Context) ([]model.MenuItem, error) {
	var items []model.MenuItem

	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+menuColumns+` FROM menu_items ORDER BY id`)
		if err != nil {
			return fmt.Errorf("select menu items: %w", err)
		}
		defer rows.Close()

		items = items[:0]
		for rows.Next() {
			it, err := scanMenuItem(rows)
			if err != nil {
				return fmt.Errorf("scan menu item: %w", err)
			}
			items = append(items, it)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// GetMenuItem возвращает позицию меню по id.
func (r *PostgresRepository) GetMenuItem(ctx context.Context, id int64) (*model.MenuItem, error) {
	it, err := scanMenuItem(r.pool.QueryRow(ctx,
		`SELECT `+menuColumns+` FROM menu_items WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return &it, nil
}

// CreateMenuItem добавляет позицию меню и возвращает её id.
func (r *PostgresRepository) CreateMenuItem(ctx context.Context, it model.MenuItem) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO menu_items (name, price, original_price, category, image, description, tag, time_label)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		it.Name, it.Price, it.OriginalPrice, it.Category, it.Image, it.Description, it.Tag, it.Time,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert menu item: %w", err)
	}
	return id, nil
}

// UpdateMenuItem сохраняет изменения позиции меню.
func (r *PostgresRepository) UpdateMenuItem(ctx context.Context, it model.MenuItem) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE menu_items
		 SET name = $2, price = $3, original_price = $4, category = $5,
		     image = $6, description = $7, tag = $8, time_label = $9
		 WHERE id = $1`,
		it.ID, it.Name, it.Price, it.OriginalPrice, it.Category, it.Image, it.Description, it.Tag, it.Time,
	)
	if err != nil {
		return fmt.Errorf("update menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

// DeleteMenuItem удаляет позицию меню.
func (r *PostgresRepository) DeleteMenuItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}
