package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/nightbite/internal/model"
)

const profileColumns = `id, full_name, email, age, gender, phone, year, room_no, is_admin`

// email в токене приходит в нижнем регистре, а анкеты могут быть заведены вручную.
const (
	profileByEmailQuery = `SELECT ` + profileColumns + ` FROM profiles WHERE lower(email) = lower($1)`
	patchProfileIDQuery = `UPDATE profiles SET id = $2 WHERE lower(email) = lower($1)`
)

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var (
		p     model.Profile
		id    *string
		email *string
	)
	err := row.Scan(&id, &p.FullName, &email, &p.Age, &p.Gender, &p.Phone, &p.Year, &p.RoomNo, &p.IsAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	if id != nil {
		p.ID = *id
	}
	if email != nil {
		p.Email = *email
	}
	return &p, nil
}

// GetProfileByID возвращает анкету по id пользователя.
func (r *PostgresRepository) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	var p *model.Profile
	err := r.withRetry(ctx, func() error {
		var err error
		p, err = scanProfile(r.pool.QueryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
			id,
		))
		return err
	})
	return p, err
}

// GetProfileByEmail возвращает анкету по email.
func (r *PostgresRepository) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, profileByEmailQuery, email))
}

// PatchProfileID привязывает анкету с указанным email к новому id пользователя.
func (r *PostgresRepository) PatchProfileID(ctx context.Context, email, id string) error {
	tag, err := r.pool.Exec(ctx, patchProfileIDQuery, email, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrProfileExists, id)
		}
		return fmt.Errorf("patch profile id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// CreateProfile создаёт анкету. Флаг администратора через API не выставляется.
func (r *PostgresRepository) CreateProfile(ctx context.Context, p model.Profile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, full_name, email, age, gender, phone, year, room_no)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)`,
		p.ID, p.FullName, p.Email, p.Age, p.Gender, p.Phone, p.Year, p.RoomNo,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrProfileExists, p.ID)
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}
