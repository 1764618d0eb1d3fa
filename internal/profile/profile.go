// Package profile сопоставляет аутентифицированного пользователя с его анкетой.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/model"
	"github.com/mmeshcher/nightbite/internal/repository"
)

var (
	// ErrOnboardingRequired возвращается, если анкета пользователя не найдена ни по id, ни по email.
	ErrOnboardingRequired = errors.New("profile not found, onboarding required")
	// ErrNotAuthenticated возвращается для неаутентифицированного пользователя.
	ErrNotAuthenticated = errors.New("user not authenticated")
	// ErrInvalidForm возвращается для некорректно заполненной анкеты.
	ErrInvalidForm = errors.New("invalid profile form")
)

// Repository описывает хранилище анкет.
type Repository interface {
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	PatchProfileID(ctx context.Context, email, id string) error
	CreateProfile(ctx context.Context, p model.Profile) error
}

// Form содержит данные анкеты, заполняемые при первом входе.
type Form struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Age      *int   `json:"age" validate:"omitempty,gte=0,lte=150"`
	Gender   string `json:"gender" validate:"max=32"`
	Phone    string `json:"phone" validate:"omitempty,numeric,min=7,max=15"`
	Year     string `json:"year" validate:"max=32"`
	RoomNo   string `json:"room_no" validate:"max=32"`
}

// Resolver находит анкету пользователя и создаёт её при первом входе.
type Resolver struct {
	repo     Repository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewResolver создаёт Resolver.
func NewResolver(repo Repository, validate *validator.Validate, logger *zap.Logger) *Resolver {
	return &Resolver{
		repo:     repo,
		validate: validate,
		logger:   logger,
	}
}

// Resolve ищет анкету по id пользователя, затем по email. Анкета, найденная по email
// с другим id, привязывается к текущему id.
func (r *Resolver) Resolve(ctx context.Context, p model.Principal) (*model.Profile, error) {
	if !p.SignedIn || p.ID == "" {
		return nil, ErrNotAuthenticated
	}

	prof, err := r.repo.GetProfileByID(ctx, p.ID)
	if err == nil {
		return prof, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("find profile by id: %w", err)
	}

	if p.Email == "" {
		return nil, ErrOnboardingRequired
	}

	prof, err = r.repo.GetProfileByEmail(ctx, p.Email)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, ErrOnboardingRequired
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by email: %w", err)
	}

	if prof.ID != p.ID {
		if err := r.repo.PatchProfileID(ctx, p.Email, p.ID); err != nil {
			return nil, fmt.Errorf("relink profile: %w", err)
		}
		r.logger.Info("profile relinked to new principal id",
			zap.String("email", p.Email),
			zap.String("oldID", prof.ID),
			zap.String("newID", p.ID),
		)
		prof.ID = p.ID
	}

	return prof, nil
}

// Onboard создаёт анкету пользователя. id и email берутся из данных аутентификации.
func (r *Resolver) Onboard(ctx context.Context, p model.Principal, f Form) (*model.Profile, error) {
	if !p.SignedIn || p.ID == "" {
		return nil, ErrNotAuthenticated
	}

	f.FullName = strings.TrimSpace(f.FullName)
	if err := r.validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}

	prof := model.Profile{
		ID:       p.ID,
		FullName: f.FullName,
		Email:    p.Email,
		Age:      f.Age,
		Gender:   f.Gender,
		Phone:    f.Phone,
		Year:     f.Year,
		RoomNo:   f.RoomNo,
	}

	if err := r.repo.CreateProfile(ctx, prof); err != nil {
		return nil, err
	}

	return &prof, nil
}
