package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookcal/backend/internal/auth"
	"bookcal/backend/internal/domain"
	"bookcal/backend/internal/ids"
	"bookcal/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

const (
	minPasswordLength = 6
	minNameLength     = 2
)

// SlotSeeder seeds a freshly signed-up provider's calendar.
type SlotSeeder interface {
	GenerateInitial(ctx context.Context, providerID uuid.UUID) error
}

type Service struct {
	providers store.ProviderRepository
	seeder    SlotSeeder
	log       *slog.Logger

	now func() time.Time
}

func NewService(providers store.ProviderRepository, seeder SlotSeeder, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		providers: providers,
		seeder:    seeder,
		log:       log.With(slog.String("component", "providers")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
	Timezone string
}

// Signup registers a provider and seeds their calendar through the end
// of next month. Seeding failures are logged, not returned; the monthly
// batch will fill the gap.
func (s *Service) Signup(ctx context.Context, in SignupInput) (domain.Provider, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return domain.Provider{}, validationError("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.Provider{}, validationError("email is invalid")
	}
	if len(in.Password) < minPasswordLength {
		return domain.Provider{}, validationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	name := strings.TrimSpace(in.Name)
	if len(name) < minNameLength {
		return domain.Provider{}, validationError(fmt.Sprintf("name must be at least %d characters", minNameLength))
	}
	tz := strings.TrimSpace(in.Timezone)
	if _, err := domain.ParseOffset(tz); err != nil {
		return domain.Provider{}, validationError("timezone must be a signed HH:MM offset, for example +05:30")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.Provider{}, fmt.Errorf("hash password: %w", err)
	}

	sharable, err := ids.NewSharableID(s.now())
	if err != nil {
		return domain.Provider{}, fmt.Errorf("generate sharable id: %w", err)
	}

	provider, err := s.providers.Create(ctx, domain.Provider{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		SharableID:   sharable,
		Timezone:     tz,
	})
	if err != nil {
		return domain.Provider{}, err
	}

	s.log.Info(
		"provider signed up",
		slog.String("provider_id", provider.ID.String()),
		slog.String("timezone", tz),
	)

	if s.seeder != nil {
		if err := s.seeder.GenerateInitial(ctx, provider.ID); err != nil {
			s.log.Error(
				"initial slot generation failed",
				slog.Any("err", err),
				slog.String("provider_id", provider.ID.String()),
			)
		}
	}

	return provider, nil
}

// Login verifies credentials and returns the provider. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (domain.Provider, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.Provider{}, validationError("email and password are required")
	}

	provider, err := s.providers.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Provider{}, fmt.Errorf("invalid credentials: %w", store.ErrForbidden)
		}
		return domain.Provider{}, err
	}
	if !auth.CheckPassword(provider.PasswordHash, password) {
		return domain.Provider{}, fmt.Errorf("invalid credentials: %w", store.ErrForbidden)
	}
	return provider, nil
}

func (s *Service) Profile(ctx context.Context, providerID uuid.UUID) (domain.Provider, error) {
	return s.providers.FindByID(ctx, providerID)
}

// RotateSharableID replaces the provider's sharable id, invalidating any
// previously shared booking links.
func (s *Service) RotateSharableID(ctx context.Context, providerID uuid.UUID) (string, error) {
	sharable, err := ids.NewSharableID(s.now())
	if err != nil {
		return "", fmt.Errorf("generate sharable id: %w", err)
	}
	if err := s.providers.UpdateSharableID(ctx, providerID, sharable); err != nil {
		return "", err
	}
	s.log.Info("sharable id rotated", slog.String("provider_id", providerID.String()))
	return sharable, nil
}
