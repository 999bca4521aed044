package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookcal/backend/internal/auth"
	"bookcal/backend/internal/domain"
	"bookcal/backend/internal/store"
)

type fakeProviderRepo struct {
	createFn           func(ctx context.Context, p domain.Provider) (domain.Provider, error)
	findByIDFn         func(ctx context.Context, id uuid.UUID) (domain.Provider, error)
	findByEmailFn      func(ctx context.Context, email string) (domain.Provider, error)
	findBySharableIDFn func(ctx context.Context, sharableID string) (domain.Provider, error)
	updateSharableIDFn func(ctx context.Context, id uuid.UUID, sharableID string) error
	listFn             func(ctx context.Context) ([]domain.Provider, error)
}

func (f *fakeProviderRepo) Create(ctx context.Context, p domain.Provider) (domain.Provider, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, p)
}

func (f *fakeProviderRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Provider, error) {
	if f.findByIDFn == nil {
		panic("FindByID not configured")
	}
	return f.findByIDFn(ctx, id)
}

func (f *fakeProviderRepo) FindByEmail(ctx context.Context, email string) (domain.Provider, error) {
	if f.findByEmailFn == nil {
		panic("FindByEmail not configured")
	}
	return f.findByEmailFn(ctx, email)
}

func (f *fakeProviderRepo) FindBySharableID(ctx context.Context, sharableID string) (domain.Provider, error) {
	if f.findBySharableIDFn == nil {
		panic("FindBySharableID not configured")
	}
	return f.findBySharableIDFn(ctx, sharableID)
}

func (f *fakeProviderRepo) UpdateSharableID(ctx context.Context, id uuid.UUID, sharableID string) error {
	if f.updateSharableIDFn == nil {
		panic("UpdateSharableID not configured")
	}
	return f.updateSharableIDFn(ctx, id, sharableID)
}

func (f *fakeProviderRepo) List(ctx context.Context) ([]domain.Provider, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx)
}

type fakeSeeder struct {
	fn func(ctx context.Context, providerID uuid.UUID) error
}

func (f *fakeSeeder) GenerateInitial(ctx context.Context, providerID uuid.UUID) error {
	if f.fn == nil {
		panic("GenerateInitial not configured")
	}
	return f.fn(ctx, providerID)
}

func TestSignup_CreatesProviderAndSeedsSlots(t *testing.T) {
	id := uuid.New()

	var created domain.Provider
	repo := &fakeProviderRepo{
		createFn: func(ctx context.Context, p domain.Provider) (domain.Provider, error) {
			created = p
			p.ID = id
			return p, nil
		},
	}
	var seededFor uuid.UUID
	seeder := &fakeSeeder{
		fn: func(ctx context.Context, providerID uuid.UUID) error {
			seededFor = providerID
			return nil
		},
	}

	svc := NewService(repo, seeder, nil)

	got, err := svc.Signup(context.Background(), SignupInput{
		Email:    " Owner@Example.COM ",
		Password: "hunter22",
		Name:     "  Dr. Owner ",
		Timezone: "+05:30",
	})
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}
	if created.Email != "owner@example.com" {
		t.Fatalf("email = %q, want lowercased trimmed", created.Email)
	}
	if created.Name != "Dr. Owner" {
		t.Fatalf("name = %q, want trimmed", created.Name)
	}
	if created.Timezone != "+05:30" {
		t.Fatalf("timezone = %q, want +05:30", created.Timezone)
	}
	if created.PasswordHash == "" || created.PasswordHash == "hunter22" {
		t.Fatalf("password was not hashed")
	}
	if !auth.CheckPassword(created.PasswordHash, "hunter22") {
		t.Fatalf("stored hash does not verify the password")
	}
	if len(created.SharableID) != 26 {
		t.Fatalf("sharable id = %q, want 26-char ulid", created.SharableID)
	}
	if seededFor != id {
		t.Fatalf("seeded for %s, want %s", seededFor, id)
	}
	if got.ID != id {
		t.Fatalf("returned id = %s, want %s", got.ID, id)
	}
}

func TestSignup_SeedFailureDoesNotFailSignup(t *testing.T) {
	repo := &fakeProviderRepo{
		createFn: func(ctx context.Context, p domain.Provider) (domain.Provider, error) {
			p.ID = uuid.New()
			return p, nil
		},
	}
	seeder := &fakeSeeder{
		fn: func(ctx context.Context, providerID uuid.UUID) error {
			return errors.New("database unavailable")
		},
	}

	svc := NewService(repo, seeder, nil)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "owner@example.com",
		Password: "hunter22",
		Name:     "Dr. Owner",
		Timezone: "+00:00",
	})
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	svc := NewService(&fakeProviderRepo{}, nil, nil)

	cases := []struct {
		name string
		in   SignupInput
	}{
		{"missing email", SignupInput{Password: "hunter22", Name: "Dr. Owner", Timezone: "+00:00"}},
		{"bad email", SignupInput{Email: "nope", Password: "hunter22", Name: "Dr. Owner", Timezone: "+00:00"}},
		{"short password", SignupInput{Email: "a@b.co", Password: "12345", Name: "Dr. Owner", Timezone: "+00:00"}},
		{"short name", SignupInput{Email: "a@b.co", Password: "hunter22", Name: "X", Timezone: "+00:00"}},
		{"bad timezone", SignupInput{Email: "a@b.co", Password: "hunter22", Name: "Dr. Owner", Timezone: "UTC+5"}},
		{"unpadded timezone", SignupInput{Email: "a@b.co", Password: "hunter22", Name: "Dr. Owner", Timezone: "+5:30"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tc.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
		})
	}
}

func TestSignup_DuplicateEmailConflict(t *testing.T) {
	repo := &fakeProviderRepo{
		createFn: func(ctx context.Context, p domain.Provider) (domain.Provider, error) {
			return domain.Provider{}, store.ErrConflict
		},
	}

	svc := NewService(repo, nil, nil)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "owner@example.com",
		Password: "hunter22",
		Name:     "Dr. Owner",
		Timezone: "+00:00",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want %v", err, store.ErrConflict)
	}
}

func TestLogin_Success(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	id := uuid.New()

	repo := &fakeProviderRepo{
		findByEmailFn: func(ctx context.Context, email string) (domain.Provider, error) {
			if email != "owner@example.com" {
				t.Fatalf("email = %q, want normalized", email)
			}
			return domain.Provider{ID: id, Email: email, PasswordHash: hash}, nil
		},
	}

	svc := NewService(repo, nil, nil)

	got, err := svc.Login(context.Background(), " Owner@Example.COM ", "hunter22")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if got.ID != id {
		t.Fatalf("id = %s, want %s", got.ID, id)
	}
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	known := &fakeProviderRepo{
		findByEmailFn: func(ctx context.Context, email string) (domain.Provider, error) {
			return domain.Provider{PasswordHash: hash}, nil
		},
	}
	unknown := &fakeProviderRepo{
		findByEmailFn: func(ctx context.Context, email string) (domain.Provider, error) {
			return domain.Provider{}, store.ErrNotFound
		},
	}

	_, errWrongPW := NewService(known, nil, nil).Login(context.Background(), "a@b.co", "wrong")
	_, errNoUser := NewService(unknown, nil, nil).Login(context.Background(), "a@b.co", "hunter22")

	if !errors.Is(errWrongPW, store.ErrForbidden) {
		t.Fatalf("wrong password error = %v, want %v", errWrongPW, store.ErrForbidden)
	}
	if !errors.Is(errNoUser, store.ErrForbidden) {
		t.Fatalf("unknown email error = %v, want %v", errNoUser, store.ErrForbidden)
	}
	if errWrongPW.Error() != errNoUser.Error() {
		t.Fatalf("messages differ: %q vs %q", errWrongPW, errNoUser)
	}
}

func TestRotateSharableID(t *testing.T) {
	id := uuid.New()

	var stored string
	repo := &fakeProviderRepo{
		updateSharableIDFn: func(ctx context.Context, gotID uuid.UUID, sharableID string) error {
			if gotID != id {
				t.Fatalf("id = %s, want %s", gotID, id)
			}
			stored = sharableID
			return nil
		},
	}

	svc := NewService(repo, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 11, 18, 10, 0, 0, 0, time.UTC) }

	got, err := svc.RotateSharableID(context.Background(), id)
	if err != nil {
		t.Fatalf("RotateSharableID error: %v", err)
	}
	if got != stored {
		t.Fatalf("returned %q, stored %q", got, stored)
	}
	if len(got) != 26 {
		t.Fatalf("sharable id = %q, want 26-char ulid", got)
	}
}
