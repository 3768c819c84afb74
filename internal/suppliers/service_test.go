package suppliers

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/security"
)

type fakeRepository struct {
	suppliers map[uuid.UUID]*models.Supplier
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{suppliers: make(map[uuid.UUID]*models.Supplier)}
}

func (f *fakeRepository) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(_ context.Context, supplier *models.Supplier) error {
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	f.suppliers[supplier.ID] = supplier
	return nil
}

func (f *fakeRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, ok := f.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return supplier, nil
}

func (f *fakeRepository) ListActive(_ context.Context) ([]models.Supplier, error) {
	var result []models.Supplier
	for _, s := range f.suppliers {
		if s.Active {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (f *fakeRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	supplier, ok := f.suppliers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	supplier.Active = active
	return nil
}

func (f *fakeRepository) UpdateCredentials(_ context.Context, supplier *models.Supplier) error {
	f.suppliers[supplier.ID] = supplier
	return nil
}

func newTestSealer(t *testing.T) *security.Sealer {
	t.Helper()
	sealer, err := security.NewSealer(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return sealer
}

func TestRegisterSealsCredentials(t *testing.T) {
	repo := newFakeRepository()
	svc, err := NewService(repo, newTestSealer(t))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	supplier, err := svc.Register(context.Background(), RegisterInput{
		Name:            "Aegean Coach Lines",
		IntegrationMode: enums.IntegrationModePull,
		APIKey:          "key-123",
		APISecret:       "secret-456",
		WebhookSecret:   "whsec-789",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !supplier.Active {
		t.Error("new supplier must start active")
	}
	if bytes.Contains(supplier.APIKeySealed, []byte("key-123")) {
		t.Error("api key stored in plaintext")
	}
	if bytes.Contains(supplier.APISecretSealed, []byte("secret-456")) {
		t.Error("api secret stored in plaintext")
	}

	creds, err := svc.CredentialsFor(context.Background(), supplier.ID)
	if err != nil {
		t.Fatalf("CredentialsFor: %v", err)
	}
	if creds.APIKey != "key-123" || creds.APISecret != "secret-456" {
		t.Errorf("round trip mismatch: %+v", creds)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := NewService(newFakeRepository(), newTestSealer(t))

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing name", RegisterInput{IntegrationMode: enums.IntegrationModeCSV, WebhookSecret: "x"}},
		{"bad mode", RegisterInput{Name: "X", IntegrationMode: "ftp", WebhookSecret: "x"}},
		{"missing webhook secret", RegisterInput{Name: "X", IntegrationMode: enums.IntegrationModeCSV}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.input)
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestWebhookSecretAndActivation(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(repo, newTestSealer(t))
	ctx := context.Background()

	supplier, err := svc.Register(ctx, RegisterInput{
		Name:            "Bosphorus Ferries",
		IntegrationMode: enums.IntegrationModeCSV,
		WebhookSecret:   "whsec-ferry",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	secret, err := svc.WebhookSecretFor(ctx, supplier.ID)
	if err != nil {
		t.Fatalf("WebhookSecretFor: %v", err)
	}
	if secret != "whsec-ferry" {
		t.Errorf("secret = %q", secret)
	}

	if err := svc.SetActive(ctx, supplier.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	got, _ := svc.Get(ctx, supplier.ID)
	if got.Active {
		t.Error("supplier should be deactivated")
	}

	if err := svc.SetActive(ctx, uuid.New(), true); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}
