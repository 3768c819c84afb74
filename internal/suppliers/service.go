package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db/models"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/security"
)

// RegisterInput carries the plaintext credentials for a new supplier.
// They are sealed before anything touches the database.
type RegisterInput struct {
	Name            string                `validate:"required"`
	IntegrationMode enums.IntegrationMode `validate:"required"`
	APIKey          string
	APISecret       string
	WebhookSecret   string `validate:"required"`
}

// Credentials is the decrypted view handed to pull-mode ingestion jobs.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Service manages supplier onboarding and credential access.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Supplier, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	CredentialsFor(ctx context.Context, id uuid.UUID) (*Credentials, error)
	WebhookSecretFor(ctx context.Context, id uuid.UUID) (string, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type service struct {
	repo   Repository
	sealer *security.Sealer
}

// NewService wires a supplier service.
func NewService(repo Repository, sealer *security.Sealer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	if sealer == nil {
		return nil, fmt.Errorf("credential sealer required")
	}
	return &service{repo: repo, sealer: sealer}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Supplier, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name is required")
	}
	if !input.IntegrationMode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown integration mode").
			WithDetails(map[string]string{"integration_mode": string(input.IntegrationMode)})
	}
	if input.WebhookSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook secret is required")
	}

	supplier := &models.Supplier{
		ID:              uuid.New(),
		Name:            input.Name,
		IntegrationMode: input.IntegrationMode,
		WebhookSecret:   input.WebhookSecret,
		Active:          true,
	}

	if input.APIKey != "" {
		sealed, err := s.sealer.SealString(input.APIKey)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sealing api key")
		}
		supplier.APIKeySealed = sealed
	}
	if input.APISecret != "" {
		sealed, err := s.sealer.SealString(input.APISecret)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sealing api secret")
		}
		supplier.APISecretSealed = sealed
	}

	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating supplier")
	}
	return supplier, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading supplier")
	}
	return supplier, nil
}

func (s *service) CredentialsFor(ctx context.Context, id uuid.UUID) (*Credentials, error) {
	supplier, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	creds := &Credentials{}
	if len(supplier.APIKeySealed) > 0 {
		creds.APIKey, err = s.sealer.OpenString(supplier.APIKeySealed)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "opening api key")
		}
	}
	if len(supplier.APISecretSealed) > 0 {
		creds.APISecret, err = s.sealer.OpenString(supplier.APISecretSealed)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "opening api secret")
		}
	}
	return creds, nil
}

func (s *service) WebhookSecretFor(ctx context.Context, id uuid.UUID) (string, error) {
	supplier, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return supplier.WebhookSecret, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating supplier")
	}
	return nil
}
