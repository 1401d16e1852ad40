package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfigService manages tenants' gateway configs. Credentials are encrypted before
// they reach the store and decrypted only in Load and GetFullCredentials.
type ConfigService struct {
	store  Storage
	cipher Cipher
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewConfigService(store Storage, cipher Cipher, logger *zap.SugaredLogger) *ConfigService {
	return &ConfigService{store: store, cipher: cipher, logger: logger, now: time.Now}
}

// ConfigView is a config as listings show it.
type ConfigView struct {
	*GatewayConfig
	Credentials CredentialsMask `json:"credentials"`
}

func viewOf(cfg *GatewayConfig) ConfigView {
	return ConfigView{GatewayConfig: cfg, Credentials: MaskFor(cfg.Method)}
}

func (s *ConfigService) seal(method Method, creds Credentials) (string, error) {
	if creds == nil {
		return "", fmt.Errorf("%w: credentials are required", ErrValidation)
	}
	if creds.Method() != method {
		return "", fmt.Errorf("%w: %s credentials supplied for %s", ErrValidation, creds.Method(), method)
	}
	plain, err := EncodeCredentials(creds)
	if err != nil {
		return "", err
	}
	return s.cipher.Encrypt(plain)
}

func (s *ConfigService) open(cfg *GatewayConfig) (Credentials, error) {
	plain, err := s.cipher.Decrypt(cfg.EncryptedCredentials)
	if err != nil {
		return nil, err
	}
	creds, err := DecodeCredentials(cfg.Method, plain)
	if err != nil {
		return nil, fmt.Errorf("%w: stored credentials for config %s: %w", ErrCredential, cfg.ID, err)
	}
	return creds, nil
}

// Create stores a new config. Any non-deleted config for the same shop and method,
// active or not, makes this a duplicate.
func (s *ConfigService) Create(ctx context.Context, shopID uuid.UUID, method Method, creds Credentials) (ConfigView, error) {
	if !method.Valid() {
		return ConfigView{}, fmt.Errorf("%w: unsupported payment method %q", ErrValidation, method)
	}
	sealed, err := s.seal(method, creds)
	if err != nil {
		return ConfigView{}, err
	}

	now := s.now().UTC()
	cfg := &GatewayConfig{
		ID:                   uuid.New(),
		ShopID:               shopID,
		Method:               method,
		EncryptedCredentials: sealed,
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.store.WithTx(ctx, func(r Repos) error {
		existing, err := r.Configs.GetByShopAndMethod(ctx, shopID, method)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: shop %s already has a %s config", ErrConfiguration, shopID, method)
		}
		return r.Configs.Create(ctx, cfg)
	})
	if err != nil {
		return ConfigView{}, err
	}

	s.logger.Infow("gateway config created", "shop_id", shopID, "method", method, "config_id", cfg.ID)
	return viewOf(cfg), nil
}

// Get returns a non-deleted config without decrypting it.
func (s *ConfigService) Get(ctx context.Context, id uuid.UUID) (*GatewayConfig, error) {
	cfg, err := s.store.Repos().Configs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: gateway config %s", ErrNotFound, id)
	}
	return cfg, nil
}

// Load returns the decrypted credentials of a shop's active config for method.
func (s *ConfigService) Load(ctx context.Context, shopID uuid.UUID, method Method) (Credentials, error) {
	cfg, err := s.store.Repos().Configs.GetByShopAndMethod(ctx, shopID, method)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: no %s config for shop %s", ErrNotFound, method, shopID)
	}
	if !cfg.Active {
		return nil, fmt.Errorf("%w: %s is disabled for shop %s", ErrConfiguration, method, shopID)
	}
	creds, err := s.open(cfg)
	if err != nil {
		s.logger.Errorw("gateway credentials unreadable", "shop_id", shopID, "method", method, "config_id", cfg.ID, "err", err)
		return nil, err
	}
	return creds, nil
}

type ConfigUpdate struct {
	Credentials Credentials
	Active      *bool
}

// Update applies a partial update. Credentials are re-encrypted only when supplied.
func (s *ConfigService) Update(ctx context.Context, id uuid.UUID, upd ConfigUpdate) (ConfigView, error) {
	var out *GatewayConfig
	err := s.store.WithTx(ctx, func(r Repos) error {
		cfg, err := r.Configs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cfg == nil {
			return fmt.Errorf("%w: gateway config %s", ErrNotFound, id)
		}
		if upd.Credentials != nil {
			sealed, err := s.seal(cfg.Method, upd.Credentials)
			if err != nil {
				return err
			}
			cfg.EncryptedCredentials = sealed
		}
		if upd.Active != nil {
			cfg.Active = *upd.Active
		}
		cfg.UpdatedAt = s.now().UTC()
		if err := r.Configs.Update(ctx, cfg); err != nil {
			return err
		}
		out = cfg
		return nil
	})
	if err != nil {
		return ConfigView{}, err
	}

	s.logger.Infow("gateway config updated", "config_id", id, "rotated", upd.Credentials != nil, "active", out.Active)
	return viewOf(out), nil
}

func (s *ConfigService) ToggleActive(ctx context.Context, id uuid.UUID) (ConfigView, error) {
	var out *GatewayConfig
	err := s.store.WithTx(ctx, func(r Repos) error {
		cfg, err := r.Configs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cfg == nil {
			return fmt.Errorf("%w: gateway config %s", ErrNotFound, id)
		}
		cfg.Active = !cfg.Active
		cfg.UpdatedAt = s.now().UTC()
		if err := r.Configs.Update(ctx, cfg); err != nil {
			return err
		}
		out = cfg
		return nil
	})
	if err != nil {
		return ConfigView{}, err
	}
	return viewOf(out), nil
}

// SoftDelete flags the config as deleted. The row is kept for audit.
func (s *ConfigService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(r Repos) error {
		cfg, err := r.Configs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cfg == nil {
			return fmt.Errorf("%w: gateway config %s", ErrNotFound, id)
		}
		return r.Configs.SoftDelete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Infow("gateway config deleted", "config_id", id)
	return nil
}

// ListByShop returns masked views; nothing is decrypted.
func (s *ConfigService) ListByShop(ctx context.Context, shopID uuid.UUID) ([]ConfigView, error) {
	cfgs, err := s.store.Repos().Configs.ListByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	out := make([]ConfigView, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, viewOf(c))
	}
	return out, nil
}

// GetFullCredentials decrypts a config for an administrator. Callers are
// responsible for access control.
func (s *ConfigService) GetFullCredentials(ctx context.Context, id uuid.UUID) (*GatewayConfig, Credentials, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	creds, err := s.open(cfg)
	if err != nil {
		s.logger.Errorw("gateway credentials unreadable", "config_id", id, "err", err)
		return nil, nil, err
	}
	s.logger.Infow("full gateway credentials read", "config_id", id, "shop_id", cfg.ShopID, "method", cfg.Method)
	return cfg, creds, nil
}
