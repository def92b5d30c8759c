package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/careerpilot/authcore/jwt"
	"github.com/careerpilot/authcore/password"
	"github.com/careerpilot/authcore/refresh"
)

// Builder assembles an Engine. Configure it with the With* methods and call
// Build exactly once; a Builder is not safe for concurrent use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store    CredentialStore
	delivery ResetDelivery
	sink     AuditSink
	logger   *zap.Logger

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Zero-valued fields are filled
// from defaults during Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithSecret sets the JWT signing key without replacing the rest of the
// configuration.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.JWT.Secret = secret
	return b
}

// WithRedis sets the client backing the refresh registry, the login guard,
// and the reset store. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore sets the external store owning user credentials.
// Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithResetDelivery sets the collaborator that sends reset tokens to users.
// Optional; without it tokens are issued but never delivered, which is
// useful in tests.
func (b *Builder) WithResetDelivery(d ResetDelivery) *Builder {
	b.delivery = d
	return b
}

// WithAuditSink sets the destination for audit events. Defaults to NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the logger for degraded-path reporting. Defaults to
// zap.NewNop.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration, wires the internal stores, and returns
// a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	cfg.applyDefaults()

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	sink := b.sink
	if sink == nil {
		sink = NoOpSink{}
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b.built = true

	return &Engine{
		config:       cfg,
		store:        b.store,
		hasher:       hasher,
		tokens:       tokens,
		registry:     refresh.NewRegistry(b.redis, cfg.JWT.RefreshTTL),
		guard:        newLoginGuard(b.redis, cfg.Guard),
		resetStore:   newPasswordResetStore(b.redis),
		resetLimiter: newPasswordResetLimiter(b.redis, cfg.PasswordReset),
		delivery:     b.delivery,
		audit:        newAuditDispatcher(cfg.Audit, sink),
		logger:       logger,
	}, nil
}
