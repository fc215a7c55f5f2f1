package rotor

import (
	"errors"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/rotor-auth/rotor/events"
	"github.com/rotor-auth/rotor/password"
	"github.com/rotor-auth/rotor/session"
	"github.com/rotor-auth/rotor/token"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until the engine serves its first request.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	store     session.Store
	users     UserProvider
	publisher message.Publisher
	logger    *slog.Logger

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis backs the session store with the given Redis client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore injects a session store directly, overriding WithRedis.
// Tests and single-node deployments use this with [session.NewMemoryStore].
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithUserProvider injects the account collaborator. Required.
func (b *Builder) WithUserProvider(users UserProvider) *Builder {
	b.users = users
	return b
}

// WithEventPublisher attaches a watermill publisher for session lifecycle
// events. Optional; without it no events are emitted.
func (b *Builder) WithEventPublisher(publisher message.Publisher) *Builder {
	b.publisher = publisher
	return b
}

// WithLogger attaches a structured logger for infrastructure failures.
// Optional; the engine never logs credential outcomes.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration, wires the components, and returns the
// engine. A Builder builds at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.users == nil {
		return nil, errors.New("user provider is required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("session store is required: provide WithRedis or WithSessionStore")
		}
		store = session.NewRedisStore(b.redis, b.config.SessionPrefix)
	}

	issuer, err := token.NewIssuer(b.config.Token)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.config.Password)
	if err != nil {
		return nil, err
	}

	b.built = true
	return &Engine{
		config:   b.config,
		sessions: store,
		tokens:   issuer,
		hasher:   hasher,
		users:    b.users,
		emitter:  events.NewEmitter(b.publisher),
		metrics:  NewMetrics(),
		logger:   b.logger,
	}, nil
}
