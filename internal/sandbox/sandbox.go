// Package sandbox manages temporary CodeArtifact repositories for test
// runs. Each sandbox is one repository under a shared domain, linked to
// the shared upstream repositories and tagged with an absolute expiry so
// the sweep can collect it if the owner never deletes it.
package sandbox

import (
	"context"
	"time"

	"github.com/IsaacVaswani-Casas/aws-cdk/internal/registry"
)

const (
	// DefaultDomain is the shared domain holding every test repository.
	DefaultDomain = "test-domain"

	// DefaultLifetime is how long a new sandbox lives before the sweep
	// may collect it.
	DefaultLifetime = 24 * time.Hour

	// DefaultTokenDuration is the validity window of issued auth tokens.
	DefaultTokenDuration = 12 * time.Hour

	namePrefix = "test-"
)

// Options configures sandbox provisioning. The zero value uses the
// shared defaults.
type Options struct {
	Domain        string
	Lifetime      time.Duration
	TokenDuration time.Duration

	// now is the clock used to stamp the collect-by tag and to run the
	// sweep. Overridden in tests.
	now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.Domain == "" {
		o.Domain = DefaultDomain
	}
	if o.Lifetime == 0 {
		o.Lifetime = DefaultLifetime
	}
	if o.TokenDuration == 0 {
		o.TokenDuration = DefaultTokenDuration
	}
	if o.now == nil {
		o.now = time.Now
	}
}

// Sandbox is a handle to one test repository. It is owned by the caller
// that created it until deleted or collected by the sweep.
type Sandbox struct {
	api  registry.API
	name string
	opts Options
}

// NewRandom provisions a sandbox under a randomly qualified name.
func NewRandom(ctx context.Context, api registry.API, opts Options) (*Sandbox, error) {
	return NewNamed(ctx, api, namePrefix+randomQualifier(), opts)
}

// NewNamed provisions a sandbox with a caller-supplied name. The shared
// domain and upstreams are ensured first; only the external-connection
// association is retried, everything else fails fast.
func NewNamed(ctx context.Context, api registry.API, name string, opts Options) (*Sandbox, error) {
	opts.applyDefaults()
	s := &Sandbox{api: api, name: name, opts: opts}
	if err := s.provision(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// FromExisting returns a handle to an already-provisioned repository
// without touching the registry. Existence is checked at first use:
// Login and Delete surface the registry's not-found behavior.
func FromExisting(api registry.API, name string, opts Options) *Sandbox {
	opts.applyDefaults()
	return &Sandbox{api: api, name: name, opts: opts}
}

// Name returns the sandbox repository name.
func (s *Sandbox) Name() string { return s.name }

// Domain returns the shared domain the sandbox lives in.
func (s *Sandbox) Domain() string { return s.opts.Domain }

func (s *Sandbox) provision(ctx context.Context) error {
	if err := registry.EnsureDomain(ctx, s.api, s.opts.Domain); err != nil {
		return err
	}
	if err := registry.EnsureUpstreams(ctx, s.api, s.opts.Domain); err != nil {
		return err
	}
	expiry := s.opts.now().Add(s.opts.Lifetime)
	return registry.CreateSandboxRepository(ctx, s.api, s.opts.Domain, s.name, expiry)
}

// Login issues a short-lived credential bundle for this sandbox: one
// auth token and one endpoint URL per package format.
func (s *Sandbox) Login(ctx context.Context) (*registry.Login, error) {
	return registry.FetchLogin(ctx, s.api, s.opts.Domain, s.name, s.opts.TokenDuration)
}

// Delete removes the sandbox repository. Deleting an already-deleted
// sandbox succeeds.
func (s *Sandbox) Delete(ctx context.Context) error {
	return registry.DeleteRepository(ctx, s.api, s.opts.Domain, s.name)
}

// GarbageCollect sweeps the shared domain for repositories past their
// collect-by tag. It is independent of any sandbox handle and a no-op
// when the domain does not exist. Returns the number of repositories
// collected.
func GarbageCollect(ctx context.Context, api registry.API, opts Options) (int, error) {
	opts.applyDefaults()
	return registry.Sweep(ctx, api, opts.Domain, opts.now())
}
