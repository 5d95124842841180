package sandbox

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/IsaacVaswani-Casas/aws-cdk/internal/registry"
	"github.com/IsaacVaswani-Casas/aws-cdk/internal/registry/registrytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ registry.API = (*registrytest.Fake)(nil)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewNamedProvisions(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()
	created := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)

	s, err := NewNamed(ctx, fake, "test-myrepo", Options{now: fixedNow(created)})
	require.NoError(t, err)
	assert.Equal(t, "test-myrepo", s.Name())
	assert.Equal(t, DefaultDomain, s.Domain())

	// Domain, four upstreams, one sandbox repository.
	assert.Len(t, fake.RepoNames(DefaultDomain), 5)
	repo := fake.Repo(DefaultDomain, "test-myrepo")
	require.NotNil(t, repo)
	assert.ElementsMatch(t, registry.UpstreamNames(), repo.Upstreams)

	wantExpiry := created.Add(DefaultLifetime).UnixMilli()
	assert.Equal(t, strconv.FormatInt(wantExpiry, 10), repo.Tags[registry.TagCollectBy])
}

func TestNewNamedIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()

	_, err := NewNamed(ctx, fake, "test-myrepo", Options{})
	require.NoError(t, err)
	_, err = NewNamed(ctx, fake, "test-myrepo", Options{})
	require.NoError(t, err, "provisioning the same name twice surfaces no duplicate-creation error")

	// One create for the sandbox itself on top of the four upstreams.
	assert.Equal(t, 5, fake.Calls("CreateRepository"))
}

func TestNewRandomLogin(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()

	s, err := NewRandom(ctx, fake, Options{})
	require.NoError(t, err)
	assert.True(t, len(s.Name()) > len(namePrefix))

	login, err := s.Login(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, s.Name(), login.Repository)

	require.Len(t, login.Endpoints, 4)
	seen := map[string]bool{}
	for _, url := range login.Endpoints {
		assert.False(t, seen[url], "endpoints should be distinct per format")
		seen[url] = true
	}
}

func TestDeleteTwice(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()

	s, err := NewNamed(ctx, fake, "test-myrepo", Options{})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Delete(ctx))
	assert.Nil(t, fake.Repo(DefaultDomain, "test-myrepo"))
}

func TestFromExistingDefersNetworkCalls(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()

	s := FromExisting(fake, "test-elsewhere", Options{})
	assert.Empty(t, fake.Operations(), "referencing an existing sandbox performs no calls")

	// First use surfaces the registry's not-found behavior.
	_, err := s.Login(ctx)
	require.Error(t, err)
	assert.True(t, registry.IsNotFound(err))
}

func TestGarbageCollect(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)

	fake := registrytest.New()
	_, err := NewNamed(ctx, fake, "test-myrepo", Options{now: fixedNow(created)})
	require.NoError(t, err)

	t.Run("before expiry", func(t *testing.T) {
		deleted, err := GarbageCollect(ctx, fake, Options{now: fixedNow(created.Add(time.Hour))})
		require.NoError(t, err)
		assert.Zero(t, deleted)
		assert.NotNil(t, fake.Repo(DefaultDomain, "test-myrepo"))
	})

	t.Run("after expiry", func(t *testing.T) {
		deleted, err := GarbageCollect(ctx, fake, Options{now: fixedNow(created.Add(25 * time.Hour))})
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)
		assert.Nil(t, fake.Repo(DefaultDomain, "test-myrepo"))
	})

	t.Run("upstreams survive", func(t *testing.T) {
		assert.ElementsMatch(t, registry.UpstreamNames(), fake.RepoNames(DefaultDomain))
	})
}

func TestGarbageCollectDomainAbsent(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()

	deleted, err := GarbageCollect(ctx, fake, Options{})
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Equal(t, []string{"DescribeDomain"}, fake.Operations())
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	opts.applyDefaults()
	assert.Equal(t, DefaultDomain, opts.Domain)
	assert.Equal(t, 24*time.Hour, opts.Lifetime)
	assert.Equal(t, 12*time.Hour, opts.TokenDuration)
	assert.NotNil(t, opts.now)
}
