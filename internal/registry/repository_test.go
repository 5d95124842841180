package registry

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/IsaacVaswani-Casas/aws-cdk/internal/registry/registrytest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSandboxRepository(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()
	fake.SeedDomain("test-domain")
	expiry := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	require.NoError(t, CreateSandboxRepository(ctx, fake, "test-domain", "test-0abc", expiry))

	repo := fake.Repo("test-domain", "test-0abc")
	require.NotNil(t, repo)
	assert.ElementsMatch(t, UpstreamNames(), repo.Upstreams)
	assert.Equal(t, strconv.FormatInt(expiry.UnixMilli(), 10), repo.Tags[TagCollectBy])
}

func TestCreateSandboxRepositoryIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()
	fake.SeedDomain("test-domain")
	first := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	require.NoError(t, CreateSandboxRepository(ctx, fake, "test-domain", "test-0abc", first))
	require.NoError(t, CreateSandboxRepository(ctx, fake, "test-domain", "test-0abc", first.Add(time.Hour)))

	assert.Equal(t, 1, fake.Calls("CreateRepository"), "exactly one repository created")
	repo := fake.Repo("test-domain", "test-0abc")
	require.NotNil(t, repo)
	assert.Equal(t, strconv.FormatInt(first.UnixMilli(), 10), repo.Tags[TagCollectBy],
		"lifetime tag is never renewed")
}

func TestCreateSandboxRepositoryAbsorbsConflict(t *testing.T) {
	// The probe misses but a racing caller creates the repository first.
	ctx := context.Background()
	fake := registrytest.New()
	fake.SeedDomain("test-domain")
	fake.DescribeRepositoryFunc = func(ctx context.Context, params *codeartifact.DescribeRepositoryInput) (*codeartifact.DescribeRepositoryOutput, error) {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	fake.CreateRepositoryFunc = func(ctx context.Context, params *codeartifact.CreateRepositoryInput) (*codeartifact.CreateRepositoryOutput, error) {
		return nil, &types.ConflictException{Message: aws.String("already exists")}
	}

	require.NoError(t, CreateSandboxRepository(ctx, fake, "test-domain", "test-0abc", time.Now()))
}

func TestCreateSandboxRepositoryOtherErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()
	fake.SeedDomain("test-domain")
	boom := errors.New("invalid repository name")
	fake.CreateRepositoryFunc = func(ctx context.Context, params *codeartifact.CreateRepositoryInput) (*codeartifact.CreateRepositoryOutput, error) {
		return nil, boom
	}

	err := CreateSandboxRepository(ctx, fake, "test-domain", "bad name", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, errRepositoryCreate)
	assert.ErrorIs(t, err, boom)
}

func TestDeleteRepositoryIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()
	fake.SeedRepo("test-domain", "test-0abc", nil)

	require.NoError(t, DeleteRepository(ctx, fake, "test-domain", "test-0abc"))
	require.NoError(t, DeleteRepository(ctx, fake, "test-domain", "test-0abc"),
		"second delete observes not-found and succeeds")
	assert.Equal(t, 2, fake.Calls("DeleteRepository"))
	assert.Nil(t, fake.Repo("test-domain", "test-0abc"))
}

func TestDeleteRepositoryOtherFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	fake := registrytest.New()
	boom := errors.New("access denied")
	fake.DeleteRepositoryFunc = func(ctx context.Context, params *codeartifact.DeleteRepositoryInput) (*codeartifact.DeleteRepositoryOutput, error) {
		return nil, boom
	}

	err := DeleteRepository(ctx, fake, "test-domain", "test-0abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, errRepositoryDelete)
	assert.ErrorIs(t, err, boom)
}
