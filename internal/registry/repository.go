package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact/types"
	"github.com/chainguard-dev/clog"
)

const (
	// TagCollectBy is the resource tag recording a sandbox repository's
	// expiry as a decimal epoch-millisecond timestamp. It is written
	// once at creation, never renewed, and read only by the sweep.
	TagCollectBy = "collect-by"

	repositoryDescription = "temporary repository for test runs"
)

var (
	errRepositoryDescribe = errors.New("failed to describe repository")
	errRepositoryCreate   = errors.New("failed to create repository")
	errRepositoryDelete   = errors.New("failed to delete repository")
)

// repositoryExists probes for a repository. Not-found is a negative
// result, not an error.
func repositoryExists(ctx context.Context, api API, domain, name string) (bool, error) {
	_, err := api.DescribeRepository(ctx, &codeartifact.DescribeRepositoryInput{
		Domain:     aws.String(domain),
		Repository: aws.String(name),
	})
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// CreateSandboxRepository creates name under domain, linked to the four
// shared upstreams and tagged to be collected after expiry. The domain
// and upstreams must already exist. Pre-existence is success: the probe
// absorbs it and the lifetime tag is never rewritten.
func CreateSandboxRepository(ctx context.Context, api API, domain, name string, expiry time.Time) error {
	log := clog.FromContext(ctx).With("domain", domain, "repository", name)

	exists, err := repositoryExists(ctx, api, domain, name)
	if err != nil {
		return fmt.Errorf("%w: %w", errRepositoryDescribe, err)
	}
	if exists {
		log.Debug("repository already provisioned")
		return nil
	}

	linked := make([]types.UpstreamRepository, 0, len(upstreams))
	for _, u := range upstreams {
		linked = append(linked, types.UpstreamRepository{RepositoryName: aws.String(u.name)})
	}

	log.Info("creating repository", "collect_by", expiry.UnixMilli())
	_, err = api.CreateRepository(ctx, &codeartifact.CreateRepositoryInput{
		Domain:      aws.String(domain),
		Repository:  aws.String(name),
		Description: aws.String(repositoryDescription),
		Upstreams:   linked,
		Tags: []types.Tag{{
			Key:   aws.String(TagCollectBy),
			Value: aws.String(strconv.FormatInt(expiry.UnixMilli(), 10)),
		}},
	})
	if err != nil {
		if IsConflict(err) {
			log.Debug("repository created by a concurrent caller")
			return nil
		}
		return fmt.Errorf("%w: %w", errRepositoryCreate, err)
	}
	log.Info("created repository")
	return nil
}

// DeleteRepository deletes name from domain. Not-found is success; any
// other failure surfaces to the caller.
func DeleteRepository(ctx context.Context, api API, domain, name string) error {
	log := clog.FromContext(ctx).With("domain", domain, "repository", name)

	_, err := api.DeleteRepository(ctx, &codeartifact.DeleteRepositoryInput{
		Domain:     aws.String(domain),
		Repository: aws.String(name),
	})
	if err != nil {
		if IsNotFound(err) {
			log.Debug("repository already deleted")
			return nil
		}
		return fmt.Errorf("%w: %w", errRepositoryDelete, err)
	}
	log.Info("deleted repository")
	return nil
}
