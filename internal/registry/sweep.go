package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact"
	"github.com/chainguard-dev/clog"
)

var (
	errSweepList = errors.New("failed to list repositories in domain")
	errSweepTags = errors.New("failed to list repository tags")
)

// Sweep pages through every repository in domain and deletes those whose
// collect-by tag is in the past relative to now. Repositories without
// the tag are never touched. A missing domain is a no-op. Any failure
// part-way aborts the remaining sweep and surfaces; the count of
// repositories deleted so far is returned either way.
func Sweep(ctx context.Context, api API, domain string, now time.Time) (int, error) {
	log := clog.FromContext(ctx).With("domain", domain)

	_, err := api.DescribeDomain(ctx, &codeartifact.DescribeDomainInput{
		Domain: aws.String(domain),
	})
	if err != nil {
		if IsNotFound(err) {
			log.Debug("domain absent, nothing to sweep")
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %w", errDomainDescribe, err)
	}

	deleted := 0
	var nextToken *string
	for {
		page, err := api.ListRepositoriesInDomain(ctx, &codeartifact.ListRepositoriesInDomainInput{
			Domain:    aws.String(domain),
			NextToken: nextToken,
		})
		if err != nil {
			return deleted, fmt.Errorf("%w: %w", errSweepList, err)
		}

		for _, repo := range page.Repositories {
			expired, err := pastCollectBy(ctx, api, repo.Arn, now)
			if err != nil {
				return deleted, err
			}
			if !expired {
				continue
			}
			name := aws.ToString(repo.Name)
			log.Info("collecting expired repository", "repository", name)
			if err := DeleteRepository(ctx, api, domain, name); err != nil {
				return deleted, err
			}
			deleted++
		}

		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return deleted, nil
}

// pastCollectBy reads a repository's tags and reports whether its
// collect-by timestamp is before now. A missing tag, or one whose value
// does not parse as a decimal timestamp, marks the repository as not
// collectible.
func pastCollectBy(ctx context.Context, api API, arn *string, now time.Time) (bool, error) {
	tags, err := api.ListTagsForResource(ctx, &codeartifact.ListTagsForResourceInput{
		ResourceArn: arn,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", errSweepTags, err)
	}
	for _, tag := range tags.Tags {
		if aws.ToString(tag.Key) != TagCollectBy {
			continue
		}
		ms, err := strconv.ParseInt(aws.ToString(tag.Value), 10, 64)
		if err != nil {
			return false, nil
		}
		return ms < now.UnixMilli(), nil
	}
	return false, nil
}
