package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact"
	"github.com/chainguard-dev/clog"
)

var (
	errDomainDescribe = errors.New("failed to describe domain")
	errDomainCreate   = errors.New("failed to create domain")
)

// EnsureDomain makes sure the shared domain exists, creating it when the
// probe comes back not-found. Two racing callers may both attempt the
// create; the loser's conflict is absorbed.
func EnsureDomain(ctx context.Context, api API, domain string) error {
	log := clog.FromContext(ctx).With("domain", domain)

	_, err := api.DescribeDomain(ctx, &codeartifact.DescribeDomainInput{
		Domain: aws.String(domain),
	})
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return fmt.Errorf("%w: %w", errDomainDescribe, err)
	}

	log.Info("creating domain")
	_, err = api.CreateDomain(ctx, &codeartifact.CreateDomainInput{
		Domain: aws.String(domain),
	})
	if err != nil {
		if IsConflict(err) {
			log.Debug("domain created by a concurrent caller")
			return nil
		}
		return fmt.Errorf("%w: %w", errDomainCreate, err)
	}
	log.Info("created domain")
	return nil
}
