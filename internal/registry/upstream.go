package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/IsaacVaswani-Casas/aws-cdk/internal/retry"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact/types"
	"github.com/chainguard-dev/clog"
)

// upstream is one of the fixed, long-lived repositories proxying a
// public package index. They are created once per domain and shared by
// every sandbox repository.
type upstream struct {
	name               string
	externalConnection string
	format             types.PackageFormat
}

var upstreams = []upstream{
	{"upstream-npm", "public:npmjs", types.PackageFormatNpm},
	{"upstream-pypi", "public:pypi", types.PackageFormatPypi},
	{"upstream-maven", "public:maven-central", types.PackageFormatMaven},
	{"upstream-nuget", "public:nuget-org", types.PackageFormatNuget},
}

// UpstreamNames returns the names of the shared upstream repositories,
// in the order sandbox repositories link to them.
func UpstreamNames() []string {
	names := make([]string, 0, len(upstreams))
	for _, u := range upstreams {
		names = append(names, u.name)
	}
	return names
}

// Formats returns one package format per supported ecosystem.
func Formats() []types.PackageFormat {
	formats := make([]types.PackageFormat, 0, len(upstreams))
	for _, u := range upstreams {
		formats = append(formats, u.format)
	}
	return formats
}

var (
	errUpstreamDescribe  = errors.New("failed to describe upstream repository")
	errUpstreamCreate    = errors.New("failed to create upstream repository")
	errUpstreamAssociate = errors.New("failed to associate external connection")
)

// associateRetry is the policy for the external-connection association,
// the one call in the provisioning sequence observed to be flaky. The
// remaining calls are deliberately not retried.
var associateRetry = retry.Default

// EnsureUpstreams makes sure the shared upstream repositories exist in
// the domain, each associated with its public external connection. A
// create lost to a racing caller is absorbed; the association is left to
// the caller that won the create.
func EnsureUpstreams(ctx context.Context, api API, domain string) error {
	log := clog.FromContext(ctx).With("domain", domain)

	for _, u := range upstreams {
		exists, err := repositoryExists(ctx, api, domain, u.name)
		if err != nil {
			return fmt.Errorf("%w: %w", errUpstreamDescribe, err)
		}
		if exists {
			continue
		}

		log.Info("creating upstream repository", "repository", u.name)
		_, err = api.CreateRepository(ctx, &codeartifact.CreateRepositoryInput{
			Domain:      aws.String(domain),
			Repository:  aws.String(u.name),
			Description: aws.String(fmt.Sprintf("proxy of %s", u.externalConnection)),
		})
		if err != nil {
			if IsConflict(err) {
				log.Debug("upstream created by a concurrent caller", "repository", u.name)
				continue
			}
			return fmt.Errorf("%w: %w", errUpstreamCreate, err)
		}

		_, err = retry.Do(ctx, associateRetry, func() (*codeartifact.AssociateExternalConnectionOutput, error) {
			return api.AssociateExternalConnection(ctx, &codeartifact.AssociateExternalConnectionInput{
				Domain:             aws.String(domain),
				Repository:         aws.String(u.name),
				ExternalConnection: aws.String(u.externalConnection),
			})
		})
		if err != nil {
			return fmt.Errorf("%w: %w", errUpstreamAssociate, err)
		}
		log.Info("associated external connection", "repository", u.name, "external_connection", u.externalConnection)
	}
	return nil
}
