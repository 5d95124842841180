package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact/types"
)

// Login is the short-lived credential bundle for one repository: an auth
// token plus one endpoint URL per supported package format. It is
// derived on demand and never persisted.
type Login struct {
	Repository string
	Token      string
	Expiration time.Time
	Endpoints  map[types.PackageFormat]string
}

var (
	errAuthorizationToken = errors.New("failed to get authorization token")
	errRepositoryEndpoint = errors.New("failed to get repository endpoint")
)

// FetchLogin issues one authorization-token request and one endpoint
// lookup per package format. The calls reject with not-found when the
// repository does not exist; that error surfaces unmodified inside the
// wrapped failure.
func FetchLogin(ctx context.Context, api API, domain, name string, tokenDuration time.Duration) (*Login, error) {
	token, err := api.GetAuthorizationToken(ctx, &codeartifact.GetAuthorizationTokenInput{
		Domain:          aws.String(domain),
		DurationSeconds: aws.Int64(int64(tokenDuration.Seconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errAuthorizationToken, err)
	}

	endpoints := make(map[types.PackageFormat]string, len(upstreams))
	for _, format := range Formats() {
		endpoint, err := api.GetRepositoryEndpoint(ctx, &codeartifact.GetRepositoryEndpointInput{
			Domain:     aws.String(domain),
			Repository: aws.String(name),
			Format:     format,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (%s): %w", errRepositoryEndpoint, format, err)
		}
		endpoints[format] = aws.ToString(endpoint.RepositoryEndpoint)
	}

	return &Login{
		Repository: name,
		Token:      aws.ToString(token.AuthorizationToken),
		Expiration: aws.ToTime(token.Expiration),
		Endpoints:  endpoints,
	}, nil
}
