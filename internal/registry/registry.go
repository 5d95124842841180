// Package registry orchestrates the CodeArtifact resources backing
// temporary test repositories: one shared domain, four shared upstream
// repositories proxying the public package indexes, and short-lived
// sandbox repositories tagged with an expiry consumed by the sweep.
//
// The shared domain and upstreams are lazily created through idempotent
// ensure operations. Multiple callers may race through the same
// probe-then-create sequence; the registry's own duplicate-resource
// rejection is absorbed, no locking is involved.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact/types"
	"github.com/aws/smithy-go"
)

// API is the subset of the CodeArtifact control plane this package
// consumes. *codeartifact.Client satisfies it.
type API interface {
	DescribeDomain(ctx context.Context, params *codeartifact.DescribeDomainInput, optFns ...func(*codeartifact.Options)) (*codeartifact.DescribeDomainOutput, error)
	CreateDomain(ctx context.Context, params *codeartifact.CreateDomainInput, optFns ...func(*codeartifact.Options)) (*codeartifact.CreateDomainOutput, error)
	DescribeRepository(ctx context.Context, params *codeartifact.DescribeRepositoryInput, optFns ...func(*codeartifact.Options)) (*codeartifact.DescribeRepositoryOutput, error)
	CreateRepository(ctx context.Context, params *codeartifact.CreateRepositoryInput, optFns ...func(*codeartifact.Options)) (*codeartifact.CreateRepositoryOutput, error)
	DeleteRepository(ctx context.Context, params *codeartifact.DeleteRepositoryInput, optFns ...func(*codeartifact.Options)) (*codeartifact.DeleteRepositoryOutput, error)
	AssociateExternalConnection(ctx context.Context, params *codeartifact.AssociateExternalConnectionInput, optFns ...func(*codeartifact.Options)) (*codeartifact.AssociateExternalConnectionOutput, error)
	GetAuthorizationToken(ctx context.Context, params *codeartifact.GetAuthorizationTokenInput, optFns ...func(*codeartifact.Options)) (*codeartifact.GetAuthorizationTokenOutput, error)
	GetRepositoryEndpoint(ctx context.Context, params *codeartifact.GetRepositoryEndpointInput, optFns ...func(*codeartifact.Options)) (*codeartifact.GetRepositoryEndpointOutput, error)
	ListRepositoriesInDomain(ctx context.Context, params *codeartifact.ListRepositoriesInDomainInput, optFns ...func(*codeartifact.Options)) (*codeartifact.ListRepositoriesInDomainOutput, error)
	ListTagsForResource(ctx context.Context, params *codeartifact.ListTagsForResourceInput, optFns ...func(*codeartifact.Options)) (*codeartifact.ListTagsForResourceOutput, error)
}

var _ API = (*codeartifact.Client)(nil)

// NewClient builds a CodeArtifact client from the default credential
// chain.
func NewClient(ctx context.Context, region string) (*codeartifact.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return codeartifact.NewFromConfig(cfg), nil
}

// IsNotFound reports whether err is the registry's "resource not found"
// condition. Existence probes and idempotent deletes treat it as a
// normal negative result rather than an error.
func IsNotFound(err error) bool {
	var nf *types.ResourceNotFoundException
	if errors.As(err, &nf) {
		return true
	}
	return hasErrorCode(err, "ResourceNotFoundException")
}

// IsConflict reports whether err is the registry's duplicate-resource
// rejection, raised when a racing caller created the resource first.
func IsConflict(err error) bool {
	var c *types.ConflictException
	if errors.As(err, &c) {
		return true
	}
	return hasErrorCode(err, "ConflictException")
}

// hasErrorCode matches errors that arrive as bare API errors rather
// than modeled exceptions, e.g. from mismatched service versions.
func hasErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
