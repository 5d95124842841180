// Package registrytest provides an in-memory CodeArtifact fake for
// exercising the provisioning, login and sweep paths without AWS.
//
// The fake is stateful: created domains and repositories persist across
// calls, existence probes return the registry's not-found condition, and
// duplicate creates return its conflict condition. Individual operations
// can be overridden per test to inject failures.
package registrytest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact"
	"github.com/aws/aws-sdk-go-v2/service/codeartifact/types"
)

// Repo is the fake's record of one repository.
type Repo struct {
	Domain              string
	Name                string
	Description         string
	Arn                 string
	Upstreams           []string
	ExternalConnections []string
	Tags                map[string]string
}

// Fake implements the registry API surface against in-memory state.
type Fake struct {
	mu       sync.Mutex
	domains  map[string]bool
	repos    map[string]*Repo // keyed "domain/name"
	ops      []string
	tokenSeq int

	// PageSize caps repositories per ListRepositoriesInDomain page.
	// Zero returns everything in one page.
	PageSize int

	// Per-operation overrides. When set, the override replaces the
	// stateful behavior entirely (the operation is still recorded).
	DescribeDomainFunc              func(ctx context.Context, params *codeartifact.DescribeDomainInput) (*codeartifact.DescribeDomainOutput, error)
	CreateDomainFunc                func(ctx context.Context, params *codeartifact.CreateDomainInput) (*codeartifact.CreateDomainOutput, error)
	DescribeRepositoryFunc          func(ctx context.Context, params *codeartifact.DescribeRepositoryInput) (*codeartifact.DescribeRepositoryOutput, error)
	CreateRepositoryFunc            func(ctx context.Context, params *codeartifact.CreateRepositoryInput) (*codeartifact.CreateRepositoryOutput, error)
	DeleteRepositoryFunc            func(ctx context.Context, params *codeartifact.DeleteRepositoryInput) (*codeartifact.DeleteRepositoryOutput, error)
	AssociateExternalConnectionFunc func(ctx context.Context, params *codeartifact.AssociateExternalConnectionInput) (*codeartifact.AssociateExternalConnectionOutput, error)
	GetAuthorizationTokenFunc       func(ctx context.Context, params *codeartifact.GetAuthorizationTokenInput) (*codeartifact.GetAuthorizationTokenOutput, error)
	GetRepositoryEndpointFunc       func(ctx context.Context, params *codeartifact.GetRepositoryEndpointInput) (*codeartifact.GetRepositoryEndpointOutput, error)
	ListRepositoriesInDomainFunc    func(ctx context.Context, params *codeartifact.ListRepositoriesInDomainInput) (*codeartifact.ListRepositoriesInDomainOutput, error)
	ListTagsForResourceFunc         func(ctx context.Context, params *codeartifact.ListTagsForResourceInput) (*codeartifact.ListTagsForResourceOutput, error)
}

func New() *Fake {
	return &Fake{
		domains: map[string]bool{},
		repos:   map[string]*Repo{},
	}
}

func notFound(format string, args ...any) error {
	return &types.ResourceNotFoundException{Message: aws.String(fmt.Sprintf(format, args...))}
}

func conflict(format string, args ...any) error {
	return &types.ConflictException{Message: aws.String(fmt.Sprintf(format, args...))}
}

func repoKey(domain, name string) string {
	return domain + "/" + name
}

func repoArn(domain, name string) string {
	return fmt.Sprintf("arn:aws:codeartifact:us-west-2:123456789012:repository/%s/%s", domain, name)
}

// Operations returns the API operation names in invocation order.
func (f *Fake) Operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// Calls counts invocations of one operation.
func (f *Fake) Calls(op string) int {
	n := 0
	for _, o := range f.Operations() {
		if o == op {
			n++
		}
	}
	return n
}

// SeedDomain marks a domain as existing.
func (f *Fake) SeedDomain(domain string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domains[domain] = true
}

// SeedRepo installs a repository record directly, bypassing the API.
func (f *Fake) SeedRepo(domain, name string, tags map[string]string) *Repo {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domains[domain] = true
	r := &Repo{
		Domain: domain,
		Name:   name,
		Arn:    repoArn(domain, name),
		Tags:   tags,
	}
	if r.Tags == nil {
		r.Tags = map[string]string{}
	}
	f.repos[repoKey(domain, name)] = r
	return r
}

// Repo looks up a repository record, or nil.
func (f *Fake) Repo(domain, name string) *Repo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repos[repoKey(domain, name)]
}

// RepoNames returns the sorted repository names in a domain.
func (f *Fake) RepoNames(domain string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repoNamesLocked(domain)
}

func (f *Fake) repoNamesLocked(domain string) []string {
	var names []string
	for _, r := range f.repos {
		if r.Domain == domain {
			names = append(names, r.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (f *Fake) record(op string) {
	f.ops = append(f.ops, op)
}

func (f *Fake) DescribeDomain(ctx context.Context, params *codeartifact.DescribeDomainInput, _ ...func(*codeartifact.Options)) (*codeartifact.DescribeDomainOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DescribeDomain")
	if f.DescribeDomainFunc != nil {
		return f.DescribeDomainFunc(ctx, params)
	}
	domain := aws.ToString(params.Domain)
	if !f.domains[domain] {
		return nil, notFound("domain %s not found", domain)
	}
	return &codeartifact.DescribeDomainOutput{
		Domain: &types.DomainDescription{
			Name:   params.Domain,
			Status: types.DomainStatusActive,
		},
	}, nil
}

func (f *Fake) CreateDomain(ctx context.Context, params *codeartifact.CreateDomainInput, _ ...func(*codeartifact.Options)) (*codeartifact.CreateDomainOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateDomain")
	if f.CreateDomainFunc != nil {
		return f.CreateDomainFunc(ctx, params)
	}
	domain := aws.ToString(params.Domain)
	if f.domains[domain] {
		return nil, conflict("domain %s already exists", domain)
	}
	f.domains[domain] = true
	return &codeartifact.CreateDomainOutput{
		Domain: &types.DomainDescription{
			Name:   params.Domain,
			Status: types.DomainStatusActive,
		},
	}, nil
}

func (f *Fake) DescribeRepository(ctx context.Context, params *codeartifact.DescribeRepositoryInput, _ ...func(*codeartifact.Options)) (*codeartifact.DescribeRepositoryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DescribeRepository")
	if f.DescribeRepositoryFunc != nil {
		return f.DescribeRepositoryFunc(ctx, params)
	}
	r, ok := f.repos[repoKey(aws.ToString(params.Domain), aws.ToString(params.Repository))]
	if !ok {
		return nil, notFound("repository %s not found", aws.ToString(params.Repository))
	}
	return &codeartifact.DescribeRepositoryOutput{
		Repository: &types.RepositoryDescription{
			Name:       aws.String(r.Name),
			DomainName: aws.String(r.Domain),
			Arn:        aws.String(r.Arn),
		},
	}, nil
}

func (f *Fake) CreateRepository(ctx context.Context, params *codeartifact.CreateRepositoryInput, _ ...func(*codeartifact.Options)) (*codeartifact.CreateRepositoryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateRepository")
	if f.CreateRepositoryFunc != nil {
		return f.CreateRepositoryFunc(ctx, params)
	}
	domain := aws.ToString(params.Domain)
	name := aws.ToString(params.Repository)
	if !f.domains[domain] {
		return nil, notFound("domain %s not found", domain)
	}
	key := repoKey(domain, name)
	if _, ok := f.repos[key]; ok {
		return nil, conflict("repository %s already exists", name)
	}
	r := &Repo{
		Domain:      domain,
		Name:        name,
		Description: aws.ToString(params.Description),
		Arn:         repoArn(domain, name),
		Tags:        map[string]string{},
	}
	for _, u := range params.Upstreams {
		r.Upstreams = append(r.Upstreams, aws.ToString(u.RepositoryName))
	}
	for _, t := range params.Tags {
		r.Tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	f.repos[key] = r
	return &codeartifact.CreateRepositoryOutput{
		Repository: &types.RepositoryDescription{
			Name:       aws.String(r.Name),
			DomainName: aws.String(r.Domain),
			Arn:        aws.String(r.Arn),
		},
	}, nil
}

func (f *Fake) DeleteRepository(ctx context.Context, params *codeartifact.DeleteRepositoryInput, _ ...func(*codeartifact.Options)) (*codeartifact.DeleteRepositoryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteRepository")
	if f.DeleteRepositoryFunc != nil {
		return f.DeleteRepositoryFunc(ctx, params)
	}
	key := repoKey(aws.ToString(params.Domain), aws.ToString(params.Repository))
	if _, ok := f.repos[key]; !ok {
		return nil, notFound("repository %s not found", aws.ToString(params.Repository))
	}
	delete(f.repos, key)
	return &codeartifact.DeleteRepositoryOutput{}, nil
}

func (f *Fake) AssociateExternalConnection(ctx context.Context, params *codeartifact.AssociateExternalConnectionInput, _ ...func(*codeartifact.Options)) (*codeartifact.AssociateExternalConnectionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AssociateExternalConnection")
	if f.AssociateExternalConnectionFunc != nil {
		return f.AssociateExternalConnectionFunc(ctx, params)
	}
	r, ok := f.repos[repoKey(aws.ToString(params.Domain), aws.ToString(params.Repository))]
	if !ok {
		return nil, notFound("repository %s not found", aws.ToString(params.Repository))
	}
	r.ExternalConnections = append(r.ExternalConnections, aws.ToString(params.ExternalConnection))
	return &codeartifact.AssociateExternalConnectionOutput{}, nil
}

func (f *Fake) GetAuthorizationToken(ctx context.Context, params *codeartifact.GetAuthorizationTokenInput, _ ...func(*codeartifact.Options)) (*codeartifact.GetAuthorizationTokenOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetAuthorizationToken")
	if f.GetAuthorizationTokenFunc != nil {
		return f.GetAuthorizationTokenFunc(ctx, params)
	}
	domain := aws.ToString(params.Domain)
	if !f.domains[domain] {
		return nil, notFound("domain %s not found", domain)
	}
	f.tokenSeq++
	expiration := time.Now().Add(time.Duration(aws.ToInt64(params.DurationSeconds)) * time.Second)
	return &codeartifact.GetAuthorizationTokenOutput{
		AuthorizationToken: aws.String(fmt.Sprintf("token-%d", f.tokenSeq)),
		Expiration:         aws.Time(expiration),
	}, nil
}

func (f *Fake) GetRepositoryEndpoint(ctx context.Context, params *codeartifact.GetRepositoryEndpointInput, _ ...func(*codeartifact.Options)) (*codeartifact.GetRepositoryEndpointOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRepositoryEndpoint")
	if f.GetRepositoryEndpointFunc != nil {
		return f.GetRepositoryEndpointFunc(ctx, params)
	}
	domain := aws.ToString(params.Domain)
	name := aws.ToString(params.Repository)
	if _, ok := f.repos[repoKey(domain, name)]; !ok {
		return nil, notFound("repository %s not found", name)
	}
	endpoint := fmt.Sprintf("https://%s-123456789012.d.codeartifact.us-west-2.amazonaws.com/%s/%s/", domain, params.Format, name)
	return &codeartifact.GetRepositoryEndpointOutput{
		RepositoryEndpoint: aws.String(endpoint),
	}, nil
}

func (f *Fake) ListRepositoriesInDomain(ctx context.Context, params *codeartifact.ListRepositoriesInDomainInput, _ ...func(*codeartifact.Options)) (*codeartifact.ListRepositoriesInDomainOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListRepositoriesInDomain")
	if f.ListRepositoriesInDomainFunc != nil {
		return f.ListRepositoriesInDomainFunc(ctx, params)
	}
	domain := aws.ToString(params.Domain)
	if !f.domains[domain] {
		return nil, notFound("domain %s not found", domain)
	}

	names := f.repoNamesLocked(domain)
	start := 0
	if params.NextToken != nil {
		start, _ = strconv.Atoi(aws.ToString(params.NextToken))
	}
	end := len(names)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}

	out := &codeartifact.ListRepositoriesInDomainOutput{}
	for _, name := range names[start:end] {
		r := f.repos[repoKey(domain, name)]
		out.Repositories = append(out.Repositories, types.RepositorySummary{
			Name:       aws.String(r.Name),
			DomainName: aws.String(r.Domain),
			Arn:        aws.String(r.Arn),
		})
	}
	if end < len(names) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *Fake) ListTagsForResource(ctx context.Context, params *codeartifact.ListTagsForResourceInput, _ ...func(*codeartifact.Options)) (*codeartifact.ListTagsForResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTagsForResource")
	if f.ListTagsForResourceFunc != nil {
		return f.ListTagsForResourceFunc(ctx, params)
	}
	arn := aws.ToString(params.ResourceArn)
	for _, r := range f.repos {
		if r.Arn != arn {
			continue
		}
		out := &codeartifact.ListTagsForResourceOutput{}
		keys := make([]string, 0, len(r.Tags))
		for k := range r.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out.Tags = append(out.Tags, types.Tag{Key: aws.String(k), Value: aws.String(r.Tags[k])})
		}
		return out, nil
	}
	return nil, notFound("resource %s not found", arn)
}
