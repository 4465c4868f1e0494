// Package gateway answers the organization and repository questions the
// upstream API cannot answer directly, by selecting an aggregation policy and
// a seed URL and running a pagination traversal for each inbound request.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/github-orgs-gateway/pkg/client"
	"github.com/Sternrassler/github-orgs-gateway/pkg/pagination"
	"github.com/Sternrassler/github-orgs-gateway/pkg/upstream"
)

// Paging defaults for the organization listing.
const (
	DefaultPage    = 1
	DefaultPerPage = 30
	MaxPerPage     = 100
)

// OrganizationNoun names organizations in error descriptions.
const OrganizationNoun = "Organization"

// CodeNoRepositories is attached to the not-found error of an organization without repositories.
const CodeNoRepositories = "ERR_NO_REPOSITORIES"

// searchQuery selects public organizations on the user search endpoint.
const searchQuery = "type:org public"

// Upstream is what the service needs from the upstream client.
type Upstream interface {
	pagination.PageFetcher
	FetchObject(ctx context.Context, url string) (client.Object, error)
	URL(path string, query url.Values) string
}

// Service implements the gateway operations.
type Service struct {
	upstream    Upstream
	driver      *pagination.Driver
	pageTimeout time.Duration
	logger      zerolog.Logger
}

// NewService creates a service whose traversals use cfg.
func NewService(up Upstream, cfg pagination.Config) *Service {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = pagination.DefaultConfig().PageTimeout
	}

	return &Service{
		upstream:    up,
		driver:      pagination.NewDriver(up, cfg),
		pageTimeout: cfg.PageTimeout,
		logger:      log.With().Str("component", "gateway").Logger(),
	}
}

// OrgSummary is one entry of the organization listing.
type OrgSummary struct {
	Login    any    `json:"login"`
	ID       any    `json:"id"`
	OrgRoute string `json:"org_route"`
}

// OrganizationList is the answer of ListOrganizations.
type OrganizationList struct {
	TotalCount int          `json:"TotalCount"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_Page"`
	Orgs       []OrgSummary `json:"orgs"`
}

// Organization is the answer of GetOrganization.
type Organization struct {
	Name              any            `json:"name"`
	TotalRepositories any            `json:"total_repositorys"`
	Data              map[string]any `json:"data"`
}

// Repository is one entry of a repository listing.
type Repository struct {
	ID          any `json:"id"`
	Name        any `json:"name"`
	Description any `json:"description"`
	Size        any `json:"size"`
}

// RepositoryList is the answer of ListRepositories.
type RepositoryList struct {
	Organization string       `json:"organization"`
	Repositories []Repository `json:"repositories"`
}

// BiggestRepository is the answer of BiggestRepository.
type BiggestRepository struct {
	ID   any `json:"id"`
	Name any `json:"name"`
	Size any `json:"size"`
}

// ListOrganizations returns one page of public organizations and the total
// the upstream reports. Out-of-range paging is normalized.
func (s *Service) ListOrganizations(ctx context.Context, page, perPage int) (*OrganizationList, error) {
	page, perPage = normalizePaging(page, perPage)

	seed := s.upstream.URL("/search/users", url.Values{
		"q":        {searchQuery},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	})

	result, err := s.driver.Traverse(ctx, pagination.Request{
		SeedURL:   seed,
		PageLimit: 1,
	}, pagination.NewCollectAll())
	if err != nil {
		return nil, err
	}

	orgs := make([]OrgSummary, 0, len(result.Items))
	for _, item := range result.Items {
		login, _ := item["login"].(string)
		orgs = append(orgs, OrgSummary{
			Login:    item["login"],
			ID:       item["id"],
			OrgRoute: "/orgs/" + login,
		})
	}

	total := result.TotalCount
	if total < 0 {
		total = len(orgs)
	}

	return &OrganizationList{
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		Orgs:       orgs,
	}, nil
}

// GetOrganization returns an organization's public repository count and its full document.
func (s *Service) GetOrganization(ctx context.Context, name string) (*Organization, error) {
	target := s.upstream.URL("/orgs/"+url.PathEscape(name), nil)
	subject := upstream.Subject{Noun: OrganizationNoun, Name: name, Route: target}

	fetchCtx, cancel := context.WithTimeout(ctx, s.pageTimeout)
	defer cancel()

	obj, err := s.upstream.FetchObject(fetchCtx, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("organization lookup abandoned: %w", ctxErr)
		}
		if errors.Is(err, upstream.ErrMalformedResponse) {
			return nil, upstream.Malformed(err, subject)
		}
		return nil, upstream.FromTransport(err, subject)
	}

	if obj.Status != http.StatusOK {
		return nil, upstream.Translate(obj.Status, obj.Code, subject)
	}

	return &Organization{
		Name:              obj.Body["login"],
		TotalRepositories: obj.Body["public_repos"],
		Data:              obj.Body,
	}, nil
}

// ListRepositories returns every public repository of an organization,
// following next links across all pages.
func (s *Service) ListRepositories(ctx context.Context, name string) (*RepositoryList, error) {
	seed := s.upstream.URL("/orgs/"+url.PathEscape(name)+"/repos", url.Values{
		"per_page": {strconv.Itoa(MaxPerPage)},
	})

	result, err := s.driver.Traverse(ctx, pagination.Request{
		SeedURL: seed,
		Subject: upstream.Subject{Noun: OrganizationNoun, Name: name},
	}, pagination.NewCollectAll())
	if err != nil {
		return nil, err
	}

	repos := make([]Repository, 0, len(result.Items))
	for _, item := range result.Items {
		repos = append(repos, Repository{
			ID:          item["id"],
			Name:        item["name"],
			Description: item["description"],
			Size:        item["size"],
		})
	}

	s.logger.Debug().
		Str("organization", name).
		Int("repositories", len(repos)).
		Int("pages", result.Pages).
		Msg("Listed repositories")

	return &RepositoryList{
		Organization: name,
		Repositories: repos,
	}, nil
}

// BiggestRepository returns the organization's largest repository by size.
// Ties keep the repository listed first.
func (s *Service) BiggestRepository(ctx context.Context, name string) (*BiggestRepository, error) {
	seed := s.upstream.URL("/orgs/"+url.PathEscape(name)+"/repos", url.Values{
		"page":     {"1"},
		"per_page": {strconv.Itoa(MaxPerPage)},
	})

	result, err := s.driver.Traverse(ctx, pagination.Request{
		SeedURL: seed,
		Subject: upstream.Subject{Noun: OrganizationNoun, Name: name},
	}, pagination.NewMaxByField("size"))
	if err != nil {
		return nil, err
	}

	if result.Best == nil {
		return nil, &upstream.Error{
			Status:      http.StatusNotFound,
			Code:        CodeNoRepositories,
			Kind:        upstream.KindNotFound,
			Description: fmt.Sprintf("%s '%s' has no public repositories.", OrganizationNoun, name),
		}
	}

	s.logger.Debug().
		Str("organization", name).
		Int("examined", result.Examined).
		Int("pages", result.Pages).
		Float64("size", result.BestValue).
		Msg("Found biggest repository")

	return &BiggestRepository{
		ID:   result.Best["id"],
		Name: result.Best["name"],
		Size: result.Best["size"],
	}, nil
}

func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}
