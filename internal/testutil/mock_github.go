// Package testutil provides a mock GitHub REST API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock GitHub server for testing.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	requests          []string
}

// NewMockGitHub creates a new mock GitHub server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.requests = append(mock.requests, r.URL.RequestURI())
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPaginated serves pages as a page-numbered listing on path.
// The page query parameter selects a page (default 1) and every page but the
// last carries a Link header pointing at the next one.
func (m *MockGitHub) SetPaginated(path string, pages [][]map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				page = n
			}
		}

		writeRateLimitHeaders(w, "core")
		if page < 1 || page > len(pages) {
			writeJSON(w, http.StatusOK, []map[string]any{})
			return
		}

		if link := m.pageLinks(path, r, page, len(pages)); link != "" {
			w.Header().Set("Link", link)
		}
		writeJSON(w, http.StatusOK, pages[page-1])
	})
}

// SetOrganization serves a single organization document.
func (m *MockGitHub) SetOrganization(login string, body map[string]any) {
	m.SetHandler("/orgs/"+login, func(w http.ResponseWriter, r *http.Request) {
		writeRateLimitHeaders(w, "core")
		writeJSON(w, http.StatusOK, body)
	})
}

// SetSearchOrganizations serves a search-style body on /search/users.
func (m *MockGitHub) SetSearchOrganizations(totalCount int, items []map[string]any) {
	m.SetHandler("/search/users", func(w http.ResponseWriter, r *http.Request) {
		writeRateLimitHeaders(w, "search")
		writeJSON(w, http.StatusOK, map[string]any{
			"total_count":        totalCount,
			"incomplete_results": false,
			"items":              items,
		})
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGitHub) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Requests returns the request URIs received, in order.
func (m *MockGitHub) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.requests...)
}

func (m *MockGitHub) pageLinks(path string, r *http.Request, page, last int) string {
	perPage := r.URL.Query().Get("per_page")
	pageURL := func(n int) string {
		u := fmt.Sprintf("%s%s?page=%d", m.server.URL, path, n)
		if perPage != "" {
			u += "&per_page=" + perPage
		}
		return u
	}

	link := ""
	if page > 1 {
		link = fmt.Sprintf(`<%s>; rel="prev", <%s>; rel="first"`, pageURL(page-1), pageURL(1))
	}
	if page < last {
		next := fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`, pageURL(page+1), pageURL(last))
		if link != "" {
			link = next + ", " + link
		} else {
			link = next
		}
	}
	return link
}

// defaultHandler answers like GitHub does for unknown resources.
func (m *MockGitHub) defaultHandler(w http.ResponseWriter, r *http.Request) {
	writeRateLimitHeaders(w, "core")
	writeJSON(w, http.StatusNotFound, map[string]any{
		"message":           "Not Found",
		"documentation_url": "https://docs.github.com/rest",
	})
}

func writeRateLimitHeaders(w http.ResponseWriter, resource string) {
	w.Header().Set("X-RateLimit-Limit", "5000")
	w.Header().Set("X-RateLimit-Remaining", "4999")
	w.Header().Set("X-RateLimit-Used", "1")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
	w.Header().Set("X-RateLimit-Resource", resource)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Repo builds a repository item as GitHub lists it.
func Repo(id int, name string, size int) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        name,
		"full_name":   "org/" + name,
		"description": name + " repository",
		"size":        size,
		"private":     false,
	}
}

// Org builds an organization item as GitHub search lists it.
func Org(id int, login string) map[string]any {
	return map[string]any{
		"id":    id,
		"login": login,
		"type":  "Organization",
		"url":   "https://api.github.com/users/" + login,
	}
}

// NewHealthyResponse creates a standard 200 OK response with rate limit headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "5000",
			"X-RateLimit-Remaining": "4999",
			"X-RateLimit-Resource":  "core",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 403 response with an exhausted budget.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Used":      "60",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(30*time.Minute).Unix(), 10),
			"X-RateLimit-Resource":  "core",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServiceUnavailableResponse creates a 503 Service Unavailable response.
func NewServiceUnavailableResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"message": "Service Unavailable"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Server Error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
