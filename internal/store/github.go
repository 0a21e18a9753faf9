package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GitHubAPIBaseURL is the public GitHub REST endpoint.
const GitHubAPIBaseURL = "https://api.github.com"

// GitHub keeps the document as a file in a repository, written through the
// contents API. The version token is the file's blob SHA; every write is a commit.
type GitHub struct {
	baseURL string
	owner   string
	repo    string
	branch  string
	token   string
	client  *http.Client
}

// NewGitHub creates a driver for repo ("owner/name") on branch.
func NewGitHub(repo, branch, token, baseURL string) (*GitHub, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid repository %q: expected owner/name", repo)
	}
	if baseURL == "" {
		baseURL = GitHubAPIBaseURL
	}
	if branch == "" {
		branch = "main"
	}
	return &GitHub{
		baseURL: strings.TrimRight(baseURL, "/"),
		owner:   owner,
		repo:    name,
		branch:  branch,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type contentsFile struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type contentsUpdate struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

func (g *GitHub) Read(ctx context.Context, id string) (*Document, error) {
	endpoint := g.contentsURL(id) + "?ref=" + url.QueryEscape(g.branch)
	resp, err := g.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}

	var f contentsFile
	if err := json.Unmarshal(resp, &f); err != nil {
		return nil, fmt.Errorf("read %s: parsing response: %w", id, err)
	}
	if f.Encoding != "base64" {
		return nil, fmt.Errorf("read %s: unsupported encoding %q", id, f.Encoding)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(f.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("read %s: decoding content: %w", id, err)
	}
	return &Document{Content: string(data), Version: f.SHA}, nil
}

func (g *GitHub) Write(ctx context.Context, id, content, expectedVersion, message string) error {
	if err := g.put(ctx, id, content, expectedVersion, message); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}

func (g *GitHub) Create(ctx context.Context, id, content, message string) error {
	if err := g.put(ctx, id, content, "", message); err != nil {
		return fmt.Errorf("create %s: %w", id, err)
	}
	return nil
}

func (g *GitHub) put(ctx context.Context, id, content, sha, message string) error {
	body, err := json.Marshal(contentsUpdate{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		SHA:     sha,
		Branch:  g.branch,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	_, err = g.do(ctx, http.MethodPut, g.contentsURL(id), body)
	return err
}

func (g *GitHub) contentsURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		g.baseURL, url.PathEscape(g.owner), url.PathEscape(g.repo), strings.Join(segments, "/"))
}

func (g *GitHub) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnauthorized)
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrConflict)
	default:
		return nil, fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, snippet(respBody))
	}
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
