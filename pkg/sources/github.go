package sources

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kerbaras/skypack/pkg/config"
	"github.com/kerbaras/skypack/pkg/utils"
)

// contentsResponse is the GitHub contents API payload for a single file.
type contentsResponse struct {
	Type        string `json:"type"`
	Encoding    string `json:"encoding"`
	Content     string `json:"content"`
	DownloadURL string `json:"download_url"`
}

// GitHub reads files through the repository contents API.
type GitHub struct {
	api  *utils.API
	repo string
	ref  string
}

func NewGitHub(cfg config.GitHubConfig, client *http.Client) *GitHub {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	api := utils.NewAPI(baseURL, client)
	api.SetHeader("Accept", "application/vnd.github+json")
	api.SetHeader("X-GitHub-Api-Version", "2022-11-28")
	if cfg.Token != "" {
		api.SetHeader("Authorization", "Bearer "+cfg.Token)
	}
	return &GitHub{api: api, repo: cfg.Repo, ref: cfg.Ref}
}

func (g *GitHub) Name() string {
	return "github:" + g.repo
}

func (g *GitHub) Fetch(ctx context.Context, key string) ([]byte, error) {
	path := fmt.Sprintf("/repos/%s/contents/%s", g.repo, strings.TrimPrefix(key, "/"))

	var params url.Values
	if g.ref != "" {
		params = url.Values{"ref": {g.ref}}
	}

	var file contentsResponse
	if err := g.api.Get(ctx, path, params, &file); err != nil {
		return nil, mapStatus(key, err)
	}

	if file.Type != "" && file.Type != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", key, file.Type)
	}

	switch file.Encoding {
	case "base64":
		// the API wraps base64 content at 60 columns
		content := strings.ReplaceAll(file.Content, "\n", "")
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		return decoded, nil
	default:
		// files over the inline limit come back with encoding "none"
		if file.DownloadURL == "" {
			return nil, fmt.Errorf("%s has no inline content and no download url", key)
		}
		body, err := g.api.GetRaw(ctx, file.DownloadURL, nil)
		if err != nil {
			return nil, mapStatus(key, err)
		}
		return body, nil
	}
}

func mapStatus(key string, err error) error {
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return err
}
