package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: bad status: %s", e.URL, e.Status)
}

type API struct {
	client  *http.Client
	baseURL string
	headers http.Header
}

func NewAPI(baseURL string, client *http.Client) *API {
	if client == nil {
		client = http.DefaultClient
	}
	return &API{client: client, baseURL: baseURL, headers: http.Header{}}
}

func (a *API) BaseURL() string {
	return a.baseURL
}

// SetHeader adds a header sent with every request.
func (a *API) SetHeader(key, value string) {
	a.headers.Set(key, value)
}

// GetRaw fetches path (relative to the base URL, or absolute) and returns the body.
func (a *API) GetRaw(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := path
	if u, err := url.Parse(path); err != nil || !u.IsAbs() {
		target = a.baseURL + path
	}
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range a.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: target}
	}

	return io.ReadAll(resp.Body)
}

// Get fetches path and decodes the JSON body into v.
func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	body, err := a.GetRaw(ctx, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
