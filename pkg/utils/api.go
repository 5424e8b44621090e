package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

// DecodeError is returned when the response body is not the expected JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type API struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

func NewAPI(baseURL string, timeout time.Duration) *API {
	return &API{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: "mangaread/1.0",
	}
}

func (a *API) BaseURL() string {
	return a.baseURL
}

// URL renders the absolute request URL for path and params.
func (a *API) URL(path string, params url.Values) string {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return a.baseURL + path
}

func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL(path, params), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.userAgent)
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}
