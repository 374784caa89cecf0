// Package source loads raw user batches from the upstream users endpoint,
// spreadsheets or compressed snapshots, and shares them through a cache.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/phillip-england/empportal/internal/directory"
)

// DefaultEndpoint is the public demo users endpoint.
const DefaultEndpoint = "https://dummyjson.com/users"

const maxBodyBytes = 8 << 20

// ErrLoadFailure matches every LoadFailure via errors.Is.
var ErrLoadFailure = errors.New("load failure")

// LoadFailure is returned for any failed retrieval: transport errors,
// non-2xx statuses and undecodable bodies alike.
type LoadFailure struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *LoadFailure) Error() string {
	msg := "load users"
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": unexpected status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadFailure) Unwrap() error { return e.Err }

func (e *LoadFailure) Is(target error) bool { return target == ErrLoadFailure }

// Fetcher returns one batch of raw users.
type Fetcher interface {
	Fetch(ctx context.Context) ([]directory.RawUser, error)
}

type usersEnvelope struct {
	Users []directory.RawUser `json:"users"`
}

// HTTPFetcher issues a single GET against Endpoint.
type HTTPFetcher struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPFetcher(endpoint string, timeout time.Duration) *HTTPFetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &HTTPFetcher{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]directory.RawUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint, nil)
	if err != nil {
		return nil, &LoadFailure{Op: "request", URL: f.Endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &LoadFailure{Op: "transport", URL: f.Endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &LoadFailure{Op: "status", URL: f.Endpoint, StatusCode: resp.StatusCode}
	}

	users, err := decodeUsers(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &LoadFailure{Op: "decode", URL: f.Endpoint, Err: err}
	}
	return users, nil
}

func decodeUsers(r io.Reader) ([]directory.RawUser, error) {
	var payload usersEnvelope
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Users == nil {
		return nil, errors.New("response has no users array")
	}
	return payload.Users, nil
}
