// Package siteconfig writes per-site key/value configuration on the static-site host.
package siteconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/retry"
	"github.com/sirupsen/logrus"
)

const (
	defaultAttempts = 3
	defaultStep     = time.Second
	requestTimeout  = 10 * time.Second

	contextAll = "all"
)

// Writer stores configuration values for a hosted site.
type Writer interface {
	// SetValue creates or overwrites key. It is safe to call again with the same arguments.
	SetValue(ctx context.Context, siteID, key, value string) error
	VerifySite(ctx context.Context, siteID string) error
}

// Netlify writes site environment variables through the Netlify API.
type Netlify struct {
	baseURL  string
	token    string
	client   *http.Client
	attempts int
	backoff  retry.Backoff
}

type Option func(*Netlify)

// WithRetry overrides the default of 3 attempts one second apart, growing linearly.
func WithRetry(attempts int, backoff retry.Backoff) Option {
	return func(n *Netlify) {
		n.attempts = attempts
		n.backoff = backoff
	}
}

func NewNetlify(baseURL, token string, opts ...Option) *Netlify {
	n := &Netlify{
		baseURL:  strings.TrimSuffix(baseURL, "/") + "/api/v1",
		token:    token,
		client:   &http.Client{Timeout: requestTimeout},
		attempts: defaultAttempts,
		backoff:  retry.Linear(defaultStep),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type envValue struct {
	Value   string `json:"value"`
	Context string `json:"context"`
}

type envVar struct {
	Key    string     `json:"key"`
	Values []envValue `json:"values"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.body)
}

func (n *Netlify) SetValue(ctx context.Context, siteID, key, value string) error {
	attempts, err := retry.Do(ctx, retry.Options{
		Attempts: n.attempts,
		Backoff:  n.backoff,
		OnRetry: func(attempt int, err error) {
			logrus.Warnf("Attempt %d failed for %s, retrying: %v", attempt, key, err)
		},
	}, func(ctx context.Context) error {
		return n.setValue(ctx, siteID, key, value)
	})
	if err != nil {
		logrus.Errorf("Final attempt failed for %s: %v", key, err)
		return &model.ConfigWriteError{Key: key, Attempts: attempts, Err: err}
	}
	return nil
}

func (n *Netlify) setValue(ctx context.Context, siteID, key, value string) error {
	keyURL := fmt.Sprintf("%s/sites/%s/env/%s", n.baseURL, url.PathEscape(siteID), url.PathEscape(key))
	variable := envVar{
		Key:    key,
		Values: []envValue{{Value: value, Context: contextAll}},
	}

	status, _, err := n.do(ctx, http.MethodGet, keyURL, nil)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusNotFound:
		envURL := fmt.Sprintf("%s/sites/%s/env", n.baseURL, url.PathEscape(siteID))
		return n.send(ctx, http.MethodPost, envURL, []envVar{variable})
	case status >= 200 && status <= 299:
		return n.send(ctx, http.MethodPut, keyURL, variable)
	default:
		return classify(&statusError{code: status, body: "failed to read existing value"})
	}
}

func (n *Netlify) send(ctx context.Context, method, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal payload: %w", err))
	}

	status, respBody, err := n.do(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return classify(&statusError{code: status, body: strings.TrimSpace(string(respBody))})
	}
	return nil
}

// classify stops retrying on client errors other than rate limiting; they will not fix themselves.
func classify(err *statusError) error {
	if err.code >= 400 && err.code < 500 && err.code != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

func (n *Netlify) VerifySite(ctx context.Context, siteID string) error {
	endpoint := fmt.Sprintf("%s/sites/%s", n.baseURL, url.PathEscape(siteID))
	status, _, err := n.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to verify site %s: %w", siteID, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("invalid site ID %s: HTTP %d", siteID, status)
	}
	return nil
}

func (n *Netlify) do(ctx context.Context, method, endpoint string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, retry.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}
