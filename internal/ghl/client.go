// Package ghl provides a minimal client for the GoHighLevel REST API.
package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ghl-mcp/internal/config"
	"ghl-mcp/internal/version"
)

// APIVersion is sent in the Version header on every GoHighLevel call.
const APIVersion = "2021-07-28"

// Client is a thin HTTP client for GoHighLevel. It never retries.
type Client struct {
	BaseURL        string
	WebhookBaseURL string
	APIKey         string
	SubAccountID   string
	HTTP           *http.Client
}

// New returns a client for the configured account. If httpClient is nil, one bounded by cfg.RequestTimeout is used.
func New(cfg *config.Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = config.DefaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		BaseURL:        strings.TrimRight(cfg.APIBaseURL, "/"),
		WebhookBaseURL: strings.TrimRight(cfg.WebhookBaseURL, "/"),
		APIKey:         cfg.APIKey,
		SubAccountID:   cfg.SubAccountID,
		HTTP:           httpClient,
	}
}

// Call issues one request against the REST API and returns the decoded JSON body of a 2xx response.
// The sub-account is sent as locationId unless params already carries one.
func (c *Client) Call(ctx context.Context, method, path string, params url.Values, body any) (any, error) {
	reqURL, err := c.buildURL(path, params)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Version", APIVersion)
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("X-Request-ID", requestID(ctx))

	status, raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, newUpstreamError(status, raw)
	}
	v, err := decodeJSON(raw)
	if err != nil {
		return nil, &DecodeError{StatusCode: status, Body: raw, Err: err}
	}
	return v, nil
}

// TriggerWebhook posts payload to a workflow webhook. target is either an absolute http(s) URL or the id of
// an inbound webhook trigger on the configured sub-account.
func (c *Client) TriggerWebhook(ctx context.Context, target string, payload any) (any, error) {
	hookURL, err := c.webhookURL(target)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hookURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("X-Request-ID", requestID(ctx))

	status, raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, newUpstreamError(status, raw)
	}

	// Webhook endpoints are not bound to answer JSON; plain text is handed back as-is.
	var response any = string(raw)
	if v, err := decodeJSON(raw); err == nil && v != nil {
		response = v
	}
	return map[string]any{
		"status":     "success",
		"statusCode": status,
		"response":   response,
	}, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", req.Method).Str("url", req.URL.Redacted()).Msg("GHL request failed")
		return 0, nil, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: fmt.Errorf("read body: %w", err)}
	}
	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("GHL request")
	return resp.StatusCode, raw, nil
}

// buildURL joins the base URL and path and merges the query parameters.
func (c *Client) buildURL(path string, params url.Values) (string, error) {
	u, err := url.Parse(c.BaseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid request url: %w", err)
	}
	q := u.Query()
	for k, vals := range params {
		for _, v := range vals {
			q.Add(k, v)
		}
	}
	if q.Get("locationId") == "" && c.SubAccountID != "" {
		q.Set("locationId", c.SubAccountID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) webhookURL(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.New("webhook target is empty")
	}
	if strings.Contains(target, "://") {
		u, err := url.ParseRequestURI(target)
		if err != nil {
			return "", fmt.Errorf("invalid webhook url: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("invalid webhook url: %q", target)
		}
		return u.String(), nil
	}
	return fmt.Sprintf("%s/%s/webhook-trigger/%s",
		c.WebhookBaseURL, url.PathEscape(c.SubAccountID), url.PathEscape(target)), nil
}

// decodeJSON decodes a body into a generic value. Numbers keep their literal form so they survive re-encoding.
func decodeJSON(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func userAgent() string {
	return "ghl-mcp/" + version.GetVersion()
}
