// Package webui implements the remote.Service interface against the Open
// WebUI REST API.
package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/kbimport/remote"
)

// Client talks to an Open WebUI instance. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// Post-upload processing poll. A zero waitTimeout disables polling and
	// the upload returns as soon as the file id is assigned.
	waitTimeout  time.Duration
	waitInterval time.Duration

	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Default is 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithProcessingWait makes UploadFile poll the file status until the service
// reports processing complete, up to timeout, checking every interval.
// A poll that times out still returns the file id; the document exists
// remotely even if its processing is unfinished.
func WithProcessingWait(timeout, interval time.Duration) Option {
	return func(c *Client) {
		c.waitTimeout = timeout
		c.waitInterval = interval
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewClient creates a client for the Open WebUI instance at baseURL,
// authenticating every request with the given API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HealthCheck verifies connectivity and credentials via the auths endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "health check"

	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/auths/", nil, "")
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(op, resp)
	}

	var user struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err == nil && user.Name != "" {
		c.logger.Debug("authenticated", "user", user.Name)
	}
	return nil
}

// CreateKnowledgeBase creates a named knowledge base and returns its id.
func (c *Client) CreateKnowledgeBase(ctx context.Context, name string) (string, error) {
	const op = "create knowledge base"

	if strings.TrimSpace(name) == "" {
		return "", &remote.Error{Kind: remote.KindValidation, Op: op, Message: "name cannot be empty"}
	}

	payload, err := json.Marshal(map[string]any{
		"name":        name,
		"description": "Knowledge base for " + name,
		"data":        map[string]any{},
	})
	if err != nil {
		return "", &remote.Error{Kind: remote.KindValidation, Op: op, Message: "encoding request", Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/knowledge/create", bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError(op, resp)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", &remote.Error{Kind: remote.KindTransient, Op: op, Message: "decoding response", Err: err}
	}
	if created.ID == "" {
		return "", &remote.Error{Kind: remote.KindTransient, Op: op, Message: "service returned no id"}
	}

	c.logger.Debug("created knowledge base", "name", name, "id", created.ID)
	return created.ID, nil
}

// FindKnowledgeBase looks up a knowledge base by exact name.
func (c *Client) FindKnowledgeBase(ctx context.Context, name string) (string, bool, error) {
	const op = "list knowledge bases"

	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/knowledge/", nil, "")
	if err != nil {
		return "", false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, statusError(op, resp)
	}

	var bases []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bases); err != nil {
		return "", false, &remote.Error{Kind: remote.KindTransient, Op: op, Message: "decoding response", Err: err}
	}

	for _, base := range bases {
		if base.Name == name {
			return base.ID, true, nil
		}
	}
	return "", false, nil
}

// UploadFile uploads a document as multipart form data and returns the
// remote file id. When processing wait is configured, it then polls the file
// status until the service reports completion or the wait budget expires.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (string, error) {
	const op = "upload file"

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", &remote.Error{Kind: remote.KindValidation, Op: op, Message: "building form", Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", &remote.Error{Kind: remote.KindValidation, Op: op, Message: "reading content", Err: err}
	}
	if err := form.Close(); err != nil {
		return "", &remote.Error{Kind: remote.KindValidation, Op: op, Message: "closing form", Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/files/", &body, form.FormDataContentType())
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError(op, resp)
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", &remote.Error{Kind: remote.KindTransient, Op: op, Message: "decoding response", Err: err}
	}
	if uploaded.ID == "" {
		return "", &remote.Error{Kind: remote.KindTransient, Op: op, Message: "service returned no id"}
	}

	if c.waitTimeout > 0 {
		c.waitForProcessing(ctx, uploaded.ID, filename)
	}
	return uploaded.ID, nil
}

// waitForProcessing polls the file status until the service marks it
// completed. A timeout is logged, not surfaced: the file id is valid either
// way, matching the service's eventual-processing model.
func (c *Client) waitForProcessing(ctx context.Context, fileID, filename string) {
	interval := c.waitInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	deadline := time.Now().Add(c.waitTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/files/"+url.PathEscape(fileID), nil, "")
		if err != nil {
			return
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			continue
		}

		var status struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK && decodeErr == nil && status.Data.Status == "completed" {
			c.logger.Debug("file processing complete", "file", filename, "id", fileID)
			return
		}
	}

	c.logger.Warn("file processing did not complete within wait budget", "file", filename, "id", fileID, "timeout", c.waitTimeout)
}

// AddFileToKnowledgeBase attaches an uploaded file to a knowledge base.
func (c *Client) AddFileToKnowledgeBase(ctx context.Context, kbID, fileID string) error {
	const op = "add file to knowledge base"

	if kbID == "" || fileID == "" {
		return &remote.Error{Kind: remote.KindValidation, Op: op, Message: "knowledge base id and file id are required"}
	}

	payload, err := json.Marshal(map[string]string{"file_id": fileID})
	if err != nil {
		return &remote.Error{Kind: remote.KindValidation, Op: op, Message: "encoding request", Err: err}
	}

	path := "/api/v1/knowledge/" + url.PathEscape(kbID) + "/file/add"
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(op, resp)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &remote.Error{Kind: remote.KindValidation, Op: "build request", Message: path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// transportError classifies a request-level failure. Context cancellation
// passes through untouched so retry loops can distinguish it.
func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &remote.Error{Kind: remote.KindTransient, Op: op, Message: "request failed", Err: err}
}

// statusError maps an unexpected HTTP status to the error taxonomy.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	// Only rate limiting, 5xx, and transport failures are worth retrying;
	// every other 4xx is a permanent rejection.
	kind := remote.KindTransient
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = remote.KindAuth
	case resp.StatusCode == http.StatusNotFound:
		kind = remote.KindNotFound
	case resp.StatusCode == http.StatusConflict:
		kind = remote.KindDuplicate
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = remote.KindTransient
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = remote.KindValidation
	}

	return &remote.Error{Kind: kind, Op: op, Status: resp.StatusCode, Message: message}
}

var _ remote.Service = (*Client)(nil)

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// String implements fmt.Stringer without leaking the API key.
func (c *Client) String() string {
	return fmt.Sprintf("webui client for %s", c.baseURL)
}
