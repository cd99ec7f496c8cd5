package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 2 * time.Minute
	maxBodyBytes   = 32 << 20
)

// Client talks to the RAG backend's REST surface under /api/rags.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var out []Workspace
	if err := c.doJSON(ctx, "list rags", http.MethodGet, "/api/rags", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Workspace{}
	}
	return out, nil
}

func (c *Client) CreateWorkspace(ctx context.Context, name, model string) (Workspace, error) {
	var out Workspace
	err := c.doJSON(ctx, "create rag", http.MethodPost, "/api/rags", createRequest{Name: name, Model: model}, &out)
	return out, err
}

func (c *Client) DeleteWorkspace(ctx context.Context, ragID string) error {
	return c.doJSON(ctx, "delete rag", http.MethodDelete, ragPath(ragID), nil, nil)
}

// UploadDocuments streams files as a multipart form, one "files" part per
// file, and returns the workspace as the backend sees it afterwards.
func (c *Client) UploadDocuments(ctx context.Context, ragID string, files []File) (Workspace, error) {
	const op = "upload documents"
	if len(files) == 0 {
		return Workspace{}, fmt.Errorf("%s: no files", op)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		for _, f := range files {
			part, err := mw.CreateFormFile("files", f.Name)
			if err != nil {
				_ = pw.CloseWithError(fmt.Errorf("create form part %s: %w", f.Name, err))
				return
			}
			if _, err := io.Copy(part, f.Content); err != nil {
				_ = pw.CloseWithError(fmt.Errorf("copy %s: %w", f.Name, err))
				return
			}
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	var out Workspace
	err := c.do(ctx, op, http.MethodPost, ragPath(ragID)+"/documents", pr, mw.FormDataContentType(), &out)
	_ = pr.Close()
	return out, err
}

func (c *Client) DeleteDocument(ctx context.Context, ragID, docID string) (Workspace, error) {
	var out Workspace
	path := ragPath(ragID) + "/documents/" + url.PathEscape(docID)
	err := c.doJSON(ctx, "delete document", http.MethodDelete, path, nil, &out)
	return out, err
}

// Chat sends one user turn and returns the assistant's reply text.
func (c *Client) Chat(ctx context.Context, ragID, message string) (string, error) {
	const op = "chat"
	var out chatResponse
	if err := c.doJSON(ctx, op, http.MethodPost, ragPath(ragID)+"/chat", chatRequest{Message: message}, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", &ApplicationError{Op: op, Message: out.Error}
	}
	return out.Response, nil
}

// BuildIndex asks the backend to rebuild the workspace's vector index.
func (c *Client) BuildIndex(ctx context.Context, ragID string) (string, error) {
	const op = "build index"
	var out indexResponse
	if err := c.doJSON(ctx, op, http.MethodPost, ragPath(ragID)+"/index", nil, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", &ApplicationError{Op: op, Message: out.Error}
	}
	return out.Message, nil
}

// StorageStatus reports whether the workspace has a built index.
func (c *Client) StorageStatus(ctx context.Context, ragID string) (bool, error) {
	var out storageStatusResponse
	if err := c.doJSON(ctx, "storage status", http.MethodGet, ragPath(ragID)+"/storage_status", nil, &out); err != nil {
		return false, err
	}
	return out.HasStorage, nil
}

func ragPath(ragID string) string {
	return "/api/rags/" + url.PathEscape(ragID)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.log.Debug("request done",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return &ServerError{Op: op, Status: resp.StatusCode, Message: strings.TrimSpace(eb.Error)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
