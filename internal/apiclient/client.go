package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/Skotchmaster/shopeasy/pkg/logging"
)

// Credentials supplies the token pair attached to outgoing requests and
// receives rotated tokens after a transparent refresh.
type Credentials interface {
	AccessToken() string
	RefreshToken() string
	Rotate(ctx context.Context, access, refresh string) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithCredentials returns a copy of the client bound to creds. The
// underlying http.Client and its connection pool are shared.
func (c *Client) WithCredentials(creds Credentials) *Client {
	cp := *c
	cp.creds = creds
	return &cp
}

// URL joins the base URL and path with exactly one slash.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	p, err := jsonPayload(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, p, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	p, err := jsonPayload(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, p, out)
}

// Delete sends an optional JSON body; the cart endpoints expect one.
func (c *Client) Delete(ctx context.Context, path string, body, out any) error {
	var p *payload
	if body != nil {
		var err error
		if p, err = jsonPayload(body); err != nil {
			return err
		}
	}
	return c.do(ctx, http.MethodDelete, path, p, out)
}

func (c *Client) PostMultipart(ctx context.Context, path string, form Form, out any) error {
	p, err := form.payload()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, p, out)
}

func (c *Client) PutMultipart(ctx context.Context, path string, form Form, out any) error {
	p, err := form.payload()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, p, out)
}

// Form is a multipart/form-data body. Fields keep their insertion order.
type Form struct {
	Fields []Field
	Files  []File
}

type Field struct {
	Name  string
	Value string
}

type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

func (f *Form) Add(name, value string) {
	f.Fields = append(f.Fields, Field{Name: name, Value: value})
}

func (f *Form) AddFile(field, filename, contentType string, data []byte) {
	f.Files = append(f.Files, File{Field: field, Filename: filename, ContentType: contentType, Data: data})
}

type payload struct {
	contentType string
	data        []byte
}

func jsonPayload(body any) (*payload, error) {
	if body == nil {
		body = struct{}{}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return &payload{contentType: "application/json", data: b}, nil
}

func (f Form) payload() (*payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fld := range f.Fields {
		if err := w.WriteField(fld.Name, fld.Value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", fld.Name, err)
		}
	}
	for _, file := range f.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", file.Field, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("write part %s: %w", file.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return &payload{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}

func (c *Client) do(ctx context.Context, method, path string, p *payload, out any) error {
	resp, err := c.send(ctx, method, path, p, c.accessToken())
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.canRefresh() {
		drain(resp)
		access, rErr := c.refresh(ctx)
		if rErr != nil {
			logging.FromContext(ctx).Warn("api_token_refresh_failed", "path", path, "error", rErr)
			return &Error{Method: method, Path: path, Status: http.StatusUnauthorized}
		}
		if resp, err = c.send(ctx, method, path, p, access); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, p *payload, access string) (*http.Response, error) {
	var body io.Reader
	if p != nil {
		body = bytes.NewReader(p.data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p != nil {
		req.Header.Set("Content-Type", p.contentType)
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.FromContext(ctx).Error("api_request_failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("do request: %w", err)
	}
	logging.FromContext(ctx).Debug("api_request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (c *Client) accessToken() string {
	if c.creds == nil {
		return ""
	}
	return c.creds.AccessToken()
}

func (c *Client) canRefresh() bool {
	return c.creds != nil && c.creds.RefreshToken() != ""
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	current := c.creds.RefreshToken()
	anon := *c
	anon.creds = nil

	pair, err := anon.RefreshToken(ctx, current)
	if err != nil {
		return "", err
	}
	if pair.Access == "" {
		return "", errors.New("refresh returned empty access token")
	}
	if pair.Refresh == "" {
		pair.Refresh = current
	}
	if err := c.creds.Rotate(ctx, pair.Access, pair.Refresh); err != nil {
		return "", fmt.Errorf("store rotated tokens: %w", err)
	}
	return pair.Access, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
