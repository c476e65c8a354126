// Package transfer talks to the remote processing service: it submits source
// documents, retrieves processed results, and classifies every failure as
// either a transport or a service failure.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"doc-translator/internal/domain"
)

// Endpoints of the processing service.
const (
	PathHealth    = "/"
	PathUpload    = "/upload"
	PathTranslate = "/translate-pdf"
	PathVerify    = "/verify-pdf"

	// FormFieldFile is the multipart field carrying the document.
	FormFieldFile = "file"

	// errorBodyLimit caps how much of a non-document response is read.
	errorBodyLimit = 64 << 10
)

// ErrNoDocument is returned when an empty document is submitted.
var ErrNoDocument = errors.New("document has no content")

// Options configures a Client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	MaxResultBytes int64
	HTTPClient     *http.Client
}

// Ack is the service's acceptance of a submitted document.
type Ack struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
}

// Verification describes the document the service currently holds.
type Verification struct {
	Message     string `json:"message"`
	PageCount   int    `json:"page_count"`
	IsEncrypted bool   `json:"is_encrypted"`
}

// Client performs the HTTP exchanges with the processing service.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	maxResult int64
	logger    *slog.Logger
}

// NewClient validates the base address and builds a client.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) URL: %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		maxResult: opts.MaxResultBytes,
		logger:    logger.With("component", "transfer", "base_url", base.String()),
	}, nil
}

// Submit uploads doc as multipart field "file".
func (c *Client) Submit(ctx context.Context, doc domain.Document) (Ack, error) {
	body, contentType, err := multipartBody(doc)
	if err != nil {
		return Ack{}, err
	}

	resp, err := c.do(ctx, "submit", http.MethodPost, PathUpload, body, contentType)
	if err != nil {
		return Ack{}, err
	}
	defer resp.Body.Close()

	ack := Ack{StatusCode: resp.StatusCode}
	data, _ := readBody("submit", resp, errorBodyLimit)
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		ack.Message = payload.Message
	}

	c.logger.Debug("document submitted", "name", doc.Name, "status", resp.StatusCode)
	return ack, nil
}

// Retrieve asks the service to process the last submitted document and returns the result.
func (c *Client) Retrieve(ctx context.Context) (domain.Document, error) {
	return c.fetchDocument(ctx, "retrieve", nil, "")
}

// SubmitAndRetrieve sends doc with the processing request in a single round trip.
func (c *Client) SubmitAndRetrieve(ctx context.Context, doc domain.Document) (domain.Document, error) {
	body, contentType, err := multipartBody(doc)
	if err != nil {
		return domain.Document{}, err
	}
	return c.fetchDocument(ctx, "submit-and-retrieve", body, contentType)
}

// Ping checks that the service answers on its root path.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, "ping", http.MethodGet, PathHealth, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit))
	return nil
}

// Verify reports page count and encryption of the document the service holds.
func (c *Client) Verify(ctx context.Context) (Verification, error) {
	resp, err := c.do(ctx, "verify", http.MethodGet, PathVerify, nil, "")
	if err != nil {
		return Verification{}, err
	}
	defer resp.Body.Close()

	data, err := readBody("verify", resp, errorBodyLimit)
	if err != nil {
		return Verification{}, err
	}

	var v Verification
	if err := json.Unmarshal(data, &v); err != nil {
		return Verification{}, serviceError("verify", resp.StatusCode, "malformed response", err)
	}
	return v, nil
}

func (c *Client) fetchDocument(ctx context.Context, op string, body []byte, contentType string) (domain.Document, error) {
	resp, err := c.do(ctx, op, http.MethodPost, PathTranslate, body, contentType)
	if err != nil {
		return domain.Document{}, err
	}
	defer resp.Body.Close()

	data, err := readBody(op, resp, c.maxResult)
	if err != nil {
		return domain.Document{}, err
	}
	if len(data) == 0 {
		return domain.Document{}, serviceError(op, resp.StatusCode, "malformed response", ErrEmptyResponse)
	}

	c.logger.Debug("result received", "op", op, "bytes", len(data))
	return domain.Document{
		Name:        dispositionName(resp.Header.Get("Content-Disposition")),
		ContentType: resultContentType(resp.Header.Get("Content-Type")),
		Data:        data,
	}, nil
}

// do sends one request. Network errors become transport failures and non-2xx
// responses become service failures; on success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, contentType string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := readBody(op, resp, errorBodyLimit)
		return nil, serviceError(op, resp.StatusCode, serviceMessage(resp.StatusCode, data), nil)
	}

	return resp, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

// multipartBody encodes doc as a form with a single file part that keeps the declared media type.
func multipartBody(doc domain.Document) ([]byte, string, error) {
	if doc.IsEmpty() {
		return nil, "", ErrNoDocument
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     FormFieldFile,
		"filename": doc.Name,
	}))
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", fmt.Errorf("write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// serviceMessage extracts the service's JSON "error" field, falling back to the status text.
func serviceMessage(status int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.ToLower(http.StatusText(status))
}

// dispositionName returns the filename parameter of a Content-Disposition header, if any.
func dispositionName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// resultContentType treats untyped responses as PDF, which is what the service returns.
func resultContentType(header string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return domain.ContentTypePDF
	}
	return mediaType
}
