package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"doc-translator/internal/domain"
	"doc-translator/internal/logging"
)

var samplePDF = domain.Document{
	Name:        "bill.pdf",
	ContentType: domain.ContentTypePDF,
	Data:        []byte("%PDF-1.4 source"),
}

func newTestClient(t *testing.T, baseURL string, maxResult int64) *Client {
	t.Helper()
	client, err := NewClient(Options{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		MaxResultBytes: maxResult,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

// assertFilePart checks the multipart upload carries the document unchanged.
func assertFilePart(t *testing.T, r *http.Request) {
	t.Helper()
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		t.Errorf("parse multipart: %v", err)
		return
	}
	file, header, err := r.FormFile(FormFieldFile)
	if err != nil {
		t.Errorf("form file: %v", err)
		return
	}
	defer file.Close()

	if header.Filename != "bill.pdf" {
		t.Errorf("filename = %q, want bill.pdf", header.Filename)
	}
	if got := header.Header.Get("Content-Type"); got != domain.ContentTypePDF {
		t.Errorf("part content type = %q, want %q", got, domain.ContentTypePDF)
	}
	data, _ := io.ReadAll(file)
	if string(data) != "%PDF-1.4 source" {
		t.Errorf("part body = %q", data)
	}
}

// TestClientSubmitSendsMultipartFile verifies the upload request shape.
func TestClientSubmitSendsMultipartFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PathUpload {
			t.Errorf("request = %s %s, want POST %s", r.Method, r.URL.Path, PathUpload)
		}
		assertFilePart(t, r)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "File uploaded successfully"})
	}))
	defer server.Close()

	ack, err := newTestClient(t, server.URL, 0).Submit(context.Background(), samplePDF)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if ack.StatusCode != http.StatusOK {
		t.Fatalf("ack status = %d, want 200", ack.StatusCode)
	}
	if ack.Message != "File uploaded successfully" {
		t.Fatalf("ack message = %q", ack.Message)
	}
}

// TestClientSubmitRejectsEmptyDocument checks no request is sent without content.
func TestClientSubmitRejectsEmptyDocument(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1", 0)
	if _, err := client.Submit(context.Background(), domain.Document{Name: "x.pdf"}); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("Submit() error = %v, want ErrNoDocument", err)
	}
}

// TestClientRetrieveReturnsDocument checks the bodiless processing request.
func TestClientRetrieveReturnsDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PathTranslate {
			t.Errorf("request = %s %s, want POST %s", r.Method, r.URL.Path, PathTranslate)
		}
		if body, _ := io.ReadAll(r.Body); len(body) != 0 {
			t.Errorf("retrieve body = %q, want empty", body)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="translated_bill.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4 translated"))
	}))
	defer server.Close()

	doc, err := newTestClient(t, server.URL, 0).Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if string(doc.Data) != "%PDF-1.4 translated" {
		t.Fatalf("data = %q", doc.Data)
	}
	if doc.ContentType != domain.ContentTypePDF {
		t.Fatalf("content type = %q, want %q", doc.ContentType, domain.ContentTypePDF)
	}
	if doc.Name != "translated_bill.pdf" {
		t.Fatalf("name = %q, want translated_bill.pdf", doc.Name)
	}
}

// TestClientSubmitAndRetrieveSendsFile checks the combined request shape.
func TestClientSubmitAndRetrieveSendsFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathTranslate {
			t.Errorf("path = %q, want %q", r.URL.Path, PathTranslate)
		}
		assertFilePart(t, r)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 translated"))
	}))
	defer server.Close()

	doc, err := newTestClient(t, server.URL, 0).SubmitAndRetrieve(context.Background(), samplePDF)
	if err != nil {
		t.Fatalf("SubmitAndRetrieve() error = %v", err)
	}
	if doc.Size() != len("%PDF-1.4 translated") {
		t.Fatalf("size = %d", doc.Size())
	}
}

// TestClientServiceFailureIsClassified checks non-2xx handling.
func TestClientServiceFailureIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"translation backend down"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 0).Submit(context.Background(), samplePDF)
	if !IsService(err) {
		t.Fatalf("error = %v, want service failure", err)
	}
	if IsTransport(err) {
		t.Fatal("service failure must not be transport")
	}
	if StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", StatusCode(err))
	}
	var tErr *Error
	if !errors.As(err, &tErr) || tErr.Message != "translation backend down" {
		t.Fatalf("message = %+v", tErr)
	}
}

// TestClientTransportFailureIsClassified checks unreachable service handling.
func TestClientTransportFailureIsClassified(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url, 0).Retrieve(context.Background())
	if !IsTransport(err) {
		t.Fatalf("error = %v, want transport failure", err)
	}
	if StatusCode(err) != 0 {
		t.Fatalf("status = %d, want 0", StatusCode(err))
	}
}

// TestClientEmptyResultIsServiceFailure checks 2xx without a body.
func TestClientEmptyResultIsServiceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 0).Retrieve(context.Background())
	if !IsService(err) || !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("error = %v, want service failure wrapping ErrEmptyResponse", err)
	}
}

// TestClientResultTooLarge checks the response body limit.
func TestClientResultTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 16).Retrieve(context.Background())
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("error = %v, want response too large", err)
	}
	if !IsService(err) {
		t.Fatalf("error = %v, want service classification", err)
	}
}

// TestClientPingAndVerify checks the auxiliary endpoints.
func TestClientPingAndVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathHealth:
			_, _ = w.Write([]byte("translation service running"))
		case PathVerify:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"PDF is valid","page_count":3,"is_encrypted":false}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	v, err := client.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if v.PageCount != 3 || v.IsEncrypted {
		t.Fatalf("verification = %+v", v)
	}
}

// TestNewClientRejectsRelativeURL checks base address validation.
func TestNewClientRejectsRelativeURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:5000", "ftp://host", "/upload"} {
		if _, err := NewClient(Options{BaseURL: raw}, logging.Discard()); err == nil {
			t.Fatalf("NewClient(%q) expected error", raw)
		}
	}
}
