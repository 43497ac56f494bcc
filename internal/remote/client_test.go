package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mastera/partnerdesk/internal/registry"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		URL:           srv.URL,
		Token:         "tok-123",
		AllowInsecure: true,
		Timeout:       5 * time.Second,
		RetryMax:      2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsHTTPWithoutAllowInsecure(t *testing.T) {
	if _, err := New(Config{URL: "http://registry:8090"}); err == nil {
		t.Fatal("New() should reject http:// without AllowInsecure")
	}
}

func TestNew_AllowsHTTPS(t *testing.T) {
	c, err := New(Config{URL: "https://registry.example.com/"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.baseURL != "https://registry.example.com" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
}

func TestNew_RejectsBadURLs(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"", "required"},
		{"ftp://registry:21", "http or https"},
		{"https://", "host"},
	}
	for _, tt := range tests {
		_, err := New(Config{URL: tt.url, AllowInsecure: true})
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("New(%q) err = %v, want mention of %q", tt.url, err, tt.want)
		}
	}
}

func TestListPartners_SendsQueryAndDecodes(t *testing.T) {
	var gotQuery, gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/BusinessPartner" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, `{"items":[{"id":1,"name1":"Acme","status":null}],"nextCursor":77,"hasNextPage":true}`)
	}))

	page, err := c.ListPartners(context.Background(), registry.ListRequest{
		Filters: registry.FilterSet{Company: "B100 - Wajhat Advanced Arch.", Type: registry.TypeVendors},
	})
	if err != nil {
		t.Fatalf("ListPartners: %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotQuery != "companyCode=B100&pageSize=10&typeName=Vend" {
		t.Errorf("query = %q", gotQuery)
	}
	if page.NextCursor != "77" || !page.HasNextPage {
		t.Errorf("cursor = %q hasNext = %v, want 77 true", page.NextCursor, page.HasNextPage)
	}
	if len(page.Items) != 1 || *page.Items[0].Name1 != "Acme" || page.Items[0].Status != nil {
		t.Errorf("items = %+v", page.Items)
	}
}

func TestListPartners_StringAndNullCursor(t *testing.T) {
	bodies := []string{
		`{"items":[],"nextCursor":"eyJpZCI6MTB9","hasNextPage":true}`,
		`{"items":[],"nextCursor":null,"hasNextPage":false}`,
	}
	want := []registry.Cursor{"eyJpZCI6MTB9", ""}
	var n int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, bodies[atomic.AddInt32(&n, 1)-1])
	}))

	for i := range bodies {
		page, err := c.ListPartners(context.Background(), registry.ListRequest{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if page.NextCursor != want[i] {
			t.Errorf("call %d: cursor = %q, want %q", i, page.NextCursor, want[i])
		}
	}
}

func TestListPartners_APIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "invalid cursor"})
	}))

	_, err := c.ListPartners(context.Background(), registry.ListRequest{Cursor: "garbage"})
	var apiErr *registry.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *registry.APIError", err)
	}
	if apiErr.Status != 400 || apiErr.Code != "bad_request" || apiErr.Message != "invalid cursor" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestListPartners_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "warming up"})
			return
		}
		io.WriteString(w, `{"items":[],"nextCursor":null,"hasNextPage":false}`)
	}))

	if _, err := c.ListPartners(context.Background(), registry.ListRequest{}); err != nil {
		t.Fatalf("ListPartners: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestListPartners_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{URL: url, AllowInsecure: true, RetryMax: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.ListPartners(context.Background(), registry.ListRequest{})
	if !errors.Is(err, registry.ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

func TestGetPartner(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/BusinessPartner/5":
			io.WriteString(w, `{"id":5,"partnerNumber":"P1005","taxDaysLeft":12,"hasFile":true}`)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "Partner 9 not found"})
		}
	}))

	p, err := c.GetPartner(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetPartner: %v", err)
	}
	row := registry.Project(*p)
	if row.PartnerNumber != "P1005" || row.TaxDaysLeft != 12 || !row.HasAttachment {
		t.Errorf("row = %+v", row)
	}

	_, err = c.GetPartner(context.Background(), 9)
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("GetPartner(9) err = %v, want ErrNotFound", err)
	}
}

func TestUploadFile_MultipartAndMethod(t *testing.T) {
	type seen struct {
		method, filename, ctype string
		body                    string
	}
	var got []seen
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/BusinessPartner/3/file" {
			t.Errorf("path = %q", r.URL.Path)
		}
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		part, err := mr.NextPart()
		if err != nil {
			t.Errorf("NextPart: %v", err)
			return
		}
		if part.FormName() != "file" {
			t.Errorf("form name = %q, want file", part.FormName())
		}
		data, _ := io.ReadAll(part)
		got = append(got, seen{r.Method, part.FileName(), part.Header.Get("Content-Type"), string(data)})
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}))

	if err := c.UploadFile(context.Background(), 3, "/tmp/cr.pdf", strings.NewReader("%PDF-1.4 a"), false); err != nil {
		t.Fatalf("UploadFile(create): %v", err)
	}
	if err := c.UploadFile(context.Background(), 3, "cr.pdf", strings.NewReader("%PDF-1.4 b"), true); err != nil {
		t.Fatalf("UploadFile(replace): %v", err)
	}

	want := []seen{
		{http.MethodPost, "cr.pdf", "application/pdf", "%PDF-1.4 a"},
		{http.MethodPut, "cr.pdf", "application/pdf", "%PDF-1.4 b"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(seen{})); diff != "" {
		t.Errorf("uploads (-want +got):\n%s", diff)
	}
}

func TestUploadFile_NotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "storage offline"})
	}))

	err := c.UploadFile(context.Background(), 3, "cr.pdf", strings.NewReader("%PDF-1.4"), false)
	if registry.UserMessage(err) != "storage offline" {
		t.Errorf("err = %v, want storage offline", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestViewFile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/BusinessPartner/1/file":
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `inline; filename="cr-1.pdf"`)
			io.WriteString(w, "%PDF-1.4 body")
		case "/api/BusinessPartner/2/file":
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "No attachment found"})
		case "/api/BusinessPartner/3/file":
			writeJSON(w, http.StatusOK, map[string]string{"message": "File is being scanned"})
		}
	}))

	f, err := c.ViewFile(context.Background(), 1)
	if err != nil {
		t.Fatalf("ViewFile(1): %v", err)
	}
	if f.Name != "cr-1.pdf" || f.ContentType != "application/pdf" || string(f.Content) != "%PDF-1.4 body" {
		t.Errorf("file = %+v", f)
	}

	_, err = c.ViewFile(context.Background(), 2)
	if got := registry.UserMessage(err); got != "No attachment found" {
		t.Errorf("ViewFile(2) message = %q, want verbatim backend message", got)
	}

	_, err = c.ViewFile(context.Background(), 3)
	if got := registry.UserMessage(err); got != "File is being scanned" {
		t.Errorf("ViewFile(3) message = %q", got)
	}
}

func TestAttachmentName(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`attachment; filename="cr.pdf"`, "cr.pdf"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{"", "partner-4.pdf"},
		{"inline", "partner-4.pdf"},
	}
	for _, tt := range tests {
		if got := attachmentName(tt.header, 4); got != tt.want {
			t.Errorf("attachmentName(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestSetToken(t *testing.T) {
	var auth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		io.WriteString(w, `{"items":[]}`)
	}))

	c.SetToken("")
	if _, err := c.ListPartners(context.Background(), registry.ListRequest{}); err != nil {
		t.Fatal(err)
	}
	if auth != "" {
		t.Errorf("Authorization = %q with no token", auth)
	}
}
