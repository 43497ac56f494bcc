package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/scheduler"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, jsonRequest(t, http.MethodPost, "/SysUser/login", LoginRequest{Email: adminEmail, Password: password}), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	got := decode[LoginResponse](t, w)
	if !got.IsSuccess || got.Token == "" || got.Role != "Admin" {
		t.Errorf("login response = %+v", got)
	}

	// The issued token opens the API.
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/BusinessPartner", nil), got.Token)
	if w.Code != http.StatusOK {
		t.Errorf("GET with issued token = %d", w.Code)
	}
}

func TestLogin_Rejected(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		req    LoginRequest
		status int
	}{
		{"wrong password", LoginRequest{Email: adminEmail, Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", LoginRequest{Email: "ghost@example.com", Password: password}, http.StatusUnauthorized},
		{"bad email", LoginRequest{Email: "admin", Password: password}, http.StatusBadRequest},
		{"missing password", LoginRequest{Email: adminEmail}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, jsonRequest(t, http.MethodPost, "/SysUser/login", tt.req), "")
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if got := decode[LoginResponse](t, w); got.IsSuccess || got.Token != "" {
				t.Errorf("rejected login returned %+v", got)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	req := RegisterRequest{
		FullName:    "New Person",
		Email:       "new@example.com",
		Password:    "longenough",
		CompanyCode: "C100 - SIAC Construction",
	}
	w := env.do(t, jsonRequest(t, http.MethodPost, "/SysUser/createnewUser", req), "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := decode[RegisterResponse](t, w); !got.Success {
		t.Errorf("response = %+v", got)
	}

	u, err := env.store.Authenticate(context.Background(), "new@example.com", "longenough")
	if err != nil {
		t.Fatalf("Authenticate new user: %v", err)
	}
	if u.CompanyCode != "C100" || u.Role != "User" {
		t.Errorf("user = %+v, want company C100 role User", u)
	}
}

func TestRegister_Rejected(t *testing.T) {
	env := newTestEnv(t)

	valid := RegisterRequest{FullName: "X", Email: "x@example.com", Password: "longenough", CompanyCode: "B100"}
	tests := []struct {
		name    string
		mutate  func(r *RegisterRequest)
		status  int
		details string
	}{
		{"duplicate email", func(r *RegisterRequest) { r.Email = userEmail }, http.StatusConflict, "already registered"},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }, http.StatusBadRequest, "password must be at least 8 characters"},
		{"bad email", func(r *RegisterRequest) { r.Email = "nope" }, http.StatusBadRequest, "email must be a valid email address"},
		{"missing name", func(r *RegisterRequest) { r.FullName = "" }, http.StatusBadRequest, "fullName is required"},
		{"unknown company", func(r *RegisterRequest) { r.CompanyCode = "Z999" }, http.StatusBadRequest, "Unknown company code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			w := env.do(t, jsonRequest(t, http.MethodPost, "/SysUser/createnewUser", req), "")
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			got := decode[RegisterResponse](t, w)
			if got.Success || got.Message != "Registration failed." || !strings.Contains(got.Details, tt.details) {
				t.Errorf("response = %+v, want details containing %q", got, tt.details)
			}
		})
	}
}

func TestListPartners_FollowsCursors(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, userEmail)

	var cursor registry.Cursor
	total := 0
	for pages := 1; ; pages++ {
		q := url.Values{"pageSize": {"10"}}
		if !cursor.IsZero() {
			q.Set("cursor", string(cursor))
		}
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/BusinessPartner?"+q.Encode(), nil), tok)
		if w.Code != http.StatusOK {
			t.Fatalf("page %d status = %d, body %s", pages, w.Code, w.Body.String())
		}
		got := decode[ListResponse](t, w)
		total += len(got.Items)
		if !got.HasNextPage {
			if !got.NextCursor.IsZero() {
				t.Errorf("last page cursor = %q, want null", got.NextCursor)
			}
			if pages != 5 {
				t.Errorf("walked %d pages, want 5", pages)
			}
			break
		}
		if got.NextCursor.IsZero() {
			t.Fatalf("page %d has next page but no cursor", pages)
		}
		cursor = got.NextCursor
	}
	if total != 47 {
		t.Errorf("total rows = %d, want 47", total)
	}
}

func TestListPartners_Filters(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, userEmail)

	w := env.do(t, httptest.NewRequest(http.MethodGet,
		"/api/BusinessPartner?companyCode=B100&typeName=Vend&pageSize=10", nil), tok)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got := decode[ListResponse](t, w)
	if len(got.Items) != 2 || got.HasNextPage {
		t.Fatalf("got %d items (hasNext %v), want 2", len(got.Items), got.HasNextPage)
	}
	for _, p := range got.Items {
		row := registry.Project(p)
		if row.CompanyCode != "B100" || !strings.HasPrefix(row.TypeName, "Vend") {
			t.Errorf("row %s: company %q type %q", row.PartnerNumber, row.CompanyCode, row.TypeName)
		}
	}
}

func TestListPartners_BadCursor(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/BusinessPartner?cursor=%25%25", nil), env.token(t, userEmail))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetPartner(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, userEmail)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/BusinessPartner/1", nil), tok)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	row := registry.Project(decode[registry.RawPartner](t, w))
	if row.ID != 1 || row.PartnerNumber != "P1000" || !row.Blocked || row.BlockReason != "Non-compliance" {
		t.Errorf("row = %+v", row)
	}

	tests := []struct {
		path   string
		status int
	}{
		{"/api/BusinessPartner/999", http.StatusNotFound},
		{"/api/BusinessPartner/abc", http.StatusBadRequest},
		{"/api/BusinessPartner/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := env.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil), tok); w.Code != tt.status {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.status)
		}
	}
}

func TestUploadFile_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, adminEmail)
	const path = "/api/BusinessPartner/3/file"

	w := env.do(t, httptest.NewRequest(http.MethodGet, path, nil), tok)
	if w.Code != http.StatusNotFound || decode[ErrorResponse](t, w).Message != "No attachment found" {
		t.Fatalf("GET before upload = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, uploadRequest(t, http.MethodPut, path, "file", "contract.pdf", samplePDF), tok)
	if w.Code != http.StatusNotFound {
		t.Errorf("PUT before create = %d, want 404", w.Code)
	}

	w = env.do(t, uploadRequest(t, http.MethodPost, path, "file", "contract.pdf", samplePDF), tok)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST = %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, uploadRequest(t, http.MethodPost, path, "file", "contract.pdf", samplePDF), tok)
	if w.Code != http.StatusConflict {
		t.Errorf("second POST = %d, want 409", w.Code)
	}

	replacement := append([]byte(nil), samplePDF...)
	replacement = append(replacement, []byte("% v2\n")...)
	w = env.do(t, uploadRequest(t, http.MethodPut, path, "file", "contract-v2.pdf", replacement), tok)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT = %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, path, nil), tok)
	if w.Code != http.StatusOK {
		t.Fatalf("GET = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "contract-v2.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.String() != string(replacement) {
		t.Error("downloaded content differs from the replacement")
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/BusinessPartner/3", nil), tok)
	if row := registry.Project(decode[registry.RawPartner](t, w)); !row.HasAttachment {
		t.Error("HasAttachment = false after upload")
	}
}

func TestUploadFile_Rejected(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, adminEmail)
	user := env.token(t, userEmail)
	const path = "/api/BusinessPartner/2/file"

	tests := []struct {
		name   string
		req    func() *http.Request
		token  string
		status int
	}{
		{"role not allowed", func() *http.Request {
			return uploadRequest(t, http.MethodPost, path, "file", "a.pdf", samplePDF)
		}, user, http.StatusForbidden},
		{"not a pdf extension", func() *http.Request {
			return uploadRequest(t, http.MethodPost, path, "file", "a.txt", samplePDF)
		}, admin, http.StatusUnsupportedMediaType},
		{"not pdf content", func() *http.Request {
			return uploadRequest(t, http.MethodPost, path, "file", "a.pdf", []byte("hello world"))
		}, admin, http.StatusUnsupportedMediaType},
		{"wrong field", func() *http.Request {
			return uploadRequest(t, http.MethodPost, path, "document", "a.pdf", samplePDF)
		}, admin, http.StatusBadRequest},
		{"unknown partner", func() *http.Request {
			return uploadRequest(t, http.MethodPost, "/api/BusinessPartner/999/file", "file", "a.pdf", samplePDF)
		}, admin, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.req(), tt.token)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
		})
	}

	if _, err := env.store.GetFile(context.Background(), 2); err == nil {
		t.Error("a rejected upload stored a file")
	}
}

func TestSchedulerStatus(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, userEmail)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/scheduler/status", nil), tok)
	if got := decode[SchedulerStatusResponse](t, w); got.Running || len(got.Jobs) != 0 {
		t.Errorf("status without scheduler = %+v", got)
	}

	sched := scheduler.New().WithLogger(testLogger())
	if err := sched.AddJob("purge-sessions", "*/15 * * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := NewServer(env.cfg, env.store, sched, testLogger())
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/scheduler/status", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	srv.Router().ServeHTTP(w, req)

	got := decode[SchedulerStatusResponse](t, w)
	if !got.Running || len(got.Jobs) != 1 || got.Jobs[0].Name != "purge-sessions" {
		t.Errorf("status = %+v", got)
	}
}
