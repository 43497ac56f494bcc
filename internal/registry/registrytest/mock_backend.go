// Package registrytest provides shared test doubles for registry.Backend.
package registrytest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mastera/partnerdesk/internal/registry"
)

// Upload records one UploadFile call.
type Upload struct {
	ID      int64
	Name    string
	Content []byte
	Replace bool
}

// MockBackend implements registry.Backend for testing. Each method delegates
// to an optional function field; when the field is nil, a safe default is
// returned. Calls are recorded and safe for concurrent use.
type MockBackend struct {
	Page     *registry.ListPage
	Partners map[int64]*registry.RawPartner
	Files    map[int64]*registry.File

	ListPartnersFunc func(context.Context, registry.ListRequest) (*registry.ListPage, error)
	GetPartnerFunc   func(context.Context, int64) (*registry.RawPartner, error)
	UploadFileFunc   func(context.Context, int64, string, []byte, bool) error
	ViewFileFunc     func(context.Context, int64) (*registry.File, error)

	mu           sync.Mutex
	ListRequests []registry.ListRequest
	Uploads      []Upload
}

// Compile-time check.
var _ registry.Backend = (*MockBackend)(nil)

func (m *MockBackend) ListPartners(ctx context.Context, req registry.ListRequest) (*registry.ListPage, error) {
	m.mu.Lock()
	m.ListRequests = append(m.ListRequests, req)
	m.mu.Unlock()

	if m.ListPartnersFunc != nil {
		return m.ListPartnersFunc(ctx, req)
	}
	if m.Page != nil {
		return m.Page, nil
	}
	return &registry.ListPage{}, nil
}

func (m *MockBackend) GetPartner(ctx context.Context, id int64) (*registry.RawPartner, error) {
	if m.GetPartnerFunc != nil {
		return m.GetPartnerFunc(ctx, id)
	}
	if p, ok := m.Partners[id]; ok {
		return p, nil
	}
	return nil, &registry.APIError{Status: 404, Code: "not_found", Message: fmt.Sprintf("Partner %d not found", id)}
}

func (m *MockBackend) UploadFile(ctx context.Context, id int64, name string, content io.Reader, replace bool) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.Uploads = append(m.Uploads, Upload{ID: id, Name: name, Content: data, Replace: replace})
	m.mu.Unlock()

	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, id, name, data, replace)
	}
	return nil
}

func (m *MockBackend) ViewFile(ctx context.Context, id int64) (*registry.File, error) {
	if m.ViewFileFunc != nil {
		return m.ViewFileFunc(ctx, id)
	}
	if f, ok := m.Files[id]; ok {
		return f, nil
	}
	return nil, &registry.APIError{Status: 404, Code: "not_found", Message: "No attachment found"}
}

// ListCalls returns a copy of the recorded list requests.
func (m *MockBackend) ListCalls() []registry.ListRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]registry.ListRequest(nil), m.ListRequests...)
}

// UploadCalls returns a copy of the recorded uploads.
func (m *MockBackend) UploadCalls() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Upload(nil), m.Uploads...)
}

// Str returns a pointer to s, for building RawPartner fixtures.
func Str(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Partners builds n raw partners with IDs starting at firstID.
func Partners(firstID int64, n int) []registry.RawPartner {
	out := make([]registry.RawPartner, n)
	for i := range out {
		id := firstID + int64(i)
		out[i] = registry.RawPartner{
			ID:            id,
			PartnerNumber: Str(fmt.Sprintf("P%d", 1000+id)),
			Name1:         Str(fmt.Sprintf("Company %d", id)),
			Status:        Str(registry.StatusActive),
		}
	}
	return out
}
