package attachment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/registry/registrytest"
)

const pdfBody = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n"

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// recordingConfirmer answers with answer and records every prompt.
type recordingConfirmer struct {
	answer  bool
	prompts []string
}

func (c *recordingConfirmer) Confirm(prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, nil
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{"pdf", "cr.pdf", pdfBody, false},
		{"upper-case extension", "CR.PDF", pdfBody, false},
		{"text extension", "notes.txt", pdfBody, true},
		{"pdf extension with text body", "fake.pdf", "just some text", true},
		{"png body", "image.pdf", "\x89PNG\r\n\x1a\n0000", true},
		{"no extension", "cr", pdfBody, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file, []byte(tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrNotPDF) {
				t.Errorf("err = %v, want ErrNotPDF", err)
			}
		})
	}
}

func TestUpload_NonPDFSendsNothing(t *testing.T) {
	backend := &registrytest.MockBackend{}
	confirm := &recordingConfirmer{answer: true}
	svc := NewService(backend, confirm)

	for _, path := range []string{
		writeTemp(t, "notes.txt", "hello"),
		writeTemp(t, "fake.pdf", "hello"),
	} {
		err := svc.Upload(context.Background(), registry.PartnerRow{ID: 1}, path)
		if !errors.Is(err, ErrNotPDF) {
			t.Errorf("Upload(%s) err = %v, want ErrNotPDF", filepath.Base(path), err)
		}
	}

	if n := len(backend.UploadCalls()); n != 0 {
		t.Errorf("backend uploads = %d, want 0", n)
	}
	if len(confirm.prompts) != 0 {
		t.Errorf("confirmation asked for an invalid file: %v", confirm.prompts)
	}
}

func TestUpload_CreateAndReplace(t *testing.T) {
	backend := &registrytest.MockBackend{}
	confirm := &recordingConfirmer{answer: true}
	svc := NewService(backend, confirm)
	path := writeTemp(t, "cr.pdf", pdfBody)

	rows := []registry.PartnerRow{
		{ID: 1, PartnerNumber: "P1001"},
		{ID: 2, PartnerNumber: "P1002", HasAttachment: true},
	}
	for _, row := range rows {
		if err := svc.Upload(context.Background(), row, path); err != nil {
			t.Fatalf("Upload(%d): %v", row.ID, err)
		}
	}

	calls := backend.UploadCalls()
	if len(calls) != 2 {
		t.Fatalf("uploads = %d, want 2", len(calls))
	}
	if calls[0].Replace || !calls[1].Replace {
		t.Errorf("replace flags = %v, %v; want false, true", calls[0].Replace, calls[1].Replace)
	}
	if calls[0].Name != "cr.pdf" || string(calls[0].Content) != pdfBody {
		t.Errorf("upload 0 = %q (%d bytes)", calls[0].Name, len(calls[0].Content))
	}
	if !strings.HasPrefix(confirm.prompts[0], "Upload cr.pdf for P1001") {
		t.Errorf("create prompt = %q", confirm.prompts[0])
	}
	if !strings.HasPrefix(confirm.prompts[1], "Replace the existing file for P1002") {
		t.Errorf("replace prompt = %q", confirm.prompts[1])
	}
}

func TestUpload_Declined(t *testing.T) {
	backend := &registrytest.MockBackend{}
	svc := NewService(backend, &recordingConfirmer{answer: false})

	err := svc.Upload(context.Background(), registry.PartnerRow{ID: 1}, writeTemp(t, "cr.pdf", pdfBody))
	if !errors.Is(err, ErrDeclined) {
		t.Errorf("err = %v, want ErrDeclined", err)
	}
	if n := len(backend.UploadCalls()); n != 0 {
		t.Errorf("backend uploads = %d, want 0", n)
	}
}

func TestUpload_BackendFailure(t *testing.T) {
	backend := &registrytest.MockBackend{
		UploadFileFunc: func(context.Context, int64, string, []byte, bool) error {
			return &registry.APIError{Status: 500, Message: "storage offline"}
		},
	}
	svc := NewService(backend, nil)

	err := svc.Upload(context.Background(), registry.PartnerRow{ID: 1}, writeTemp(t, "cr.pdf", pdfBody))
	if got := registry.UserMessage(err); got != "storage offline" {
		t.Errorf("UserMessage = %q, want storage offline", got)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	svc := NewService(&registrytest.MockBackend{}, nil)
	err := svc.Upload(context.Background(), registry.PartnerRow{ID: 1}, filepath.Join(t.TempDir(), "nope.pdf"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestReadFile_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.pdf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(MaxSize + 1); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := ReadFile(path); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestView_SurfacesBackendMessage(t *testing.T) {
	backend := &registrytest.MockBackend{
		Files: map[int64]*registry.File{1: {Name: "cr.pdf", Content: []byte(pdfBody)}},
	}
	svc := NewService(backend, nil)

	f, err := svc.View(context.Background(), 1)
	if err != nil || f.Name != "cr.pdf" {
		t.Fatalf("View(1) = %+v, %v", f, err)
	}

	_, err = svc.View(context.Background(), 2)
	if got := registry.UserMessage(err); got != "No attachment found" {
		t.Errorf("View(2) message = %q", got)
	}
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	row := registry.PartnerRow{ID: 4, PartnerNumber: "P1004"}
	f := &registry.File{Name: "cr.pdf", Content: []byte(pdfBody)}

	first, err := Save(dir, row, f)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := Save(dir, row, f)
	if err != nil {
		t.Fatalf("Save again: %v", err)
	}

	if filepath.Base(first) != "P1004_cr.pdf" {
		t.Errorf("first = %q", first)
	}
	if filepath.Base(second) != "P1004_cr_2.pdf" {
		t.Errorf("second = %q", second)
	}
	data, err := os.ReadFile(second)
	if err != nil || string(data) != pdfBody {
		t.Errorf("saved content = %q, %v", data, err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		row  registry.PartnerRow
		name string
		want string
	}{
		{registry.PartnerRow{ID: 1, PartnerNumber: "P1001"}, "cr.pdf", "P1001_cr.pdf"},
		{registry.PartnerRow{ID: 2}, "../../x.pdf", "partner-2_x.pdf"},
		{registry.PartnerRow{ID: 3, PartnerNumber: "P/3"}, "", "P_3_attachment.pdf"},
	}
	for _, tt := range tests {
		if got := FileName(tt.row, &registry.File{Name: tt.name}); got != tt.want {
			t.Errorf("FileName(%+v, %q) = %q, want %q", tt.row, tt.name, got, tt.want)
		}
	}
}
