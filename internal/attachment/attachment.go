// Package attachment validates, uploads, views and saves the single PDF
// attachment a partner record may carry.
package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mastera/partnerdesk/internal/export"
	"github.com/mastera/partnerdesk/internal/fileutil"
	"github.com/mastera/partnerdesk/internal/registry"
)

// MaxSize is the largest attachment accepted for upload.
const MaxSize = 20 << 20

// NotPDFMessage is shown to the user when ErrNotPDF rejects a file.
const NotPDFMessage = "Only PDF files are allowed."

var (
	// ErrNotPDF rejects a file before any request is sent.
	ErrNotPDF = errors.New("only PDF files are allowed")

	// ErrDeclined is returned when the user does not confirm an upload.
	ErrDeclined = errors.New("upload cancelled")

	// ErrTooLarge rejects files above MaxSize.
	ErrTooLarge = fmt.Errorf("file exceeds the %d MB limit", MaxSize>>20)
)

// Confirmer asks the user to approve an upload. It is called synchronously
// before anything is sent.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) (bool, error)

func (f ConfirmFunc) Confirm(prompt string) (bool, error) { return f(prompt) }

// Confirmed approves every upload. Used when the caller has already asked.
var Confirmed Confirmer = ConfirmFunc(func(string) (bool, error) { return true, nil })

// Validate checks that name has a .pdf extension and content sniffs as PDF.
func Validate(name string, content []byte) error {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return fmt.Errorf("%s: %w", filepath.Base(name), ErrNotPDF)
	}
	if !mimetype.Detect(content).Is("application/pdf") {
		return fmt.Errorf("%s: %w", filepath.Base(name), ErrNotPDF)
	}
	return nil
}

// Prompt returns the confirmation question for uploading name to row. Rows
// that already carry an attachment are asked about replacing it.
func Prompt(row registry.PartnerRow, name string) string {
	who := row.PartnerNumber
	if who == "" {
		who = fmt.Sprintf("partner %d", row.ID)
	}
	if row.HasAttachment {
		return fmt.Sprintf("Replace the existing file for %s with %s?", who, filepath.Base(name))
	}
	return fmt.Sprintf("Upload %s for %s?", filepath.Base(name), who)
}

// Service runs attachment operations against a backend.
type Service struct {
	backend registry.Backend
	confirm Confirmer
}

// NewService returns a service that asks confirm before every upload. A nil
// confirm approves every upload.
func NewService(backend registry.Backend, confirm Confirmer) *Service {
	if confirm == nil {
		confirm = Confirmed
	}
	return &Service{backend: backend, confirm: confirm}
}

// ReadFile reads a local file for upload without following a final
// symlink, rejecting files above MaxSize.
func ReadFile(path string) ([]byte, error) {
	f, err := fileutil.OpenNoFollow(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrTooLarge)
	}
	return data, nil
}

// Upload validates the file at path, asks for confirmation and sends it.
// It creates the attachment, or replaces it when row already has one.
// Nothing is sent when validation fails or the user declines.
func (s *Service) Upload(ctx context.Context, row registry.PartnerRow, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotPDF)
	}
	data, err := ReadFile(path)
	if err != nil {
		return err
	}
	return s.UploadContent(ctx, row, filepath.Base(path), data)
}

// UploadContent is Upload for content already in memory.
func (s *Service) UploadContent(ctx context.Context, row registry.PartnerRow, name string, content []byte) error {
	if err := Validate(name, content); err != nil {
		return err
	}

	ok, err := s.confirm.Confirm(Prompt(row, name))
	if err != nil {
		return fmt.Errorf("confirm upload: %w", err)
	}
	if !ok {
		return ErrDeclined
	}

	if err := s.backend.UploadFile(ctx, row.ID, name, bytes.NewReader(content), row.HasAttachment); err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	return nil
}

// View downloads the attachment for a partner.
func (s *Service) View(ctx context.Context, id int64) (*registry.File, error) {
	f, err := s.backend.ViewFile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("view file: %w", err)
	}
	return f, nil
}

// FileName returns the local name for a downloaded attachment:
// "<partner number>_<file name>".
func FileName(row registry.PartnerRow, f *registry.File) string {
	prefix := row.PartnerNumber
	if prefix == "" {
		prefix = fmt.Sprintf("partner-%d", row.ID)
	}
	name := filepath.Base(f.Name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "attachment.pdf"
	}
	return export.SanitizeFilename(prefix + "_" + name)
}

// Save writes f into dir and returns the path written. An existing file is
// never overwritten; a numeric suffix is added instead.
func Save(dir string, row registry.PartnerRow, f *registry.File) (string, error) {
	if err := fileutil.MkdirPrivate(dir); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	name := FileName(row, f)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, i+1, ext)
		}
		path := filepath.Join(dir, candidate)

		out, err := fileutil.CreatePrivate(path)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		_, werr := out.Write(f.Content)
		cerr := out.Close()
		if werr != nil || cerr != nil {
			os.Remove(path)
			return "", fmt.Errorf("write %s: %w", path, errors.Join(werr, cerr))
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}
