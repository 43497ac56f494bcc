// Package export bundles downloaded partner attachments into a zip archive.
package export

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mastera/partnerdesk/internal/fileutil"
	"golang.org/x/text/unicode/norm"
)

// Entry is one file to place in an archive.
type Entry struct {
	Name    string
	Content []byte
}

// Stats contains structured results of an archive export.
type Stats struct {
	Count      int
	Size       int64
	Errors     []string
	Path       string
	WriteError bool // a write failed and the archive was removed
}

// Archive writes entries into a new zip file at path. Duplicate names get a
// numeric suffix. The archive is removed when nothing was written or a
// write failed. An existing file at path is never overwritten.
func Archive(path string, entries []Entry) Stats {
	f, err := fileutil.CreatePrivate(path)
	if err != nil {
		return Stats{Errors: []string{fmt.Sprintf("failed to create zip file: %v", err)}}
	}

	zw := zip.NewWriter(f)
	var stats Stats
	usedNames := make(map[string]int)

	for _, e := range entries {
		if len(e.Content) == 0 {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: empty file skipped", e.Name))
			continue
		}
		w, err := zw.Create(uniqueName(e.Name, usedNames))
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: zip write error: %v", e.Name, err))
			stats.WriteError = true
			break
		}
		n, err := w.Write(e.Content)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: zip write error: %v", e.Name, err))
			stats.WriteError = true
			break
		}
		stats.Count++
		stats.Size += int64(n)
	}

	if err := zw.Close(); err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("zip finalization error: %v", err))
		stats.WriteError = true
	}
	if err := f.Close(); err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("file close error: %v", err))
		stats.WriteError = true
	}

	if stats.Count == 0 || stats.WriteError {
		os.Remove(path)
		return stats
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	stats.Path = path
	return stats
}

// FormatResult formats Stats into a human-readable summary.
func FormatResult(stats Stats) string {
	var msg string
	switch {
	case stats.WriteError:
		msg = "Export failed due to write errors. Zip file removed."
	case stats.Count == 0:
		msg = "No attachments exported."
	default:
		msg = fmt.Sprintf("Exported %d attachment(s) (%s)\n\nSaved to:\n%s",
			stats.Count, FormatBytesLong(stats.Size), stats.Path)
	}
	if len(stats.Errors) > 0 {
		msg += "\n\nErrors:\n" + strings.Join(stats.Errors, "\n")
	}
	return msg
}

func uniqueName(original string, used map[string]int) string {
	name := SanitizeFilename(filepath.Base(original))
	if name == "" || name == "." {
		name = "attachment.pdf"
	}
	count, exists := used[name]
	used[name] = count + 1
	if !exists {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), count+1, ext)
}

// SanitizeFilename replaces characters that are invalid in filenames and
// normalizes the result to NFC, so names typed on different systems compare
// equal.
func SanitizeFilename(s string) string {
	s = norm.NFC.String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			return '_'
		}
		return r
	}, s)
}

// FormatBytesLong formats a byte count with two decimals above 1 KB.
func FormatBytesLong(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
