package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mastera/partnerdesk/internal/attachment"
	"github.com/mastera/partnerdesk/internal/export"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// exportConcurrency bounds parallel attachment downloads.
const exportConcurrency = 4

var (
	exportFlags  filterFlags
	exportOutput string
	exportZip    string
)

var exportFilesCmd = &cobra.Command{
	Use:   "export-files",
	Short: "Download every attachment on a page of partners",
	Long: `Download the PDF attachments of all partners on one listing page.
Takes the same filters as 'list'. Files go to the download directory, -o DIR,
or into a single zip archive with --zip. Existing files are never overwritten.

Examples:
  partnerdesk export-files --company B100
  partnerdesk export-files --type vendors --page 2 -o ~/Downloads
  partnerdesk export-files --blocked --zip blocked.zip`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := exportFlags.filters()
		if err != nil {
			return err
		}
		_, client, err := requireSession()
		if err != nil {
			return err
		}
		ctrl, err := loadPage(cmd.Context(), client, filters, exportFlags.page)
		if err != nil {
			return err
		}

		var withFiles []registry.PartnerRow
		for _, r := range ctrl.Result().Rows {
			if r.HasAttachment {
				withFiles = append(withFiles, r)
			}
		}
		if len(withFiles) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No attachments on this page.")
			return nil
		}

		svc := attachment.NewService(client, nil)
		results := downloadAll(cmd.Context(), svc, withFiles)
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		if exportZip != "" {
			return writeArchive(cmd.ErrOrStderr(), exportZip, results)
		}
		dir := exportOutput
		if dir == "" {
			dir = cfg.Console.DownloadDir
		}
		return writeFiles(cmd.ErrOrStderr(), dir, results)
	},
}

// download is the outcome of fetching one partner's attachment.
type download struct {
	row  registry.PartnerRow
	file *registry.File
	err  error
}

// downloadAll fetches the attachments of rows concurrently. One failed
// download does not stop the others; results keep the order of rows.
func downloadAll(ctx context.Context, svc *attachment.Service, rows []registry.PartnerRow) []download {
	results := make([]download, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for i, r := range rows {
		g.Go(func() error {
			f, err := svc.View(gctx, r.ID)
			results[i] = download{row: r, file: f, err: err}
			logger.Debug("downloaded attachment", "partner", r.PartnerNumber, "error", err)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func writeFiles(w io.Writer, dir string, results []download) error {
	failed := 0
	var total int64
	for _, d := range results {
		if d.err != nil {
			failed++
			fmt.Fprintf(w, "  error: %s: %s\n", d.row.PartnerNumber, registry.UserMessage(d.err))
			continue
		}
		path, err := attachment.Save(dir, d.row, d.file)
		if err != nil {
			failed++
			fmt.Fprintf(w, "  error: %s: %v\n", d.row.PartnerNumber, err)
			continue
		}
		total += int64(len(d.file.Content))
		fmt.Fprintf(w, "  %s (%s)\n", filepath.Base(path), export.FormatBytesLong(int64(len(d.file.Content))))
	}

	saved := len(results) - failed
	if saved > 0 {
		fmt.Fprintf(w, "Exported %d attachment(s) (%s) to %s\n", saved, export.FormatBytesLong(total), dir)
	}
	return exportOutcome(failed, len(results))
}

func writeArchive(w io.Writer, path string, results []download) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	var entries []export.Entry
	failed := 0
	for _, d := range results {
		if d.err != nil {
			failed++
			fmt.Fprintf(w, "  error: %s: %s\n", d.row.PartnerNumber, registry.UserMessage(d.err))
			continue
		}
		entries = append(entries, export.Entry{
			Name:    attachment.FileName(d.row, d.file),
			Content: d.file.Content,
		})
	}
	if len(entries) == 0 {
		return exportOutcome(failed, len(results))
	}

	stats := export.Archive(path, entries)
	fmt.Fprintln(w, export.FormatResult(stats))
	if stats.WriteError || stats.Count == 0 {
		return fmt.Errorf("write %s failed", path)
	}
	return exportOutcome(failed+len(entries)-stats.Count, len(results))
}

func exportOutcome(failed, total int) error {
	switch {
	case failed == 0:
		return nil
	case failed == total:
		return fmt.Errorf("all %d attachment(s) failed to export", total)
	default:
		return fmt.Errorf("%d of %d attachment(s) failed to export", failed, total)
	}
}

func init() {
	rootCmd.AddCommand(exportFilesCmd)
	exportFlags.register(exportFilesCmd)
	exportFilesCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output directory")
	exportFilesCmd.Flags().StringVar(&exportZip, "zip", "", "write a zip archive instead of separate files")
}
