package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/mastera/partnerdesk/internal/attachment"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/session"
	"github.com/spf13/cobra"
)

// parseID parses a partner ID argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid partner ID %q", s)
	}
	return id, nil
}

// fetchPartner loads and projects one partner record.
func fetchPartner(ctx context.Context, backend registry.Backend, id int64) (registry.PartnerRow, error) {
	raw, err := backend.GetPartner(ctx, id)
	if errors.Is(err, registry.ErrNotFound) {
		return registry.PartnerRow{}, fmt.Errorf("partner %d not found", id)
	}
	if err != nil {
		return registry.PartnerRow{}, backendError(ctx, fmt.Sprintf("get partner %d", id), err)
	}
	return registry.Project(*raw), nil
}

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one partner record in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_, client, err := requireSession()
		if err != nil {
			return err
		}
		row, err := fetchPartner(cmd.Context(), client, id)
		if err != nil {
			return err
		}
		if showJSON {
			return writeJSON(cmd.OutOrStdout(), row)
		}
		writePartnerDetail(cmd.OutOrStdout(), row)
		return nil
	},
}

var attachYes bool

var attachCmd = &cobra.Command{
	Use:   "attach <id> <file.pdf>",
	Short: "Upload a PDF attachment to a partner",
	Long: `Upload a PDF file as the partner's attachment. A partner holds at most
one file; uploading to a partner that already has one replaces it.

Only .pdf files whose content is PDF are accepted. You are asked to confirm
before anything is sent unless --yes is given.

Examples:
  partnerdesk attach 42 ./license.pdf
  partnerdesk attach 42 ./license.pdf --yes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		sess, client, err := requireSession()
		if err != nil {
			return err
		}
		if !session.CanUpload(sess.Role, cfg.Console.UploadRoles) {
			return fmt.Errorf("your role (%s) cannot upload files", sess.Role)
		}

		row, err := fetchPartner(cmd.Context(), client, id)
		if err != nil {
			return err
		}

		confirm := attachment.Confirmed
		if !attachYes {
			confirm = confirmPrompt(cmd.Context())
		}
		svc := attachment.NewService(client, confirm)
		err = svc.Upload(cmd.Context(), row, args[1])
		switch {
		case errors.Is(err, attachment.ErrDeclined):
			fmt.Fprintln(cmd.OutOrStdout(), "Upload cancelled.")
			return nil
		case errors.Is(err, attachment.ErrNotPDF):
			return err
		case err != nil:
			return errors.New(registry.UserMessage(err))
		}

		verb := "Uploaded"
		if row.HasAttachment {
			verb = "Replaced file with"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s for %s\n", verb, filepath.Base(args[1]), row.PartnerNumber)
		return nil
	},
}

var fetchOutput string

var fetchFileCmd = &cobra.Command{
	Use:   "fetch-file <id>",
	Short: "Download a partner's PDF attachment",
	Long: `Download the partner's attachment into the download directory
([console] download_dir, default ~/.partnerdesk/downloads) or -o DIR.
Existing files are never overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_, client, err := requireSession()
		if err != nil {
			return err
		}
		row, err := fetchPartner(cmd.Context(), client, id)
		if err != nil {
			return err
		}

		f, err := attachment.NewService(client, nil).View(cmd.Context(), id)
		if err != nil {
			return errors.New(registry.UserMessage(err))
		}
		dir := fetchOutput
		if dir == "" {
			dir = cfg.Console.DownloadDir
		}
		path, err := attachment.Save(dir, row, f)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd, attachCmd, fetchFileCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
	attachCmd.Flags().BoolVarP(&attachYes, "yes", "y", false, "upload without asking")
	fetchFileCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output directory")
}
