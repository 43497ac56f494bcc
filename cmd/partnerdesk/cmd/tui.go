package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mastera/partnerdesk/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive partner console",
	Long: `Open the interactive terminal console for the partner registry.

Navigation:
  ↑/k, ↓/j    Move up/down
  Enter       Open partner detail
  Esc         Back to the list
  n/→, p/←    Next / previous page
  1-9         Jump to a page already visited
  r           Reload the current page

Filters:
  f or /      Edit filters (Enter applies, Esc closes)
  t           Cycle partner type (All, Vendors, Customers)
  x           Clear all filters

Attachments:
  u           Upload a PDF (roles in [console] upload_roles)
  v           Download the attachment

  ?           Help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, client, err := requireSession()
		if err != nil {
			return err
		}

		model := tui.New(client, tui.Options{
			Version:     Version,
			Email:       sess.Email,
			Role:        sess.Role,
			UploadRoles: cfg.Console.UploadRoles,
			DownloadDir: cfg.Console.DownloadDir,
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
