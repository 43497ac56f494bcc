package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mastera/partnerdesk/internal/api"
	"github.com/mastera/partnerdesk/internal/scheduler"
	"github.com/mastera/partnerdesk/internal/store"
	"github.com/spf13/cobra"
)

// purgeJob is the scheduler job that deletes expired sessions.
const purgeJob = "purge-sessions"

var (
	devAdminEmail    string
	devAdminPassword string
	devUserEmail     string
	devUserPassword  string
	devNoSeed        bool
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local registry backend for development",
	Long: `Run the partner registry REST API locally over SQLite.

The development backend serves the same endpoints the console uses:
sign-in, registration, cursor-paginated partner listing, partner detail, and
PDF attachment upload and download. On first start it loads a sample data
set and creates two accounts:

  admin   Admin role, may upload attachments
  viewer  User role, read only

Point the console at it in config.toml:
  [backend]
  url = "http://127.0.0.1:8090"
  allow_insecure = true

Expired sessions are purged on the [server] purge_schedule cron schedule.
Use Ctrl+C to stop the server gracefully.`,
	Args: cobra.NoArgs,
	RunE: runDevserver,
}

func runDevserver(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	if err := s.InitSchema(); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	if err := seedDevData(ctx, s); err != nil {
		return err
	}

	sched := scheduler.New().WithLogger(logger)
	if cfg.Server.PurgeSchedule != "" {
		err := sched.AddJob(purgeJob, cfg.Server.PurgeSchedule, func(ctx context.Context) error {
			n, err := s.PurgeExpiredSessions(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", purgeJob, err)
		}
	}
	sched.Start()

	apiServer := api.NewServer(cfg, s, sched, logger)
	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "partnerdesk development backend started\n")
	fmt.Fprintf(out, "  API server: http://%s\n", cfg.ListenAddr())
	fmt.Fprintf(out, "  Database:   %s\n", cfg.DatabasePath())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		fmt.Fprintln(out, "\nShutting down...")
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		runErr = fmt.Errorf("api server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	select {
	case <-sched.Stop().Done():
	case <-time.After(30 * time.Second):
		fmt.Fprintln(out, "Scheduler shutdown timed out after 30 seconds.")
	}
	return runErr
}

// seedDevData loads the sample partners into an empty database and makes
// sure the demo accounts exist.
func seedDevData(ctx context.Context, s *store.Store) error {
	if cfg.Server.SeedSample && !devNoSeed {
		n, err := s.SeedSample(ctx)
		if err != nil {
			return fmt.Errorf("seed sample partners: %w", err)
		}
		if n > 0 {
			logger.Info("seeded sample partners", "count", n)
		}
	}

	accounts := []store.NewUser{
		{FullName: "Registry Admin", Email: devAdminEmail, Password: devAdminPassword, CompanyCode: "B100", Role: store.RoleAdmin},
		{FullName: "Registry Viewer", Email: devUserEmail, Password: devUserPassword, CompanyCode: "B100", Role: store.RoleUser},
	}
	for _, u := range accounts {
		if u.Email == "" {
			continue
		}
		created, err := s.EnsureUser(ctx, u)
		if err != nil {
			return fmt.Errorf("create account %s: %w", u.Email, err)
		}
		if created {
			logger.Info("created account", "email", u.Email, "role", u.Role)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(devserverCmd)
	devserverCmd.Flags().StringVar(&devAdminEmail, "admin-email", "admin@example.com", "email of the seeded Admin account (empty to skip)")
	devserverCmd.Flags().StringVar(&devAdminPassword, "admin-password", "admin-password", "password of the seeded Admin account")
	devserverCmd.Flags().StringVar(&devUserEmail, "user-email", "viewer@example.com", "email of the seeded read-only account (empty to skip)")
	devserverCmd.Flags().StringVar(&devUserPassword, "user-password", "viewer-password", "password of the seeded read-only account")
	devserverCmd.Flags().BoolVar(&devNoSeed, "no-seed", false, "do not load sample partners")
}
