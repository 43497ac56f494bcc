package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mastera/partnerdesk/internal/api"
	"github.com/mastera/partnerdesk/internal/config"
	"github.com/mastera/partnerdesk/internal/store"
)

const (
	testAdminEmail = "admin@example.com"
	testUserEmail  = "viewer@example.com"
	testPassword   = "password1"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

// devBackend is a development backend served over httptest, with cfg
// pointed at it.
type devBackend struct {
	home  string
	store *store.Store
}

// newDevBackend seeds a development backend the way devserver does and
// points the package config at it. The config is also written to
// home/config.toml so commands run through rootCmd load the same settings.
func newDevBackend(t *testing.T) *devBackend {
	t.Helper()
	home := t.TempDir()

	origCfg, origLogger := cfg, logger
	origAdmin, origAdminPW := devAdminEmail, devAdminPassword
	origUser, origUserPW := devUserEmail, devUserPassword
	t.Cleanup(func() {
		cfg, logger = origCfg, origLogger
		devAdminEmail, devAdminPassword = origAdmin, origAdminPW
		devUserEmail, devUserPassword = origUser, origUserPW
	})

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg = config.NewDefaultConfig(home)
	cfg.Server.RateLimit = 0

	st, err := store.Open(filepath.Join(home, "dev.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	devAdminEmail, devAdminPassword = testAdminEmail, testPassword
	devUserEmail, devUserPassword = testUserEmail, testPassword
	if err := seedDevData(context.Background(), st); err != nil {
		t.Fatalf("seedDevData: %v", err)
	}

	srv := api.NewServer(cfg, st, nil, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	cfg.Backend.URL = ts.URL
	cfg.Backend.AllowInsecure = true
	cfg.Backend.RetryMax = 0

	toml := fmt.Sprintf("[backend]\nurl = %q\nallow_insecure = true\nretry_max = 0\n", ts.URL)
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(toml), 0o600); err != nil {
		t.Fatal(err)
	}
	return &devBackend{home: home, store: st}
}

// discardLogs silences the package logger for the test.
func discardLogs(t *testing.T) {
	t.Helper()
	orig := logger
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	t.Cleanup(func() { logger = orig })
}

// signInAs stores a session for email.
func signInAs(t *testing.T, email string) {
	t.Helper()
	if _, err := signIn(context.Background(), credentials{Email: email, Password: testPassword}); err != nil {
		t.Fatalf("signIn(%s): %v", email, err)
	}
}

// execute runs rootCmd with args against home and returns its output.
func execute(t *testing.T, home, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), home, stdin, args...)
}

// executeContext is execute under ctx.
func executeContext(t *testing.T, ctx context.Context, home, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	origCfg, origLogger := cfg, logger
	t.Cleanup(func() {
		resetFlags()
		cfg, logger = origCfg, origLogger
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--home", home}, args...))
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// resetFlags restores flag variables to their defaults between runs.
func resetFlags() {
	cfgFile, homeDir, verbose = "", "", false
	loginEmail, loginPasswordStdin = "", false
	registerName, registerEmail, registerCompany, registerPasswordStdin = "", "", "", false
	listFlags = filterFlags{partnerType: "all", page: 1}
	exportFlags = filterFlags{partnerType: "all", page: 1}
	listJSON, showJSON, attachYes = false, false, false
	fetchOutput, exportOutput, exportZip = "", "", ""
	rootCmd.SetArgs(nil)
	rootCmd.SetIn(nil)
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
}

// writePDF writes samplePDF to dir/name and returns its path.
func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, samplePDF, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
