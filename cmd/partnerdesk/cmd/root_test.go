package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mastera/partnerdesk/internal/registry"
)

func TestListCommand_InterruptKeepsContextError(t *testing.T) {
	b := newDevBackend(t)
	signInAs(t, testUserEmail)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := executeContext(t, ctx, b.home, "", "list")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if strings.Contains(out, "P1000") {
		t.Errorf("interrupted list printed rows:\n%s", out)
	}
}

func TestBackendError(t *testing.T) {
	apiErr := &registry.APIError{Status: 503, Message: "Service unavailable"}

	err := backendError(context.Background(), "list partners", apiErr)
	if err.Error() != "list partners: Service unavailable" {
		t.Errorf("err = %q", err)
	}
	if errors.Is(err, context.Canceled) {
		t.Error("live context reported as cancelled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := backendError(ctx, "get partner 4", apiErr); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	origCfg := cfg
	cfg = nil
	t.Cleanup(func() { cfg = origCfg })

	out, err := execute(t, "/nonexistent/partnerdesk-home", "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out == "" || cfg != nil {
		t.Errorf("version output %q, cfg loaded = %v", out, cfg != nil)
	}
}

func TestBadConfigFails(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "--config", "/nonexistent/config.toml", "whoami")
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestOpenClient_RequiresBackendURL(t *testing.T) {
	newDevBackend(t)
	cfg.Backend.URL = ""
	if _, err := openClient(""); err == nil {
		t.Error("openClient accepted an empty backend URL")
	}
}
