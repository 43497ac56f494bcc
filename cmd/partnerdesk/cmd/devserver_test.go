package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mastera/partnerdesk/internal/config"
	"github.com/mastera/partnerdesk/internal/store"
)

func TestSeedDevData(t *testing.T) {
	b := newDevBackend(t)
	ctx := context.Background()

	n, err := b.store.CountPartners(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != store.SampleSize {
		t.Errorf("partners = %d, want %d", n, store.SampleSize)
	}

	for email, role := range map[string]string{testAdminEmail: store.RoleAdmin, testUserEmail: store.RoleUser} {
		u, err := b.store.Authenticate(ctx, email, testPassword)
		if err != nil {
			t.Fatalf("Authenticate(%s): %v", email, err)
		}
		if u.Role != role {
			t.Errorf("%s role = %q, want %q", email, u.Role, role)
		}
	}

	// A restart neither duplicates partners nor fails on existing accounts.
	if err := seedDevData(ctx, b.store); err != nil {
		t.Fatalf("second seedDevData: %v", err)
	}
	if n, _ := b.store.CountPartners(ctx); n != store.SampleSize {
		t.Errorf("partners after restart = %d", n)
	}
}

func TestSeedDevData_NoSeed(t *testing.T) {
	discardLogs(t)
	origCfg, origNoSeed, origAdmin, origUser := cfg, devNoSeed, devAdminEmail, devUserEmail
	t.Cleanup(func() { cfg, devNoSeed, devAdminEmail, devUserEmail = origCfg, origNoSeed, origAdmin, origUser })

	home := t.TempDir()
	cfg = config.NewDefaultConfig(home)
	devNoSeed = true
	devAdminEmail, devUserEmail = "", ""

	st, err := store.Open(filepath.Join(home, "dev.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if err := seedDevData(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if n, _ := st.CountPartners(context.Background()); n != 0 {
		t.Errorf("partners = %d, want 0 with --no-seed", n)
	}
}
