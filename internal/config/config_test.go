package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvHome, tmpDir)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if cfg.Backend.URL != "" {
		t.Errorf("Backend.URL = %q, want empty", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 30*time.Second || cfg.Backend.RetryMax != 3 {
		t.Errorf("Backend timeout/retry = %v/%d", cfg.Backend.Timeout, cfg.Backend.RetryMax)
	}
	if diff := cmp.Diff([]string{"Admin"}, cfg.Console.UploadRoles); diff != "" {
		t.Errorf("UploadRoles (-want +got):\n%s", diff)
	}
	if want := filepath.Join(tmpDir, "downloads"); cfg.Console.DownloadDir != want {
		t.Errorf("DownloadDir = %q, want %q", cfg.Console.DownloadDir, want)
	}
	if cfg.Server.APIPort != 8090 || cfg.Server.BindAddr != "127.0.0.1" || !cfg.Server.SeedSample {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if want := filepath.Join(tmpDir, "devserver.db"); cfg.DatabasePath() != want {
		t.Errorf("DatabasePath() = %q, want %q", cfg.DatabasePath(), want)
	}
	if cfg.ListenAddr() != "127.0.0.1:8090" {
		t.Errorf("ListenAddr() = %q", cfg.ListenAddr())
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvHome, tmpDir)
	writeConfig(t, tmpDir, `
[backend]
url = "https://registry.example.com"
timeout = "5s"
retry_max = 1

[console]
upload_roles = ["Admin", "Editor"]
download_dir = "~/partner-files"

[server]
api_port = 9191
database = "data/dev.db"
cors_origins = ["http://localhost:3000"]
rate_limit = 2.5
seed_sample = false
`)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}

	if cfg.Backend.URL != "https://registry.example.com" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 5*time.Second || cfg.Backend.RetryMax != 1 {
		t.Errorf("Backend timeout/retry = %v/%d", cfg.Backend.Timeout, cfg.Backend.RetryMax)
	}
	if diff := cmp.Diff([]string{"Admin", "Editor"}, cfg.Console.UploadRoles); diff != "" {
		t.Errorf("UploadRoles (-want +got):\n%s", diff)
	}
	if want := filepath.Join(home, "partner-files"); cfg.Console.DownloadDir != want {
		t.Errorf("DownloadDir = %q, want %q", cfg.Console.DownloadDir, want)
	}
	if want := filepath.Join(tmpDir, "data", "dev.db"); cfg.DatabasePath() != want {
		t.Errorf("DatabasePath() = %q, want %q", cfg.DatabasePath(), want)
	}
	if cfg.Server.APIPort != 9191 || cfg.Server.RateLimit != 2.5 || cfg.Server.SeedSample {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvHome, tmpDir)
	writeConfig(t, tmpDir, `
[backend]
url = "https://from-file.example.com"
`)
	t.Setenv("PARTNERDESK_BACKEND_URL", "http://localhost:8090")
	t.Setenv("PARTNERDESK_BACKEND_ALLOW_INSECURE", "true")
	t.Setenv("PARTNERDESK_CONSOLE_UPLOAD_ROLES", "Admin,Clerk")
	t.Setenv("PARTNERDESK_SERVER_API_PORT", "7000")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.URL != "http://localhost:8090" || !cfg.Backend.AllowInsecure {
		t.Errorf("Backend = %+v, want env override", cfg.Backend)
	}
	if diff := cmp.Diff([]string{"Admin", "Clerk"}, cfg.Console.UploadRoles); diff != "" {
		t.Errorf("UploadRoles (-want +got):\n%s", diff)
	}
	if cfg.Server.APIPort != 7000 {
		t.Errorf("APIPort = %d, want 7000", cfg.Server.APIPort)
	}
}

func TestLoadEnvBadValue(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	t.Setenv("PARTNERDESK_SERVER_API_PORT", "not-a-number")

	if _, err := Load("", ""); err == nil {
		t.Fatal("Load should fail on an unparsable environment override")
	}
}

func TestLoadExplicitPathNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml", "")
	if err == nil {
		t.Fatal("Load with explicit nonexistent path should return error")
	}
	if got := err.Error(); !strings.Contains(got, "config file not found") {
		t.Errorf("error = %q, want it to contain %q", got, "config file not found")
	}
}

func TestLoadExplicitPathDerivedHomeDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfig(t, tmpDir, "[server]\napi_port = 9999\n")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load(%q) failed: %v", path, err)
	}

	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
	if cfg.Server.APIPort != 9999 {
		t.Errorf("APIPort = %d, want 9999", cfg.Server.APIPort)
	}
	if want := filepath.Join(tmpDir, "devserver.db"); cfg.DatabasePath() != want {
		t.Errorf("DatabasePath() = %q, want %q", cfg.DatabasePath(), want)
	}
}

func TestLoadWithHomeDir(t *testing.T) {
	homeDir := t.TempDir()
	writeConfig(t, homeDir, "[backend]\nurl = \"https://h.example.com\"\n")

	cfg, err := Load("", homeDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HomeDir != homeDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, homeDir)
	}
	if cfg.SessionDir() != homeDir {
		t.Errorf("SessionDir() = %q, want %q", cfg.SessionDir(), homeDir)
	}
	if cfg.Backend.URL != "https://h.example.com" {
		t.Errorf("Backend.URL = %q, want value from --home config", cfg.Backend.URL)
	}
}

func TestLoadBackslashErrorHint(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid escape", "[console]\ndownload_dir = \"C:\\Games\\partnerdesk\"\n"},
		{"unicode escape", "[console]\ndownload_dir = \"C:\\Users\\me\\partnerdesk\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Setenv(EnvHome, tmpDir)
			writeConfig(t, tmpDir, tt.content)

			_, err := Load("", "")
			if err == nil {
				t.Fatal("Load should fail on TOML backslash error")
			}
			for _, sub := range []string{"hint:", "forward slashes", "single quotes"} {
				if !strings.Contains(err.Error(), sub) {
					t.Errorf("error should contain %q, got: %s", sub, err)
				}
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"~", home},
		{"~/x/y", filepath.Join(home, "x/y")},
		{"~user/x", "~user/x"},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultHomeExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	t.Setenv(EnvHome, "~/pd-home")
	if got, want := DefaultHome(), filepath.Join(home, "pd-home"); got != want {
		t.Errorf("DefaultHome() = %q, want %q", got, want)
	}
}
