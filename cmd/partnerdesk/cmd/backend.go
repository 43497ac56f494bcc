package cmd

import (
	"context"
	"fmt"

	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/remote"
	"github.com/mastera/partnerdesk/internal/session"
)

// sessions returns the session manager for the configured home directory.
func sessions() *session.Manager {
	return session.NewManager(cfg.SessionDir())
}

// openClient creates a backend client carrying token. An empty token is
// fine for login and registration.
func openClient(token string) (*remote.Client, error) {
	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("backend not configured\n\n" +
			"Configure in ~/.partnerdesk/config.toml:\n" +
			"  [backend]\n" +
			"  url = \"https://registry.example.com\"\n\n" +
			"or run 'partnerdesk devserver' and use:\n" +
			"  url = \"http://127.0.0.1:8090\"\n" +
			"  allow_insecure = true")
	}
	return remote.New(remote.Config{
		URL:           cfg.Backend.URL,
		Token:         token,
		AllowInsecure: cfg.Backend.AllowInsecure,
		Timeout:       cfg.Backend.Timeout,
		RetryMax:      cfg.Backend.RetryMax,
		Logger:        logger,
	})
}

// requireSession returns the signed-in session and a client authenticated
// with it. Commands that read or change partner data go through here.
func requireSession() (*session.Session, *remote.Client, error) {
	sess, err := sessions().Load()
	if err != nil {
		return nil, nil, err
	}
	client, err := openClient(sess.Token)
	if err != nil {
		return nil, nil, err
	}
	return sess, client, nil
}

// backendError describes a failed backend call in the backend's own words.
// An interrupted command keeps the context error so main can tell the two
// apart.
func backendError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %s", op, registry.UserMessage(err))
}
