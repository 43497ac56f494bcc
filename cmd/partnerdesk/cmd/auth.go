package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/remote"
	"github.com/mastera/partnerdesk/internal/session"
	"github.com/spf13/cobra"
)

var (
	loginEmail         string
	loginPasswordStdin bool

	registerName          string
	registerEmail         string
	registerCompany       string
	registerPasswordStdin bool
)

// credentials is a sign-in attempt.
type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// registration is a new account as entered in the register form.
type registration struct {
	FullName string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Confirm  string `validate:"required,eqfield=Password"`
	Company  string `validate:"required"`
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the partner registry",
	Long: `Sign in with your registry email and password. The session token and
your role are stored in the partnerdesk home directory until 'logout'.

Missing values are asked for interactively.

Examples:
  partnerdesk login
  partnerdesk login --email admin@example.com
  echo "$PASSWORD" | partnerdesk login --email admin@example.com --password-stdin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := credentials{Email: strings.TrimSpace(loginEmail)}
		if loginPasswordStdin {
			pw, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			c.Password = pw
		}
		if c.Email == "" || c.Password == "" {
			if err := runForm(cmd.Context(), loginForm(&c)); err != nil {
				return err
			}
		}

		sess, err := signIn(cmd.Context(), c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", sess.Email, sess.Role)
		return nil
	},
}

func loginForm(c *credentials) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Value(&c.Email).
			Validate(fieldRule("Email", "required,email")),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&c.Password).
			Validate(fieldRule("Password", "required")),
	).Title("Sign in to partnerdesk"))
}

// signIn exchanges credentials for a session and stores it.
func signIn(ctx context.Context, c credentials) (*session.Session, error) {
	c.Email = strings.TrimSpace(c.Email)
	if err := structError(c); err != nil {
		return nil, err
	}

	client, err := openClient("")
	if err != nil {
		return nil, err
	}
	res, err := client.Login(ctx, c.Email, c.Password)
	if err != nil {
		if errors.Is(err, remote.ErrInvalidCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("sign in: %s", registry.UserMessage(err))
	}

	sess := session.Session{Token: res.Token, Role: res.Role, Email: c.Email}
	if err := sessions().Save(sess); err != nil {
		return nil, err
	}
	logger.Debug("signed in", "email", c.Email, "role", res.Role)
	return &sess, nil
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a registry account",
	Long: `Create a new registry account. New accounts belong to one group company
and sign in with 'partnerdesk login' once created.

Examples:
  partnerdesk register
  partnerdesk register --name "Jane Doe" --email jane@example.com --company B100`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := registration{
			FullName: strings.TrimSpace(registerName),
			Email:    strings.TrimSpace(registerEmail),
			Company:  registry.CompanyLabel(strings.TrimSpace(registerCompany)),
		}
		if registerPasswordStdin {
			pw, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			r.Password, r.Confirm = pw, pw
		}
		if structError(r) != nil {
			if err := runForm(cmd.Context(), registerForm(&r)); err != nil {
				return err
			}
		}

		msg, err := createAccount(cmd.Context(), r)
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "Registration successful. Sign in with 'partnerdesk login'."
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func registerForm(r *registration) *huh.Form {
	options := huh.NewOptions(registry.Companies...)
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Full name").
				Value(&r.FullName).
				Validate(fieldRule("Full name", "required")),
			huh.NewInput().
				Title("Email").
				Value(&r.Email).
				Validate(fieldRule("Email", "required,email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&r.Password).
				Validate(fieldRule("Password", "required,min=8")),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&r.Confirm).
				Validate(func(s string) error {
					if s != r.Password {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		).Title("Create a partnerdesk account"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Company").
				Options(options...).
				Height(10).
				Value(&r.Company),
		),
	)
}

// createAccount registers r with the backend and returns its message.
func createAccount(ctx context.Context, r registration) (string, error) {
	if err := structError(r); err != nil {
		return "", err
	}
	client, err := openClient("")
	if err != nil {
		return "", err
	}
	msg, err := client.Register(ctx, remote.RegisterRequest{
		FullName:    strings.TrimSpace(r.FullName),
		Email:       strings.TrimSpace(r.Email),
		Password:    r.Password,
		CompanyCode: registry.CompanyCodeOf(r.Company),
	})
	if err != nil {
		var regErr *remote.RegistrationError
		if errors.As(err, &regErr) {
			return "", regErr
		}
		return "", fmt.Errorf("register: %s", registry.UserMessage(err))
	}
	return msg, nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessions().Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := sessions().Load()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Email:      %s\n", sess.Email)
		fmt.Fprintf(out, "Role:       %s\n", sess.Role)
		fmt.Fprintf(out, "Signed in:  %s\n", sess.CreatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Fprintf(out, "Can upload: %t\n", session.CanUpload(sess.Role, cfg.Console.UploadRoles))
		fmt.Fprintf(out, "Backend:    %s\n", cfg.Backend.URL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "read the password from stdin")

	registerCmd.Flags().StringVar(&registerName, "name", "", "full name")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&registerCompany, "company", "", "company code, e.g. B100")
	registerCmd.Flags().BoolVar(&registerPasswordStdin, "password-stdin", false, "read the password from stdin")
}
