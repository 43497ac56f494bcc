package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/go-playground/validator/v10"
	"github.com/mastera/partnerdesk/internal/attachment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldRule returns a huh validation func checking one value against a
// validator tag.
func fieldRule(label, tag string) func(string) error {
	return func(s string) error {
		if err := validate.Var(strings.TrimSpace(s), tag); err != nil {
			return ruleError(label, err)
		}
		return nil
	}
}

// ruleError turns validator errors into one readable message.
func ruleError(label string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", label)
	case "email":
		return fmt.Errorf("%s must be a valid email address", label)
	case "min":
		return fmt.Errorf("%s must be at least %s characters", label, fe.Param())
	case "eqfield":
		return fmt.Errorf("%s does not match", label)
	}
	return fmt.Errorf("%s is invalid", label)
}

// structError validates v and reports the first failing field.
func structError(v any) error {
	if err := validate.Struct(v); err != nil {
		return ruleError("", err)
	}
	return nil
}

// runForm runs a huh form, mapping an aborted form to context.Canceled so
// the process exits like an interrupt.
func runForm(ctx context.Context, form *huh.Form) error {
	err := form.RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return context.Canceled
	}
	return err
}

// readSecret reads one line from r, for --password-stdin.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirmPrompt asks a yes/no question in the terminal.
func confirmPrompt(ctx context.Context) attachment.Confirmer {
	return attachment.ConfirmFunc(func(prompt string) (bool, error) {
		var ok bool
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		))
		if err := runForm(ctx, form); err != nil {
			return false, err
		}
		return ok, nil
	})
}
