package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrInvalidCredentials is returned by Login when the backend rejects the
// email/password pair.
var ErrInvalidCredentials = errors.New("Invalid email or password")

// LoginResult is a successful sign-in.
type LoginResult struct {
	Token string
	Role  string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	IsSuccess bool   `json:"isSuccess"`
	Token     string `json:"token"`
	Role      string `json:"role"`
}

// Login exchanges credentials for a session token and role.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/SysUser/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrInvalidCredentials
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if !lr.IsSuccess || lr.Token == "" {
		return nil, ErrInvalidCredentials
	}
	return &LoginResult{Token: lr.Token, Role: lr.Role}, nil
}

// RegisterRequest is a new-user registration.
type RegisterRequest struct {
	FullName    string `json:"fullName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	CompanyCode string `json:"companyCode" validate:"required"`
}

// RegistrationError carries the backend's reason for refusing a
// registration.
type RegistrationError struct {
	Status  int
	Message string
}

func (e *RegistrationError) Error() string { return e.Message }

type registerResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// Register creates a new user account. It returns a *RegistrationError with
// the backend's details or message when the account was not created.
func (c *Client) Register(ctx context.Context, r RegisterRequest) (string, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/SysUser/createnewUser", r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var rr registerResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, &rr)

	failed := resp.StatusCode < 200 || resp.StatusCode >= 300 || (rr.Success != nil && !*rr.Success)
	if failed {
		msg := rr.Details
		if msg == "" {
			msg = rr.Message
		}
		if msg == "" {
			msg = "Registration failed."
		}
		return "", &RegistrationError{Status: resp.StatusCode, Message: msg}
	}
	return rr.Message, nil
}
