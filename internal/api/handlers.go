package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mastera/partnerdesk/internal/attachment"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/store"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// LoginRequest is the sign-in request body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the sign-in response body.
type LoginResponse struct {
	IsSuccess bool   `json:"isSuccess"`
	Token     string `json:"token,omitempty"`
	Role      string `json:"role,omitempty"`
	Message   string `json:"message,omitempty"`
}

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	FullName    string `json:"fullName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	CompanyCode string `json:"companyCode" validate:"required"`
}

// RegisterResponse is the registration response body.
type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ListResponse is one page of partners.
type ListResponse struct {
	Items       []registry.RawPartner `json:"items"`
	NextCursor  registry.Cursor       `json:"nextCursor"`
	HasNextPage bool                  `json:"hasNextPage"`
}

// UploadResponse acknowledges a stored attachment.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FileName string `json:"fileName"`
}

// SchedulerStatusResponse represents scheduler status.
type SchedulerStatusResponse struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// decodeBody decodes a JSON request body of at most 64 KiB into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// validationMessage turns validator errors into one readable sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// handleLogin exchanges credentials for a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, LoginResponse{Message: "Malformed request body"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, LoginResponse{Message: validationMessage(err)})
		return
	}

	user, err := s.store.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, store.ErrInvalidLogin) {
		writeJSON(w, http.StatusUnauthorized, LoginResponse{Message: "Invalid email or password"})
		return
	}
	if err != nil {
		s.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Login failed")
		return
	}

	token, err := s.store.CreateSession(r.Context(), user.ID, s.cfg.Server.SessionTTL)
	if err != nil {
		s.logger.Error("create session failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Login failed")
		return
	}

	s.logger.Info("user signed in", "email", user.Email, "role", user.Role)
	writeJSON(w, http.StatusOK, LoginResponse{IsSuccess: true, Token: token, Role: user.Role})
}

// handleRegister creates a user account with the default role.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, RegisterResponse{Message: "Registration failed.", Details: "Malformed request body"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, RegisterResponse{Message: "Registration failed.", Details: validationMessage(err)})
		return
	}

	code := registry.CompanyCodeOf(req.CompanyCode)
	if !slices.Contains(registry.CompanyCodes(), code) {
		writeJSON(w, http.StatusBadRequest, RegisterResponse{
			Message: "Registration failed.",
			Details: fmt.Sprintf("Unknown company code %q", code),
		})
		return
	}

	_, err := s.store.CreateUser(r.Context(), store.NewUser{
		FullName:    strings.TrimSpace(req.FullName),
		Email:       req.Email,
		Password:    req.Password,
		CompanyCode: code,
	})
	if errors.Is(err, store.ErrConflict) {
		writeJSON(w, http.StatusConflict, RegisterResponse{Message: "Registration failed.", Details: "Email is already registered"})
		return
	}
	if err != nil {
		s.logger.Error("register failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, RegisterResponse{Message: "Registration failed."})
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{Success: true, Message: "Registration successful. Please sign in."})
}

// handleListPartners returns one page of partners.
func (s *Server) handleListPartners(w http.ResponseWriter, r *http.Request) {
	req, limit := registry.ParseListQuery(r.URL.Query())

	page, err := s.store.ListPartners(r.Context(), req, limit)
	if errors.Is(err, store.ErrBadCursor) {
		writeError(w, http.StatusBadRequest, "invalid_cursor", "Cursor is not valid")
		return
	}
	if err != nil {
		s.logger.Error("failed to list partners", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve partners")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Items:       page.Items,
		NextCursor:  page.NextCursor,
		HasNextPage: page.HasNextPage,
	})
}

// partnerID parses the {id} route parameter.
func partnerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid_id", "Partner ID must be a positive number")
		return 0, false
	}
	return id, true
}

// handleGetPartner returns one partner by ID.
func (s *Server) handleGetPartner(w http.ResponseWriter, r *http.Request) {
	id, ok := partnerID(w, r)
	if !ok {
		return
	}

	p, err := s.store.GetPartner(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Partner not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get partner", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve partner")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// handleUploadFile stores the multipart field "file" as the partner's
// attachment. POST creates, PUT replaces.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := partnerID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, attachment.MaxSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", attachment.ErrTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "missing_file", "Multipart field \"file\" is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, attachment.MaxSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_error", "Could not read the uploaded file")
		return
	}
	if len(content) > attachment.MaxSize {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", attachment.ErrTooLarge.Error())
		return
	}
	if err := attachment.Validate(header.Filename, content); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "invalid_file", attachment.NotPDFMessage)
		return
	}

	replace := r.Method == http.MethodPut
	f := registry.File{Name: header.Filename, ContentType: "application/pdf", Content: content}
	err = s.store.PutFile(r.Context(), id, f, replace)
	switch {
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "file_exists", "A file already exists; use PUT to replace it")
		return
	case errors.Is(err, store.ErrNotFound) && replace:
		writeError(w, http.StatusNotFound, "not_found", "No attachment found to replace")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Partner not found")
		return
	case err != nil:
		s.logger.Error("failed to store file", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to store file")
		return
	}

	status, msg := http.StatusCreated, "File uploaded"
	if replace {
		status, msg = http.StatusOK, "File replaced"
	}
	s.logger.Info("attachment stored", "id", id, "bytes", len(content), "replace", replace,
		"user", userFrom(r.Context()).Email)
	writeJSON(w, status, UploadResponse{Success: true, Message: msg, FileName: header.Filename})
}

// handleGetFile streams the partner's attachment.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := partnerID(w, r)
	if !ok {
		return
	}

	f, err := s.store.GetFile(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "No attachment found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get file", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve file")
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Content)
}

// handleSchedulerStatus returns the maintenance scheduler status.
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeJSON(w, http.StatusOK, SchedulerStatusResponse{Jobs: []JobStatus{}})
		return
	}
	writeJSON(w, http.StatusOK, SchedulerStatusResponse{
		Running: s.scheduler.IsRunning(),
		Jobs:    s.scheduler.Status(),
	})
}
