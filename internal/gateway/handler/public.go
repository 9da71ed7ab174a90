package handler

import (
	"context"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"zentra/internal/apperr"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z\s-]+$`)

func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}

func (h *Handler) Info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"app": AppName, "version": AppVersion})
}

// Health pings the document store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Signup validates a registration form. Account creation belongs to the
// identity provider; nothing is stored here.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in signupRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := in.validate(); err != nil {
		h.writeError(w, r, err)
		return
	}
	email := strings.TrimSpace(in.Email)
	h.logger.InfoContext(r.Context(), "signup validated", "email", email)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User registered successfully",
		"email":   email,
	})
}

func (in signupRequest) validate() error {
	if err := validateName(in.FirstName); err != nil {
		return apperr.InvalidArgument("firstName: " + err.Error())
	}
	if err := validateName(in.LastName); err != nil {
		return apperr.InvalidArgument("lastName: " + err.Error())
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil || addr.Address != strings.TrimSpace(in.Email) {
		return apperr.InvalidArgument("email: value is not a valid email address")
	}
	if err := validatePassword(in.Password); err != nil {
		return apperr.InvalidArgument("password: " + err.Error())
	}
	return nil
}

type validationError string

func (e validationError) Error() string { return string(e) }

func validateName(v string) error {
	v = strings.TrimSpace(v)
	if len(v) < 2 {
		return validationError("Name must be at least 2 characters long")
	}
	if !namePattern.MatchString(v) {
		return validationError("Name can only contain letters, spaces, and hyphens")
	}
	return nil
}

func validatePassword(v string) error {
	if len(v) < 8 {
		return validationError("Password must be at least 8 characters long")
	}
	var upper, lower, digit bool
	for _, r := range v {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return validationError("Password must contain at least one uppercase letter")
	case !lower:
		return validationError("Password must contain at least one lowercase letter")
	case !digit:
		return validationError("Password must contain at least one digit")
	}
	return nil
}
