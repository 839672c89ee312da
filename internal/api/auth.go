// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kmori/postlens/internal/config"
	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/validation"
)

// loginRequest is the POST /api/v1/auth/login body.
type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// loginResponse carries the issued bearer token.
type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleLogin handles POST /api/v1/auth/login. Compares the admin
// credentials (bcrypt for the password) and issues an HS256 JWT valid
// for the configured session timeout.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Security.AuthEnabled {
		respondError(w, http.StatusNotFound, codeNotFound, "authentication is disabled", nil)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, "invalid request body", err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, err.Error(), nil)
		return
	}

	usernameOK := subtle.ConstantTimeCompare(
		[]byte(req.Username), []byte(h.cfg.Security.AdminUsername)) == 1
	passwordErr := bcrypt.CompareHashAndPassword(
		[]byte(h.cfg.Security.AdminPasswordHash), []byte(req.Password))
	if !usernameOK || passwordErr != nil {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Login failed")
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials", nil)
		return
	}

	expiresAt := time.Now().Add(h.cfg.Security.SessionTimeout)
	claims := jwt.MapClaims{
		"sub": req.Username,
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.Security.JWTSecret))
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeUnauthorized, "failed to issue token", err)
		return
	}

	respondSuccess(w, http.StatusOK, loginResponse{Token: signed, ExpiresAt: expiresAt}, time.Now())
}

// Authenticate requires a valid bearer token on every request when
// auth is enabled; a pass-through otherwise.
func Authenticate(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.AuthEnabled {
				next.ServeHTTP(w, r)
				return
			}

			token, err := bearerToken(r)
			if err != nil {
				respondError(w, http.StatusUnauthorized, codeUnauthorized, err.Error(), nil)
				return
			}

			if err := verifyToken(token, cfg.JWTSecret); err != nil {
				respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token", err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", fmt.Errorf("Authorization header must use the Bearer scheme")
	}
	return strings.TrimPrefix(header, prefix), nil
}

// verifyToken parses and validates an HS256 JWT.
func verifyToken(tokenString, secret string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("token is not valid")
	}
	return nil
}
