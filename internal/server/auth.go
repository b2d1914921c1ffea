package server

import (
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/otp"
)

const (
	msgResetSent   = "If an account exists for this email, a reset code has been sent."
	msgInvalidCode = "Invalid or expired code"
)

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// VerifyOTPRequest is the body of POST /api/auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// handleForgotPassword answers the same way whether or not the account
// exists.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !s.decode(w, r, &req) {
		return
	}

	_, err := s.deps.Users.GetByEmail(r.Context(), req.Email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		slog.Debug("Password reset requested for unknown account")
	case err != nil:
		storageError(w, r, "users.get_by_email", err)
		return
	default:
		// Same reply as for unknown accounts
		if _, err := s.deps.OTP.Issue(r.Context(), req.Email); err != nil {
			slog.ErrorContext(r.Context(), "Failed to issue reset code", "error", err)
		}
	}
	writeMessage(w, msgResetSent)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.deps.OTP.Verify(r.Context(), req.Email, req.OTP); err != nil {
		s.otpError(w, r, err)
		return
	}
	writeMessage(w, "Code verified")
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !s.decode(w, r, &req) {
		return
	}

	// The code is burned only once the new password is stored
	if err := s.deps.OTP.Verify(r.Context(), req.Email, req.OTP); err != nil {
		s.otpError(w, r, err)
		return
	}

	cost := s.cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset password. Please try again.", nil)
		return
	}

	err = s.deps.Users.UpdatePassword(r.Context(), req.Email, string(hash))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusBadRequest, msgInvalidCode, nil)
		return
	}
	if err != nil {
		storageError(w, r, "users.update_password", err)
		return
	}

	if err := s.deps.OTP.MarkUsed(r.Context(), req.Email); err != nil {
		slog.ErrorContext(r.Context(), "Failed to mark reset code used", "error", err)
	}
	writeMessage(w, "Password has been reset")
}

func (s *Server) otpError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, otp.ErrInvalidCode) {
		writeError(w, http.StatusBadRequest, msgInvalidCode, nil)
		return
	}
	storageError(w, r, "otp", err)
}
