package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-auth-nosql/internal/application/account"
	"github.com/go-auth-nosql/internal/transport/http/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyCodeRequest struct {
	ProvidedCode codeValue `json:"providedCode"`
}

// codeValue is a one-time code sent either as a JSON string or as a JSON
// integer. Both decode to the decimal string that was mailed.
type codeValue string

func (c *codeValue) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = codeValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return fmt.Errorf("providedCode %s is not a whole number", n)
	}
	*c = codeValue(n.String())
	return nil
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email        string    `json:"email"`
	ProvidedCode codeValue `json:"providedCode"`
	NewPassword  string    `json:"newPassword"`
}

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	svc          account.Service
	cookieTTL    time.Duration
	secureCookie bool
}

func NewAuthHandler(svc account.Service, cookieTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, cookieTTL: cookieTTL, secureCookie: secureCookie}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	pub, err := h.svc.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SignupEnvelope{Success: true, Message: "User created successfully!", Account: pub})
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    res.Bearer,
		Path:     "/",
		Expires:  time.Now().Add(h.cookieTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, SigninEnvelope{Success: true, Message: "Signin successful!", Token: res.Token, Account: res.Account})
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		h.svc.Signout(r.Context(), claims.AccountID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeMessage(w, http.StatusOK, "Signout successful!")
}

func (h *AuthHandler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}
	if err := h.svc.RequestEmailVerification(r.Context(), claims.AccountID); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Verification code sent!")
}

func (h *AuthHandler) VerifyVerificationCode(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}
	var req verifyCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), claims.AccountID, string(req.ProvidedCode)); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Your account has been verified!")
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), claims.Principal(), req.OldPassword, req.NewPassword); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated!")
}

func (h *AuthHandler) SendForgotPasswordCode(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Verification code sent!")
}

func (h *AuthHandler) VerifyForgotPasswordCode(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Email, string(req.ProvidedCode), req.NewPassword); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password has been reset!")
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
