package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/WaterWatchLabs/aquasense-backend/internal/services"
	"github.com/WaterWatchLabs/aquasense-backend/pkg/utils"
)

// Forgot Password Request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Verify OTP Request
type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Reset Password Request
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Code            string `json:"code"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ForgotPassword issues a one-time reset code. The response is identical
// whether or not the email has an account, so existence never leaks.
func ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
			return
		}
		req.Email = r.FormValue("email")
	}

	if err := utils.ValidateEmail(req.Email); err != nil {
		respondMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}

	email := utils.NormalizeEmail(req.Email)
	genericOK := func() {
		respondMessage(w, http.StatusOK, true, "If the email exists, a reset code has been sent.")
	}

	user, err := services.FindAccountByEmail(email)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, false, "Database error.")
		return
	}
	if user == nil {
		genericOK()
		return
	}

	otp, err := services.CreateOTP(email)
	if err != nil {
		log.Printf("❌ Failed to create reset code for %s: %v", email, err)
		respondMessage(w, http.StatusInternalServerError, false, "Could not create reset code.")
		return
	}

	if err := services.SendOTPEmail(email, otp.Code); err != nil {
		// Keep the code reachable for operators when the relay is down
		services.LogMailFailure("reset code", email, err)
		log.Printf("⚠️  Reset code for %s (mail undeliverable): %s", email, otp.Code)
	}

	genericOK()
}

// VerifyOTP checks a reset code and marks it verified on success.
func VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
			return
		}
		req = VerifyOTPRequest{Email: r.FormValue("email"), Code: r.FormValue("code")}
	}

	if req.Email == "" || req.Code == "" {
		respondMessage(w, http.StatusBadRequest, false, "Email and code are required.")
		return
	}

	email := utils.NormalizeEmail(req.Email)
	otp, err := services.FindOTPByEmail(email)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, false, "Database error.")
		return
	}
	if otp == nil {
		respondMessage(w, http.StatusNotFound, false, "No reset code found for this email.")
		return
	}

	if otp.IsExpired() {
		respondMessage(w, http.StatusBadRequest, false, "Code has expired. Please request a new one.")
		return
	}
	if otp.Code != req.Code {
		respondMessage(w, http.StatusBadRequest, false, "Invalid code.")
		return
	}

	if err := services.MarkOTPVerified(email); err != nil {
		respondMessage(w, http.StatusInternalServerError, false, "Database error.")
		return
	}

	respondMessage(w, http.StatusOK, true, "Code verified successfully.")
}

// ResetPassword completes the reset: the stored code must exist, match, be
// verified and unexpired; the new password must be confirmed and at least 6
// characters.
func ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
			return
		}
		req = ResetPasswordRequest{
			Email:           r.FormValue("email"),
			Code:            r.FormValue("code"),
			NewPassword:     r.FormValue("new_password"),
			ConfirmPassword: r.FormValue("confirm_password"),
		}
	}

	if req.Email == "" || req.Code == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		respondMessage(w, http.StatusBadRequest, false, "All fields are required.")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		respondMessage(w, http.StatusBadRequest, false, "Passwords do not match.")
		return
	}
	if len(req.NewPassword) < 6 {
		respondMessage(w, http.StatusBadRequest, false, "Password must be at least 6 characters.")
		return
	}

	email := utils.NormalizeEmail(req.Email)
	otp, err := services.FindOTPByEmail(email)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, false, "Database error.")
		return
	}
	if otp == nil {
		respondMessage(w, http.StatusBadRequest, false, "No reset code found. Please request a new one.")
		return
	}
	if otp.IsExpired() {
		respondMessage(w, http.StatusBadRequest, false, "Code has expired. Please request a new one.")
		return
	}
	if otp.Code != req.Code {
		respondMessage(w, http.StatusBadRequest, false, "Invalid code.")
		return
	}
	if !otp.IsVerified {
		respondMessage(w, http.StatusBadRequest, false, "Code has not been verified.")
		return
	}

	user, err := services.FindAccountByEmail(email)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, false, "Database error.")
		return
	}
	if user == nil {
		respondMessage(w, http.StatusNotFound, false, "Account not found.")
		return
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, false, "Failed to hash password.")
		return
	}
	if err := services.UpdatePassword(email, hashedPassword); err != nil {
		log.Printf("❌ Password update failed for %s: %v", email, err)
		respondMessage(w, http.StatusInternalServerError, false, "Failed to update password.")
		return
	}

	// The code is consumed regardless of what happens after
	if err := services.DeleteOTP(email); err != nil {
		log.Printf("⚠️  Failed to delete used reset code for %s: %v", email, err)
	}

	if err := services.SendPasswordChangedEmail(email); err != nil {
		services.LogMailFailure("password changed", email, err)
	}

	respondMessage(w, http.StatusOK, true, "Password reset successful.")
}
