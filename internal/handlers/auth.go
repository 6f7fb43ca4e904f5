package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/WaterWatchLabs/aquasense-backend/internal/config"
	"github.com/WaterWatchLabs/aquasense-backend/internal/services"
	"github.com/WaterWatchLabs/aquasense-backend/pkg/utils"
)

// frontendURL is where GET /api/auth/logout redirects to.
var frontendURL = "http://localhost:5173"

// InitAuthHandlers wires handler-level settings from config.
func InitAuthHandlers(cfg *config.Config) {
	frontendURL = cfg.FrontendURL
}

// Register Request
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Login Request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate Token Request
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// Auth Response
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	Name    string `json:"name,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// Register handles user registration. Accepts JSON or form-encoded bodies.
func Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
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
		req = RegisterRequest{
			Name:            r.FormValue("name"),
			Email:           r.FormValue("email"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirm_password"),
		}
	}

	if req.Name == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		respondMessage(w, http.StatusBadRequest, false, "All fields are required.")
		return
	}
	if req.Password != req.ConfirmPassword {
		respondMessage(w, http.StatusBadRequest, false, "Passwords do not match.")
		return
	}

	email := utils.NormalizeEmail(req.Email)

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, false, "Failed to hash password.")
		return
	}

	_, err = services.CreateAccount(req.Name, email, hashedPassword)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			respondMessage(w, http.StatusConflict, false, "Email already registered.")
			return
		}
		log.Printf("❌ Registration error for %s: %v", email, err)
		respondMessage(w, http.StatusInternalServerError, false, "An error occurred during registration. Please try again.")
		return
	}

	// Welcome email is best-effort: registration already succeeded
	if err := services.SendWelcomeEmail(email, req.Name); err != nil {
		services.LogMailFailure("welcome", email, err)
		respondMessage(w, http.StatusCreated, true, "Registration successful, but welcome email could not be sent.")
		return
	}

	respondMessage(w, http.StatusCreated, true, "Registration successful.")
}

// Login handles user login and issues a signed session token.
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
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
		req = LoginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
	}

	if req.Email == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, false, "Email and password are required.")
		return
	}

	user, err := services.FindAccountByEmail(utils.NormalizeEmail(req.Email))
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, false, "Database error.")
		return
	}

	// Same message for unknown email and wrong password: never reveal which
	if user == nil {
		respondMessage(w, http.StatusUnauthorized, false, "Invalid email or password.")
		return
	}
	valid, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !valid {
		respondMessage(w, http.StatusUnauthorized, false, "Invalid email or password.")
		return
	}

	token, err := services.IssueToken(user.ID)
	if err != nil {
		log.Printf("❌ Token issuance failed for %s: %v", user.Email, err)
		respondMessage(w, http.StatusInternalServerError, false, "Failed to issue session token.")
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Welcome back, " + user.Name + "!",
		Token:   token,
		Name:    user.Name,
	})
}

// Logout redirects to the frontend. No server-side session exists in a
// token-based design, so there is nothing to clear.
func Logout(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, frontendURL, http.StatusFound)
}

// ValidateToken checks a session token and returns the embedded account ID.
func ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondMessage(w, http.StatusBadRequest, false, "Token is required.")
		return
	}

	accountID, err := services.ValidateToken(req.Token)
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) {
			respondMessage(w, http.StatusUnauthorized, false, "Token has expired.")
			return
		}
		respondMessage(w, http.StatusUnauthorized, false, "Invalid token.")
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Token is valid.",
		UserID:  accountID.String(),
	})
}
