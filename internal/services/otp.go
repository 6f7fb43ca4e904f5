package services

import (
	"crypto/rand"
	"database/sql"
	"math/big"
	"time"

	"github.com/WaterWatchLabs/aquasense-backend/internal/database"
	"github.com/WaterWatchLabs/aquasense-backend/internal/models"
	"github.com/google/uuid"
)

// GenerateOTPCode returns a random 6-digit decimal code.
func GenerateOTPCode() (string, error) {
	digits := make([]byte, 6)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// CreateOTP issues a fresh one-time code for an email, deleting any prior
// code first so only one is ever active per address.
func CreateOTP(email string) (*models.OTP, error) {
	if err := DeleteOTP(email); err != nil {
		return nil, err
	}

	code, err := GenerateOTPCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	otp := &models.OTP{
		ID:         uuid.New(),
		Email:      email,
		Code:       code,
		CreatedAt:  now,
		ExpiresAt:  now.Add(models.OTPValidity),
		IsVerified: false,
	}

	_, err = database.DB.Exec(`
		INSERT INTO otps (id, email, code, created_at, expires_at, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, otp.ID, otp.Email, otp.Code, otp.CreatedAt, otp.ExpiresAt, otp.IsVerified)
	if err != nil {
		return nil, err
	}

	return otp, nil
}

// FindOTPByEmail returns the active code row for an email, or (nil, nil).
func FindOTPByEmail(email string) (*models.OTP, error) {
	var otp models.OTP
	err := database.DB.QueryRow(`
		SELECT id, email, code, created_at, expires_at, is_verified
		FROM otps WHERE email = $1
	`, email).Scan(&otp.ID, &otp.Email, &otp.Code, &otp.CreatedAt, &otp.ExpiresAt, &otp.IsVerified)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &otp, nil
}

// MarkOTPVerified sets the verified flag after a successful code check.
func MarkOTPVerified(email string) error {
	_, err := database.DB.Exec("UPDATE otps SET is_verified = TRUE WHERE email = $1", email)
	return err
}

// DeleteOTP removes the code row for an email (no-op when none exists).
func DeleteOTP(email string) error {
	_, err := database.DB.Exec("DELETE FROM otps WHERE email = $1", email)
	return err
}
