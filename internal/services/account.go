package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/WaterWatchLabs/aquasense-backend/internal/database"
	"github.com/WaterWatchLabs/aquasense-backend/internal/models"
	"github.com/google/uuid"
)

// ErrEmailTaken is returned by CreateAccount when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// CreateAccount inserts a new user with an already-hashed password.
func CreateAccount(name, email, hashedPassword string) (*models.User, error) {
	var existing string
	err := database.DB.QueryRow("SELECT email FROM users WHERE email = $1", email).Scan(&existing)
	if err == nil {
		return nil, ErrEmailTaken
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	user := &models.User{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Name:      name,
		Email:     email,
		Password:  hashedPassword,
	}

	_, err = database.DB.Exec(`
		INSERT INTO users (id, created_at, updated_at, name, email, password)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.CreatedAt, user.UpdatedAt, user.Name, user.Email, user.Password)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// FindAccountByEmail looks up a user by email. Returns (nil, nil) when absent.
func FindAccountByEmail(email string) (*models.User, error) {
	var user models.User
	err := database.DB.QueryRow(`
		SELECT id, created_at, updated_at, name, email, password
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Name, &user.Email, &user.Password)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash for an email.
func UpdatePassword(email, hashedPassword string) error {
	res, err := database.DB.Exec(`
		UPDATE users SET password = $1, updated_at = $2 WHERE email = $3
	`, hashedPassword, time.Now(), email)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
