package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/WaterWatchLabs/aquasense-backend/internal/config"
	"github.com/WaterWatchLabs/aquasense-backend/internal/database"
	"github.com/WaterWatchLabs/aquasense-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// ---- test doubles ----

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeMailer) Send(to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("relay down")
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (f *fakeMailer) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Body
}

// ---- helpers ----

func setupAuthTest(t *testing.T) (*chi.Mux, *fakeMailer) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	database.DB = db
	require.NoError(t, database.InitTables())
	t.Cleanup(func() {
		db.Close()
		database.DB = nil
	})

	services.InitTokenService("test-secret")
	mailer := &fakeMailer{}
	services.SetMailer(mailer)
	t.Cleanup(func() { services.SetMailer(nil) })

	InitAuthHandlers(&config.Config{FrontendURL: "http://localhost:5173"})

	r := chi.NewRouter()
	r.Post("/api/auth/register", Register)
	r.Post("/api/auth/login", Login)
	r.Get("/api/auth/logout", Logout)
	r.Post("/api/auth/validate-token", ValidateToken)
	r.Post("/api/auth/forgot-password", ForgotPassword)
	r.Post("/api/auth/verify-otp", VerifyOTP)
	r.Post("/api/auth/reset-password", ResetPassword)
	return r, mailer
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func registerUser(t *testing.T, router http.Handler, name, email, password string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": password, "confirm_password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

// extractCode pulls the 6-digit code out of the OTP email body.
func extractCode(t *testing.T, body string) string {
	t.Helper()
	for i := 0; i+6 <= len(body); i++ {
		code := body[i : i+6]
		if strings.Trim(code, "0123456789") == "" {
			return code
		}
	}
	t.Fatal("no 6-digit code found in mail body")
	return ""
}

// ---- registration ----

func TestRegister(t *testing.T) {
	router, mailer := setupAuthTest(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret1", "confirm_password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])

	// Welcome email went out
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@x.com", mailer.sent[0].To)

	// Stored hash never equals the plaintext
	user, err := services.FindAccountByEmail("a@x.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEqual(t, "secret1", user.Password)

	// Same email again conflicts
	w = doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret1", "confirm_password": "secret1",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestRegisterValidation(t *testing.T) {
	router, _ := setupAuthTest(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret1", "confirm_password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Passwords do not match.", decodeBody(t, w)["message"])
}

func TestRegisterMailFailureStillSucceeds(t *testing.T) {
	router, mailer := setupAuthTest(t)
	mailer.fail = true

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret1", "confirm_password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["message"], "welcome email could not be sent")
}

func TestRegisterFormEncoded(t *testing.T) {
	router, _ := setupAuthTest(t)

	form := url.Values{}
	form.Set("name", "A")
	form.Set("email", "a@x.com")
	form.Set("password", "secret1")
	form.Set("confirm_password", "secret1")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

// ---- login and tokens ----

func TestLogin(t *testing.T) {
	router, _ := setupAuthTest(t)
	registerUser(t, router, "A", "a@x.com", "secret1")

	w := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "A", body["name"])
	require.NotEmpty(t, body["token"])

	// The issued token validates and carries the account ID
	w = doJSON(t, router, http.MethodPost, "/api/auth/validate-token", map[string]string{
		"token": body["token"].(string),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["user_id"])
}

func TestLoginGenericFailureMessage(t *testing.T) {
	router, _ := setupAuthTest(t)
	registerUser(t, router, "A", "a@x.com", "secret1")

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "nope",
	})
	unknownEmail := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ghost@x.com", "password": "secret1",
	})

	// Identical status and body: must not reveal which field was wrong
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	router, _ := setupAuthTest(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/validate-token", map[string]string{
		"token": "not.a.token",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/validate-token", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutRedirects(t *testing.T) {
	router, _ := setupAuthTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Location"))
}

// ---- password reset flow ----

func TestForgotPasswordNoAccountLeak(t *testing.T) {
	router, mailer := setupAuthTest(t)
	registerUser(t, router, "A", "a@x.com", "secret1")
	mailer.sent = nil

	known := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "a@x.com"})
	unknown := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ghost@x.com"})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())

	// But only the known account got a code
	assert.Len(t, mailer.sent, 1)
}

func TestForgotPasswordRejectsMalformedEmail(t *testing.T) {
	router, _ := setupAuthTest(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForgotPasswordMailFailureStillGeneric(t *testing.T) {
	router, mailer := setupAuthTest(t)
	registerUser(t, router, "A", "a@x.com", "secret1")
	mailer.fail = true

	w := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Code row exists even though the mail never went out
	otp, err := services.FindOTPByEmail("a@x.com")
	require.NoError(t, err)
	assert.NotNil(t, otp)
}

func TestVerifyOTP(t *testing.T) {
	router, mailer := setupAuthTest(t)
	registerUser(t, router, "A", "a@x.com", "secret1")

	w := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	code := extractCode(t, mailer.lastBody())

	// No row for this email
	w = doJSON(t, router, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "ghost@x.com", "code": code})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Wrong code
	w = doJSON(t, router, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@x.com", "code": "000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Right code
	w = doJSON(t, router, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@x.com", "code": code})
	require.Equal(t, http.StatusOK, w.Code)

	otp, err := services.FindOTPByEmail("a@x.com")
	require.NoError(t, err)
	assert.True(t, otp.IsVerified)
}

func TestVerifyOTPExpired(t *testing.T) {
	router, mailer := setupAuthTest(t)
	registerUser(t, router, "A", "a@x.com", "secret1")

	w := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	code := extractCode(t, mailer.lastBody())

	// Age the row past its validity window
	_, err := database.DB.Exec("UPDATE otps SET expires_at = $1 WHERE email = $2",
		time.Now().Add(-time.Minute), "a@x.com")
	require.NoError(t, err)

	w = doJSON(t, router, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@x.com", "code": code})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "expired")
}

func TestResetPasswordFlow(t *testing.T) {
	router, mailer := setupAuthTest(t)
	registerUser(t, router, "A", "a@x.com", "secret1")

	w := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	code := extractCode(t, mailer.lastBody())

	// Reset before verification is rejected
	w = doJSON(t, router, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email": "a@x.com", "code": code, "new_password": "newpass1", "confirm_password": "newpass1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@x.com", "code": code})
	require.Equal(t, http.StatusOK, w.Code)

	// Short password rejected
	w = doJSON(t, router, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email": "a@x.com", "code": code, "new_password": "abc", "confirm_password": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Mismatched confirmation rejected
	w = doJSON(t, router, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email": "a@x.com", "code": code, "new_password": "newpass1", "confirm_password": "newpass2",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Successful reset
	w = doJSON(t, router, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email": "a@x.com", "code": code, "new_password": "newpass1", "confirm_password": "newpass1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Code row consumed
	otp, err := services.FindOTPByEmail("a@x.com")
	require.NoError(t, err)
	assert.Nil(t, otp)

	// Old password no longer validates, new one does
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "newpass1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResetPasswordWithoutCodeRow(t *testing.T) {
	router, _ := setupAuthTest(t)
	registerUser(t, router, "A", "a@x.com", "secret1")

	w := doJSON(t, router, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email": "a@x.com", "code": "123456", "new_password": "newpass1", "confirm_password": "newpass1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewOTPSupersedesOld(t *testing.T) {
	router, mailer := setupAuthTest(t)
	registerUser(t, router, "A", "a@x.com", "secret1")

	w := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	first := extractCode(t, mailer.lastBody())

	w = doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	second := extractCode(t, mailer.lastBody())

	if first != second {
		// The superseded code no longer verifies
		w = doJSON(t, router, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@x.com", "code": first})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@x.com", "code": second})
	assert.Equal(t, http.StatusOK, w.Code)
}
