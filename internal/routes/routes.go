package routes

import (
	"github.com/WaterWatchLabs/aquasense-backend/internal/handlers"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes registers the auth and prediction API groups.
func SetupRoutes(r *chi.Mux, prediction *handlers.PredictionHandler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", handlers.Register)
		r.Post("/login", handlers.Login)
		r.Get("/logout", handlers.Logout)
		r.Post("/validate-token", handlers.ValidateToken)
		r.Post("/forgot-password", handlers.ForgotPassword)
		r.Post("/verify-otp", handlers.VerifyOTP)
		r.Post("/reset-password", handlers.ResetPassword)
	})

	r.Route("/api/prediction", func(r chi.Router) {
		r.Get("/diagnostics", prediction.Diagnostics)
		// /predict, /tap and /river are aliases over the same model
		r.Post("/predict", prediction.PredictWater)
		r.Post("/tap", prediction.PredictWater)
		r.Post("/river", prediction.PredictWater)
		r.Post("/tap-status", prediction.PredictTapStatus)
	})
}
