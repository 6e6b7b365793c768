package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/insport-app/auth-service/internal/handlers"
)

// Setup registers the account-creation and login routes.
func Setup(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")
	auth := api.Group("/auth")

	auth.Post("/create-account", h.CreateAccount)
	auth.Post("/verify-otp", h.VerifyOTP)
	auth.Post("/resend-otp", h.ResendOTP)
	auth.Post("/enter-details", h.EnterDetails)
	auth.Post("/set-password", h.SetPassword)
	auth.Post("/login", h.Login)
}
