package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/insport-app/auth-service/internal/channel"
	"github.com/insport-app/auth-service/internal/identifier"
	"github.com/insport-app/auth-service/internal/models"
	"github.com/insport-app/auth-service/internal/otp"
	"github.com/insport-app/auth-service/internal/ratelimit"
	"github.com/insport-app/auth-service/internal/services"
	"github.com/insport-app/auth-service/internal/token"
	"github.com/insport-app/auth-service/internal/utils"
)

// FlowTokenCookie carries the signup flow token between steps.
const FlowTokenCookie = "account_creation_token"

type Handler struct {
	signup   *services.SignupService
	login    *services.LoginService
	signer   *token.Signer
	validate *validator.Validate
	log      *zap.SugaredLogger
}

func NewHandler(signup *services.SignupService, login *services.LoginService, signer *token.Signer, log *zap.SugaredLogger) *Handler {
	return &Handler{
		signup:   signup,
		login:    login,
		signer:   signer,
		validate: validator.New(),
		log:      log,
	}
}

// CreateAccount is step 1: submit an email or phone, receive an OTP.
func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	var req models.CreateAccountRequest
	if ok, err := h.parse(c, &req); !ok {
		return err
	}
	id, err := identifier.FromRequest(req.Email, req.Phone)
	if err != nil {
		return h.fail(c, err)
	}

	flowToken, err := h.signup.CreateAccount(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	h.setFlowCookie(c, flowToken)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "OTP sent", "token": flowToken})
}

// VerifyOTP is step 2: prove control of the identifier.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req models.VerifyOTPRequest
	if ok, err := h.parse(c, &req); !ok {
		return err
	}
	id, err := identifier.FromRequest(req.Email, req.Phone)
	if err != nil {
		return h.fail(c, err)
	}

	flowToken, err := h.signup.VerifyOTP(c.Context(), id, req.OTP, h.flowToken(c, req.Token))
	if err != nil {
		return h.fail(c, err)
	}

	h.setFlowCookie(c, flowToken)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "OTP verified", "token": flowToken})
}

// ResendOTP re-issues a code for an in-flight signup.
func (h *Handler) ResendOTP(c *fiber.Ctx) error {
	var req models.ResendOTPRequest
	if ok, err := h.parse(c, &req); !ok {
		return err
	}
	id, err := identifier.FromRequest(req.Email, req.Phone)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.signup.ResendOTP(c.Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "OTP resent"})
}

// EnterDetails is step 3: submit the draft profile.
func (h *Handler) EnterDetails(c *fiber.Ctx) error {
	var req models.EnterDetailsRequest
	if ok, err := h.parse(c, &req); !ok {
		return err
	}

	flowToken := h.flowToken(c, req.Token)
	primary, err := h.primaryIdentifier(flowToken, req.Email, req.Phone)
	if err != nil {
		return h.fail(c, err)
	}

	res, err := h.signup.EnterDetails(c.Context(), primary, models.PendingProfile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}, flowToken)
	if err != nil {
		return h.fail(c, err)
	}

	h.setFlowCookie(c, res.Token)
	if res.SecondaryVerificationPending {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "verification required for " + string(res.SecondaryIdentifier.Kind),
			"token":   res.Token,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Details accepted", "token": res.Token})
}

// SetPassword is step 4: finalize the account. The identifier comes from the
// flow token, so the token is mandatory here.
func (h *Handler) SetPassword(c *fiber.Ctx) error {
	var req models.SetPasswordRequest
	if ok, err := h.parse(c, &req); !ok {
		return err
	}

	flowToken := h.flowToken(c, req.Token)
	if flowToken == "" {
		return h.fail(c, token.ErrInvalidToken)
	}
	claims, err := h.signer.Verify(flowToken)
	if err != nil {
		return h.fail(c, err)
	}

	user, err := h.signup.SetPassword(c.Context(), claims.Identifier(), req.Password, req.ConfirmPassword, flowToken)
	if err != nil {
		return h.fail(c, err)
	}

	h.clearFlowCookie(c)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Account created successfully", "user": user})
}

// Login authenticates an existing account.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if ok, err := h.parse(c, &req); !ok {
		return err
	}
	id, err := identifier.FromRequest(req.Email, req.Phone)
	if err != nil {
		return h.fail(c, err)
	}

	user, access, err := h.login.Login(c.Context(), id, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"token": access, "user": user})
}

// parse decodes and validates the request body. On failure it writes the 400
// response itself and reports ok=false so the handler must stop; the returned
// error is only the outcome of that write.
func (h *Handler) parse(c *fiber.Ctx, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": utils.FormatValidationErrors(err),
		})
	}
	return true, nil
}

// primaryIdentifier prefers the identifier bound into the flow token; the
// request body is the fallback for clients resuming without a cookie.
func (h *Handler) primaryIdentifier(flowToken, email, phone string) (identifier.Identifier, error) {
	if flowToken != "" {
		if claims, err := h.signer.Verify(flowToken); err == nil {
			return claims.Identifier(), nil
		}
	}
	return identifier.FromRequest(email, phone)
}

// flowToken resolves the token from body, cookie or Authorization header.
func (h *Handler) flowToken(c *fiber.Ctx, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	if cookie := c.Cookies(FlowTokenCookie); cookie != "" {
		return cookie
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func (h *Handler) setFlowCookie(c *fiber.Ctx, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     FlowTokenCookie,
		Value:    value,
		Expires:  time.Now().Add(h.signer.TTL()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *Handler) clearFlowCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     FlowTokenCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// fail maps service failures to stable statuses and messages. Internal errors
// are logged and surfaced as a generic failure.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, identifier.ErrEmpty),
		errors.Is(err, identifier.ErrInvalid),
		errors.Is(err, services.ErrIdentifierRequired),
		errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrFlowNotFound),
		errors.Is(err, services.ErrDetailsExpired),
		errors.Is(err, otp.ErrCodeMismatch),
		errors.Is(err, otp.ErrCodeExpired),
		errors.Is(err, otp.ErrTooManyAttempts):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotVerified),
		errors.Is(err, services.ErrTokenMismatch),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrTokenExpired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUserAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ratelimit.ErrLimitExceeded),
		errors.Is(err, otp.ErrResendCooldown):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAccountLocked):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, channel.ErrDeliveryFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		h.log.Errorw("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
