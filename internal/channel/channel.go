package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/insport-app/auth-service/internal/identifier"
)

// ErrDeliveryFailed wraps any failure from the external SMS/email gateways.
var ErrDeliveryFailed = errors.New("verification code delivery failed")

// SMSClient sends a text message to a phone number.
type SMSClient interface {
	SendSMS(ctx context.Context, toPhone, body string) error
}

// EmailClient sends an HTML email.
type EmailClient interface {
	SendEmail(ctx context.Context, toEmail, subject, html string) error
}

// Sender delivers a verification code to an identifier.
type Sender interface {
	SendCode(ctx context.Context, id identifier.Identifier, code string, ttlMinutes int) error
}

// Dispatcher routes a code to the SMS or email gateway based on the
// identifier kind. Each gateway sits behind its own circuit breaker so a
// flapping provider fails fast instead of tying up request handlers.
type Dispatcher struct {
	sms          SMSClient
	email        EmailClient
	smsBreaker   *gobreaker.CircuitBreaker
	emailBreaker *gobreaker.CircuitBreaker
}

func NewDispatcher(sms SMSClient, email EmailClient) *Dispatcher {
	return &Dispatcher{
		sms:          sms,
		email:        email,
		smsBreaker:   gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "sms"}),
		emailBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "email"}),
	}
}

func (d *Dispatcher) SendCode(ctx context.Context, id identifier.Identifier, code string, ttlMinutes int) error {
	var err error
	switch id.Kind {
	case identifier.Phone:
		body := fmt.Sprintf("Your insport verification code is %s. It is valid for %d minutes.", code, ttlMinutes)
		_, err = d.smsBreaker.Execute(func() (interface{}, error) {
			return nil, d.sms.SendSMS(ctx, id.Value, body)
		})
	case identifier.Email:
		subject := "Your insport verification code"
		html := fmt.Sprintf("<p>Your verification code is <b>%s</b>. It is valid for %d minutes.</p>", code, ttlMinutes)
		_, err = d.emailBreaker.Execute(func() (interface{}, error) {
			return nil, d.email.SendEmail(ctx, id.Value, subject, html)
		})
	default:
		return fmt.Errorf("%w: unknown identifier kind %q", ErrDeliveryFailed, id.Kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}
