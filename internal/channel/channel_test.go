package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insport-app/auth-service/internal/identifier"
)

type recordingSMS struct {
	to   []string
	body []string
	err  error
}

func (r *recordingSMS) SendSMS(ctx context.Context, toPhone, body string) error {
	r.to = append(r.to, toPhone)
	r.body = append(r.body, body)
	return r.err
}

type recordingEmail struct {
	to  []string
	err error
}

func (r *recordingEmail) SendEmail(ctx context.Context, toEmail, subject, html string) error {
	r.to = append(r.to, toEmail)
	return r.err
}

func TestDispatcherRoutesByKind(t *testing.T) {
	ctx := context.Background()
	sms := &recordingSMS{}
	email := &recordingEmail{}
	d := NewDispatcher(sms, email)

	phone := identifier.Identifier{Kind: identifier.Phone, Value: "+15551234567"}
	require.NoError(t, d.SendCode(ctx, phone, "123456", 5))
	require.Len(t, sms.to, 1)
	assert.Equal(t, "+15551234567", sms.to[0])
	assert.Contains(t, sms.body[0], "123456")
	assert.Empty(t, email.to)

	mail := identifier.Identifier{Kind: identifier.Email, Value: "ada@example.com"}
	require.NoError(t, d.SendCode(ctx, mail, "654321", 5))
	require.Len(t, email.to, 1)
	assert.Equal(t, "ada@example.com", email.to[0])
}

func TestDispatcherWrapsGatewayErrors(t *testing.T) {
	ctx := context.Background()
	sms := &recordingSMS{err: errors.New("gateway down")}
	d := NewDispatcher(sms, &recordingEmail{})

	err := d.SendCode(ctx, identifier.Identifier{Kind: identifier.Phone, Value: "+15551234567"}, "123456", 5)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestDispatcherUnknownKind(t *testing.T) {
	d := NewDispatcher(&recordingSMS{}, &recordingEmail{})
	err := d.SendCode(context.Background(), identifier.Identifier{Kind: "carrier-pigeon", Value: "x"}, "1", 5)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}
