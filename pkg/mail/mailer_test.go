package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendReturnsErrDisabledWhenNotEnabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{
		To:      []string{"someone@example.com"},
		Subject: "hello",
		Body:    "hi",
	})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587})
	require.NoError(t, err)
}

func TestFormatMessageEscapesHeaders(t *testing.T) {
	msg := formatMessage("from@example.com", []string{"to@example.com"}, "subject\r\ninjected", "body")
	require.NotContains(t, msg, "subject\r\ninjected")
	require.Contains(t, msg, "Subject: subject  injected")
	require.Contains(t, msg, "Content-Type: text/plain; charset=UTF-8")
}
