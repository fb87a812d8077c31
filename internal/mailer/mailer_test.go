package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("shop@example.com", "buyer@example.com", "Invoice INV-042", "Thank you for your order."))

	assert.Contains(t, msg, "From: shop@example.com\r\n")
	assert.Contains(t, msg, "To: buyer@example.com\r\n")
	assert.Contains(t, msg, "Subject: Invoice INV-042\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.Contains(t, msg, "\r\n\r\nThank you for your order.")
}

func TestNewSMTP(t *testing.T) {
	t.Run("anonymous relay has no auth", func(t *testing.T) {
		s := NewSMTP(Config{Host: "localhost", Port: 25, From: "shop@example.com"})
		assert.Equal(t, "localhost:25", s.addr)
		assert.Nil(t, s.auth)
	})

	t.Run("credentials enable plain auth", func(t *testing.T) {
		s := NewSMTP(Config{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"})
		assert.Equal(t, "smtp.example.com:587", s.addr)
		assert.NotNil(t, s.auth)
	})
}
