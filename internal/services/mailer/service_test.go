package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
)

func testConfig() common.NotifierConfig {
	return common.NotifierConfig{
		Enabled:  true,
		SMTPHost: "smtp.corp.example",
		SMTPPort: 587,
		From:     "scribe@corp.example",
		FromName: "Scribe",
	}
}

func TestCompose(t *testing.T) {
	service := NewService(testConfig(), arbor.NewLogger())
	service.now = func() time.Time { return time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC) }

	msg, err := service.Compose("jsmith@corp.example", "[High Priority] AI-7", "Please review **the model** card.")
	require.NoError(t, err)

	reader, err := mail.CreateReader(bytes.NewReader(msg))
	require.NoError(t, err)

	subject, err := reader.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "[High Priority] AI-7", subject)

	from, err := reader.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "scribe@corp.example", from[0].Address)
	assert.Equal(t, "Scribe", from[0].Name)

	date, err := reader.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)))

	parts := map[string]string{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		header, ok := part.Header.(*mail.InlineHeader)
		require.True(t, ok)
		contentType, _, err := header.ContentType()
		require.NoError(t, err)
		body, err := io.ReadAll(part.Body)
		require.NoError(t, err)
		parts[contentType] = string(body)
	}

	assert.Equal(t, "Please review **the model** card.", parts["text/plain"])
	assert.Contains(t, parts["text/html"], "<strong>the model</strong>")
}

func TestSend(t *testing.T) {
	service := NewService(testConfig(), arbor.NewLogger())

	var delivered []string
	service.deliver = func(ctx context.Context, from string, to []string, msg []byte) error {
		assert.Equal(t, "scribe@corp.example", from)
		delivered = append(delivered, to...)
		assert.Contains(t, string(msg), "Subject: Follow-up on AI-7")
		return nil
	}

	require.NoError(t, service.Send(context.Background(), "jsmith@corp.example", "Follow-up on AI-7", "ping"))
	assert.Equal(t, []string{"jsmith@corp.example"}, delivered)

	service.deliver = func(ctx context.Context, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}
	assert.Error(t, service.Send(context.Background(), "jsmith@corp.example", "Follow-up on AI-7", "ping"))
}

func TestSend_NotConfigured(t *testing.T) {
	config := testConfig()
	config.Enabled = false
	service := NewService(config, arbor.NewLogger())

	assert.False(t, service.IsConfigured())
	assert.ErrorIs(t, service.Send(context.Background(), "jsmith@corp.example", "s", "b"), ErrNotConfigured)
}
