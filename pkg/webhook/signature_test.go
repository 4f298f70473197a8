package webhook_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/propnotify/pkg/webhook"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"n1"}`)

	sig, err := webhook.Sign("secret", payload, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, sig.DeliveryID)
	assert.Len(t, sig.Value, 64)

	require.NoError(t, webhook.Verify("secret", payload, sig, time.Minute))
	assert.ErrorIs(t, webhook.Verify("other", payload, sig, time.Minute), webhook.ErrInvalidSignature)
	assert.ErrorIs(t, webhook.Verify("secret", []byte(`{"id":"n2"}`), sig, time.Minute), webhook.ErrInvalidSignature)

	old, err := webhook.Sign("secret", payload, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.ErrorIs(t, webhook.Verify("secret", payload, old, time.Minute), webhook.ErrInvalidSignature)
	assert.NoError(t, webhook.Verify("secret", payload, old, 0))

	_, err = webhook.Sign("", payload, time.Now())
	assert.ErrorIs(t, err, webhook.ErrMissingSecret)
	_, err = webhook.Sign("secret", nil, time.Now())
	assert.ErrorIs(t, err, webhook.ErrInvalidPayload)
}

func TestVerifyRequest(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"n1"}`)
	sig, err := webhook.Sign("secret", payload, time.Now())
	require.NoError(t, err)

	h := make(http.Header)
	sig.Apply(h)
	require.NoError(t, webhook.VerifyRequest("secret", h, payload, time.Minute))

	h.Set(webhook.HeaderTimestamp, "not-a-number")
	assert.ErrorIs(t, webhook.VerifyRequest("secret", h, payload, time.Minute), webhook.ErrInvalidSignature)
}
