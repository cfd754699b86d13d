package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	endpointdomain "github.com/inlethq/inlet/internal/endpoint/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope(t *testing.T) *Envelope {
	t.Helper()
	w := &Webhook{ID: snowflake.ID(42)}
	event := Event{
		Name: "data.received",
		Data: map[string]any{"status": "completed"},
	}
	endpoint := endpointdomain.Summary{ID: "7", Name: "orders", URLPath: "orders"}
	meta := Metadata{RequestID: "req-1", SourceIP: "203.0.113.9"}
	return BuildEnvelope(w, event, endpoint, meta, nil, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestEnvelopeSignAndVerify(t *testing.T) {
	env := testEnvelope(t)
	require.NoError(t, env.Sign("topsecret"))
	require.NotEmpty(t, env.Signature)

	ok, err := env.VerifySignature("topsecret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.VerifySignature("wrongsecret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnvelopeSignatureExcludesItself(t *testing.T) {
	env := testEnvelope(t)

	before, err := env.ComputeSignature("topsecret")
	require.NoError(t, err)

	require.NoError(t, env.Sign("topsecret"))
	after, err := env.ComputeSignature("topsecret")
	require.NoError(t, err)

	assert.Equal(t, before, after, "attaching the signature must not change the signed payload")
	assert.Equal(t, before, env.Signature)
}

func TestEnvelopeSignatureIsDeterministic(t *testing.T) {
	env := testEnvelope(t)
	first, err := env.ComputeSignature("topsecret")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := env.ComputeSignature("topsecret")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEnvelopeTamperDetection(t *testing.T) {
	env := testEnvelope(t)
	require.NoError(t, env.Sign("topsecret"))

	env.Data["status"] = "tampered"
	ok, err := env.VerifySignature("topsecret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnvelopeMetadataTimestampDefault(t *testing.T) {
	w := &Webhook{ID: snowflake.ID(1)}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := BuildEnvelope(w, Event{Name: "data.received"}, endpointdomain.Summary{}, Metadata{}, nil, now)
	assert.Equal(t, "2026-03-01T12:00:00Z", env.Metadata.Timestamp)
}

func TestEnvelopeBodyRoundTrip(t *testing.T) {
	env := testEnvelope(t)
	require.NoError(t, env.Sign("topsecret"))

	body, err := env.Body()
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, env.Signature, decoded.Signature)

	ok, err := decoded.VerifySignature("topsecret")
	require.NoError(t, err)
	assert.True(t, ok, "a receiver must be able to verify from the wire body alone")
}
