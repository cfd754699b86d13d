package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	endpointdomain "github.com/inlethq/inlet/internal/endpoint/domain"
)

// Metadata describes the originating request carried inside the envelope.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
	APIKeyID  string `json:"api_key_id,omitempty"`
	SourceIP  string `json:"source_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Envelope is the JSON body posted to the webhook target. Field names and
// order are part of the signing contract: receivers verify by recomputing
// HMAC-SHA256 over this exact serialization with the signature field absent.
type Envelope struct {
	Event         string                 `json:"event"`
	WebhookID     string                 `json:"webhook_id"`
	Endpoint      endpointdomain.Summary `json:"endpoint"`
	Data          map[string]any         `json:"data"`
	Metadata      Metadata               `json:"metadata"`
	ConditionsMet []Condition            `json:"conditions_met,omitempty"`
	Signature     string                 `json:"signature,omitempty"`
}

// BuildEnvelope assembles the outbound payload for one webhook and event.
func BuildEnvelope(w *Webhook, event Event, endpoint endpointdomain.Summary, meta Metadata, matched []Condition, now time.Time) *Envelope {
	if meta.Timestamp == "" {
		meta.Timestamp = now.UTC().Format(time.RFC3339)
	}
	return &Envelope{
		Event:         event.Name,
		WebhookID:     w.ID.String(),
		Endpoint:      endpoint,
		Data:          event.Data,
		Metadata:      meta,
		ConditionsMet: matched,
	}
}

// Sign computes the HMAC-SHA256 hex digest over the envelope without its
// signature field and attaches it.
func (e *Envelope) Sign(secret string) error {
	digest, err := e.ComputeSignature(secret)
	if err != nil {
		return err
	}
	e.Signature = digest
	return nil
}

// ComputeSignature returns the hex digest a receiver should reproduce.
func (e *Envelope) ComputeSignature(secret string) (string, error) {
	unsigned := *e
	unsigned.Signature = ""
	payload, err := json.Marshal(&unsigned)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature recomputes the digest and compares it to the attached one
// in constant time.
func (e *Envelope) VerifySignature(secret string) (bool, error) {
	expected, err := e.ComputeSignature(secret)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(e.Signature)), nil
}

// Body serializes the envelope for transmission.
func (e *Envelope) Body() ([]byte, error) {
	return json.Marshal(e)
}
