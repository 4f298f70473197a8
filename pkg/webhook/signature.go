package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderSignature = "X-Notify-Signature"
	HeaderTimestamp = "X-Notify-Timestamp"
	HeaderDelivery  = "X-Notify-Delivery"
)

// Signature is the set of values attached to a signed delivery.
type Signature struct {
	Value      string
	Timestamp  int64
	DeliveryID string
}

// Apply writes the signature headers onto h.
func (s Signature) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Value)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	h.Set(HeaderDelivery, s.DeliveryID)
}

// Sign computes the signature of payload at time at.
func Sign(secret string, payload []byte, at time.Time) (Signature, error) {
	if secret == "" {
		return Signature{}, ErrMissingSecret
	}
	if len(payload) == 0 {
		return Signature{}, ErrInvalidPayload
	}
	ts := at.Unix()
	return Signature{
		Value:      computeMAC(secret, ts, payload),
		Timestamp:  ts,
		DeliveryID: uuid.NewString(),
	}, nil
}

// Verify checks sig against payload. A positive maxAge rejects stale
// timestamps and anything more than a minute in the future.
func Verify(secret string, payload []byte, sig Signature, maxAge time.Duration) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if sig.Value == "" {
		return errors.Join(ErrInvalidSignature, errors.New("signature is missing"))
	}
	if maxAge > 0 {
		age := time.Since(time.Unix(sig.Timestamp, 0))
		if age > maxAge {
			return errors.Join(ErrInvalidSignature, errors.New("timestamp too old"))
		}
		if age < -time.Minute {
			return errors.Join(ErrInvalidSignature, errors.New("timestamp in the future"))
		}
	}
	expected := computeMAC(secret, sig.Timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(sig.Value)) {
		return errors.Join(ErrInvalidSignature, errors.New("signature mismatch"))
	}
	return nil
}

// VerifyRequest extracts the signature headers from h and verifies payload.
func VerifyRequest(secret string, h http.Header, payload []byte, maxAge time.Duration) error {
	ts, err := strconv.ParseInt(h.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return errors.Join(ErrInvalidSignature, err)
	}
	return Verify(secret, payload, Signature{
		Value:      h.Get(HeaderSignature),
		Timestamp:  ts,
		DeliveryID: h.Get(HeaderDelivery),
	}, maxAge)
}

func computeMAC(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
