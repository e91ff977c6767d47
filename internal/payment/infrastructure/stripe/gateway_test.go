package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/domain"
)

const whsec = "whsec_test"

func sign(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newGateway() *Gateway {
	return NewGateway(slog.New(slog.NewTextHandler(io.Discard, nil)), "sk_test_x", whsec)
}

func TestParseIntentSucceeded(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","api_version":"2020-08-27",
		"data":{"object":{"id":"pi_42","object":"payment_intent","amount":3250,"currency":"usd","status":"succeeded"}}}`)

	ev, err := newGateway().ParseWebhook(payload, sign(payload, whsec, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, domain.EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_42", ev.ObjectID)
	assert.Equal(t, "pi_42", ev.PaymentIntentID)
	assert.NotEmpty(t, ev.Raw)
}

func TestParseCheckoutSession(t *testing.T) {
	payload := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_7","object":"checkout.session","payment_intent":"pi_77"}}}`)

	ev, err := newGateway().ParseWebhook(payload, sign(payload, whsec, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "cs_7", ev.ObjectID)
	assert.Equal(t, "pi_77", ev.PaymentIntentID)
}

func TestParseRejectsBadSignatures(t *testing.T) {
	payload := []byte(`{"id":"evt_3","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	g := newGateway()

	_, err := g.ParseWebhook(payload, sign(payload, "whsec_other", time.Now()))
	assert.Error(t, err)

	_, err = g.ParseWebhook(payload, sign(payload, whsec, time.Now().Add(-time.Hour)))
	assert.Error(t, err)

	_, err = g.ParseWebhook(payload, "")
	assert.Error(t, err)
}
