package notify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
)

// webhookSender delivers signed JSON envelopes to user-defined endpoints.
type webhookSender struct {
	http *http.Client
}

func newWebhookSender() *webhookSender {
	return &webhookSender{http: &http.Client{Timeout: 10 * time.Second}}
}

// Send posts the event with an HMAC-SHA256 signature over the canonical
// serialization in X-Poseidon-Signature.
func (w *webhookSender) Send(target *lp.WebhookTarget, event *Event) error {
	body, err := canonicalJSON(event)
	if err != nil {
		return errors.Wrap(err, "serialize webhook payload")
	}

	req, err := http.NewRequest(http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Poseidon-Signature", Sign(body, target.Secret))

	resp, err := w.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrapf(errors.ErrVenueUnavailable, "webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of the payload under the recipient's
// secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalJSON produces a stable serialization so signatures are
// reproducible: encoding/json already orders struct fields by declaration,
// which is the canonical form here.
func canonicalJSON(event *Event) ([]byte, error) {
	return json.Marshal(event)
}
