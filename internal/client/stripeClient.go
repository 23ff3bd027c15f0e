package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"print-checkout-backend/internal/config"
	"print-checkout-backend/internal/model"
)

type StripeClient interface {
	CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*model.StripeCheckoutSession, error)
	// VerifyWebhookSignature checks the Stripe-Signature header against the
	// raw request body. The body must be the exact bytes received on the
	// wire; re-serialized JSON will not verify.
	VerifyWebhookSignature(signatureHeader string, body []byte) error
}

type SessionLineItem struct {
	Name       string
	UnitAmount int64
	Currency   string
	Quantity   int
	ImageURL   string
}

type SessionShippingOption struct {
	Label    string
	Amount   int64
	Currency string
}

type CheckoutSessionParams struct {
	LineItems       []SessionLineItem
	ShippingOptions []SessionShippingOption
	Metadata        map[string]string
	CustomerEmail   string
	SuccessURL      string
	CancelURL       string
	ExpiresAt       time.Time
}

const signatureTolerance = 5 * time.Minute

type stripeClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	secretKey     string
	webhookSecret string
	now           func() time.Time
}

func NewStripeClient(cfg *config.Stripe) StripeClient {
	return &stripeClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    cfg.BaseApiURL,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		now:           time.Now,
	}
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*model.StripeCheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	if !params.ExpiresAt.IsZero() {
		form.Set("expires_at", strconv.FormatInt(params.ExpiresAt.Unix(), 10))
	}

	for i, li := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(li.Quantity))
		form.Set(prefix+"[price_data][currency]", strings.ToLower(li.Currency))
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(li.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", li.Name)
		if li.ImageURL != "" {
			form.Set(prefix+"[price_data][product_data][images][0]", li.ImageURL)
		}
	}

	for i, so := range params.ShippingOptions {
		prefix := fmt.Sprintf("shipping_options[%d][shipping_rate_data]", i)
		form.Set(prefix+"[type]", "fixed_amount")
		form.Set(prefix+"[display_name]", so.Label)
		form.Set(prefix+"[fixed_amount][amount]", strconv.FormatInt(so.Amount, 10))
		form.Set(prefix+"[fixed_amount][currency]", strings.ToLower(so.Currency))
	}

	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/checkout/sessions",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stripe error %d: %s", resp.StatusCode, string(b))
	}

	var session model.StripeCheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode stripe response: %w", err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("stripe session %s has no redirect url", session.ID)
	}
	return &session, nil
}

// VerifyWebhookSignature implements Stripe's scheme: the header carries a
// timestamp and one or more v1 signatures, each an HMAC-SHA256 of
// "{timestamp}.{body}" keyed with the endpoint's signing secret.
func (c *stripeClientImpl) VerifyWebhookSignature(signatureHeader string, body []byte) error {
	if signatureHeader == "" {
		return fmt.Errorf("missing signature header")
	}

	var timestamp int64
	var signatures [][]byte
	for _, part := range strings.Split(signatureHeader, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed signature timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(v)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return fmt.Errorf("signature header has no timestamp or v1 signature")
	}

	age := c.now().Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("no matching v1 signature")
}
