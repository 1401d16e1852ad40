package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const KhaltiSandboxBaseURL = "https://dev.khalti.com/api/v2/"

type KhaltiConfig struct {
	BaseURL    string
	WebsiteURL string
	// ReturnURL overrides the caller's return URL when set.
	ReturnURL string
}

// KhaltiAdapter drives Khalti's ePayment token flow. The pidx Khalti issues at
// initiate time is the correlation id.
type KhaltiAdapter struct {
	cfg    KhaltiConfig
	creds  CredentialSource
	client *http.Client
	logger *zap.SugaredLogger
}

func NewKhaltiAdapter(cfg KhaltiConfig, creds CredentialSource, client *http.Client, logger *zap.SugaredLogger) *KhaltiAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = KhaltiSandboxBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if client == nil {
		client = NewHTTPClient(DefaultGatewayTimeout)
	}
	return &KhaltiAdapter{cfg: cfg, creds: creds, client: client, logger: logger}
}

func (k *KhaltiAdapter) Supports() Method { return MethodKhalti }

func (k *KhaltiAdapter) initiateURL() string { return k.cfg.BaseURL + "epayment/initiate/" }
func (k *KhaltiAdapter) lookupURL() string   { return k.cfg.BaseURL + "epayment/lookup/" }

func (k *KhaltiAdapter) post(ctx context.Context, url, secret string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Authorization", "Key "+secret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, raw, err
}

func (k *KhaltiAdapter) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	creds, err := credentialsFor[KhaltiCredentials](ctx, k.creds, req.ShopID, MethodKhalti)
	if err != nil {
		return InitiateResponse{}, err
	}

	returnURL := k.cfg.ReturnURL
	if returnURL == "" {
		returnURL = req.ReturnURL
	}
	websiteURL := k.cfg.WebsiteURL
	if websiteURL == "" {
		websiteURL = returnURL
	}

	payload := map[string]any{
		"return_url":          returnURL,
		"website_url":         websiteURL,
		"amount":              req.AmountMinor,
		"purchase_order_id":   req.OrderID.String(),
		"purchase_order_name": "Order " + req.OrderID.String(),
	}

	status, raw, err := k.post(ctx, k.initiateURL(), creds.SecretKey, payload)
	if err != nil {
		return InitiateResponse{}, fmt.Errorf("%w: khalti initiate: %w", ErrExternalGateway, err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		k.logger.Warnw("khalti initiate rejected", "shop_id", req.ShopID, "http", status, "body", string(raw))
		return InitiateResponse{}, fmt.Errorf("%w: khalti initiate: http %d", ErrExternalGateway, status)
	}

	var res struct {
		Pidx       string `json:"pidx"`
		PaymentURL string `json:"payment_url"`
		ExpiresAt  string `json:"expires_at"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return InitiateResponse{}, fmt.Errorf("%w: khalti initiate decode: %w", ErrExternalGateway, err)
	}
	if res.Pidx == "" || res.PaymentURL == "" {
		return InitiateResponse{}, fmt.Errorf("%w: khalti initiate: response without pidx", ErrExternalGateway)
	}

	return InitiateResponse{
		RedirectTarget: res.PaymentURL,
		Fields: map[string]string{
			"pidx":        res.Pidx,
			"payment_url": res.PaymentURL,
			"expires_at":  res.ExpiresAt,
		},
		GatewayRequestID: res.Pidx,
	}, nil
}

type khaltiLookupResponse struct {
	Pidx          string  `json:"pidx"`
	TotalAmount   int64   `json:"total_amount"`
	Status        string  `json:"status"`
	TransactionID *string `json:"transaction_id"`
}

func (k *KhaltiAdapter) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	creds, err := credentialsFor[KhaltiCredentials](ctx, k.creds, req.ShopID, MethodKhalti)
	if err != nil {
		return VerifyResult{}, err
	}

	status, raw, err := k.post(ctx, k.lookupURL(), creds.SecretKey, map[string]string{"pidx": req.GatewayRequestID})
	if err != nil {
		k.logger.Warnw("khalti lookup request failed", "request_id", req.GatewayRequestID, "err", err)
		return errorResult(), nil
	}

	// Khalti answers 400 for expired and canceled payments, with the usual body.
	var res khaltiLookupResponse
	decodeErr := json.Unmarshal(raw, &res)
	switch {
	case status >= 200 && status <= 299 && decodeErr == nil:
	case status == http.StatusBadRequest && decodeErr == nil && res.Status != "":
	default:
		k.logger.Warnw("khalti lookup failed", "request_id", req.GatewayRequestID, "http", status, "err", decodeErr)
		return errorResult(), nil
	}

	out := VerifyResult{Status: khaltiState(res.Status), AmountMinor: res.TotalAmount}
	out.Success = out.Status == StateCompleted
	if out.Success && res.TransactionID != nil {
		out.GatewayTxnID = *res.TransactionID
	}
	if out.Success && out.GatewayTxnID == "" {
		out.GatewayTxnID = req.Params["transaction_id"]
	}
	return out, nil
}

func khaltiState(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed":
		return StateCompleted
	case "pending", "initiated":
		return StatePending
	case "expired", "user canceled":
		return StateFailed
	case "refunded", "partially refunded":
		return StateRefunded
	default:
		return StateError
	}
}
