package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EsewaSandboxFormURL   = "https://rc-epay.esewa.com.np/api/epay/main/v2/form"
	EsewaSandboxStatusURL = "https://rc-epay.esewa.com.np/api/epay/transaction/status/"

	esewaSignedFields = "total_amount,transaction_uuid,product_code"
)

type EsewaConfig struct {
	FormURL   string
	StatusURL string
	// SuccessURL and FailureURL are where eSewa sends the browser back. When empty
	// the caller's return and failure URLs are used as is.
	SuccessURL string
	FailureURL string
}

// EsewaAdapter drives the eSewa redirect form flow.
type EsewaAdapter struct {
	cfg     EsewaConfig
	creds   CredentialSource
	client  *http.Client
	logger  *zap.SugaredLogger
	newUUID func() string
}

func NewEsewaAdapter(cfg EsewaConfig, creds CredentialSource, client *http.Client, logger *zap.SugaredLogger) *EsewaAdapter {
	if cfg.FormURL == "" {
		cfg.FormURL = EsewaSandboxFormURL
	}
	if cfg.StatusURL == "" {
		cfg.StatusURL = EsewaSandboxStatusURL
	}
	if client == nil {
		client = NewHTTPClient(DefaultGatewayTimeout)
	}
	return &EsewaAdapter{
		cfg:     cfg,
		creds:   creds,
		client:  client,
		logger:  logger,
		newUUID: uuid.NewString,
	}
}

func (e *EsewaAdapter) Supports() Method { return MethodEsewa }

func (e *EsewaAdapter) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	creds, err := credentialsFor[EsewaCredentials](ctx, e.creds, req.ShopID, MethodEsewa)
	if err != nil {
		return InitiateResponse{}, err
	}

	transactionUUID := e.newUUID()
	total := FormatMinor(req.AmountMinor)

	successURL, failureURL := e.cfg.SuccessURL, e.cfg.FailureURL
	if successURL == "" {
		successURL = req.ReturnURL
	}
	if failureURL == "" {
		failureURL = req.FailureURL
	}

	fields := map[string]string{
		"amount":                  total,
		"tax_amount":              "0",
		"total_amount":            total,
		"transaction_uuid":        transactionUUID,
		"product_code":            creds.MerchantCode,
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"success_url":             successURL,
		"failure_url":             failureURL,
		"signed_field_names":      esewaSignedFields,
	}
	fields["signature"] = EsewaSignature(creds.SecretKey, total, transactionUUID, creds.MerchantCode)

	return InitiateResponse{
		RedirectTarget:   e.cfg.FormURL,
		Fields:           fields,
		GatewayRequestID: transactionUUID,
	}, nil
}

// EsewaSignature signs the form the way eSewa expects: HMAC-SHA256 over
// "total_amount=..,transaction_uuid=..,product_code=..", base64 encoded.
func EsewaSignature(secret, totalAmount, transactionUUID, productCode string) string {
	raw := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s", totalAmount, transactionUUID, productCode)
	return signHMAC(secret, raw)
}

func signHMAC(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// verifyResponseSignature checks the signature eSewa puts on its success blob.
// signed is false when the blob carries no signature at all.
func verifyResponseSignature(secret string, params map[string]string) (signed, ok bool) {
	names := params["signed_field_names"]
	sig := params["signature"]
	if names == "" || sig == "" {
		return false, false
	}

	parts := strings.Split(names, ",")
	msg := make([]string, 0, len(parts))
	for _, name := range parts {
		name = strings.TrimSpace(name)
		msg = append(msg, name+"="+params[name])
	}

	expected := signHMAC(secret, strings.Join(msg, ","))
	return true, hmac.Equal([]byte(expected), []byte(sig))
}

type esewaStatusResponse struct {
	ProductCode     string      `json:"product_code"`
	TransactionUUID string      `json:"transaction_uuid"`
	TotalAmount     json.Number `json:"total_amount"`
	Status          string      `json:"status"`
	RefID           *string     `json:"ref_id"`
}

func (e *EsewaAdapter) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	creds, err := credentialsFor[EsewaCredentials](ctx, e.creds, req.ShopID, MethodEsewa)
	if err != nil {
		return VerifyResult{}, err
	}

	if signed, ok := verifyResponseSignature(creds.SecretKey, req.Params); signed && !ok {
		e.logger.Warnw("esewa callback signature mismatch", "shop_id", req.ShopID, "request_id", req.GatewayRequestID)
	}

	q := url.Values{}
	q.Set("product_code", creds.MerchantCode)
	q.Set("total_amount", FormatMinor(req.AmountMinor))
	q.Set("transaction_uuid", req.GatewayRequestID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.StatusURL+"?"+q.Encode(), nil)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%w: esewa status url: %w", ErrConfiguration, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		e.logger.Warnw("esewa status request failed", "request_id", req.GatewayRequestID, "err", err)
		return errorResult(), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Warnw("esewa status check failed", "request_id", req.GatewayRequestID, "http", resp.StatusCode, "err", err)
		return errorResult(), nil
	}

	var res esewaStatusResponse
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		e.logger.Warnw("esewa status decode failed", "request_id", req.GatewayRequestID, "err", err)
		return errorResult(), nil
	}

	out := VerifyResult{Status: esewaState(res.Status)}
	out.Success = out.Status == StateCompleted
	if out.Success {
		switch {
		case res.RefID != nil && *res.RefID != "":
			out.GatewayTxnID = *res.RefID
		default:
			out.GatewayTxnID = req.Params["transaction_code"]
		}
	}
	if res.TotalAmount != "" {
		if amt, err := ParseMinor(res.TotalAmount.String()); err == nil {
			out.AmountMinor = amt
		}
	}
	return out, nil
}

func esewaState(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COMPLETE":
		return StateCompleted
	case "PENDING", "AMBIGUOUS":
		return StatePending
	case "CANCELED", "NOT_FOUND":
		return StateFailed
	case "FULL_REFUND", "PARTIAL_REFUND":
		return StateRefunded
	default:
		return StateError
	}
}
