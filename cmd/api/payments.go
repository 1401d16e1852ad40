package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pasal/internal/payments"
)

type startPaymentPayload struct {
	OrderID     string `json:"orderId" validate:"required,uuid"`
	AmountMinor int64  `json:"amountMinor" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	ReturnURL   string `json:"returnUrl" validate:"required,url"`
	FailureURL  string `json:"failureUrl" validate:"required,url"`
}

// startPaymentHandler godoc
//
//	@Summary		Start a payment
//	@Description	Records an INITIATED payment and returns what the client needs to redirect the buyer to the provider.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			shopID	path		string						true	"Shop ID"
//	@Param			method	path		string						true	"ESEWA | KHALTI | BANK_TRANSFER | CASH_ON_DELIVERY"
//	@Param			payload	body		startPaymentPayload			true	"Order and amount"
//	@Success		201		{object}	payments.InitiateResponse	"Envelope: { data: InitiateResponse }"
//	@Failure		400		{object}	error						"Invalid request or gateway not configured"
//	@Failure		401		{object}	error						"Unauthorized"
//	@Failure		502		{object}	error						"Provider unavailable"
//	@Security		ApiKeyAuth
//	@Router			/payments/{shopID}/{method}/init [post]
func (app *application) startPaymentHandler(w http.ResponseWriter, r *http.Request) {
	shopID, method, err := shopAndMethod(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload startPaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	resp, err := app.payments.StartPayment(r.Context(), payments.StartRequest{
		ShopID:      shopID,
		Method:      method,
		OrderID:     uuid.MustParse(payload.OrderID),
		AmountMinor: payload.AmountMinor,
		Currency:    payload.Currency,
		ReturnURL:   payload.ReturnURL,
		FailureURL:  payload.FailureURL,
	})
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// paymentCallbackHandler godoc
//
//	@Summary		Provider callback
//	@Description	Accepts a provider callback as query string, form or JSON, verifies it with the provider and settles the payment. Repeated deliveries return the stored outcome.
//	@Tags			Payments
//	@Produce		json
//	@Param			shopID	path		string					true	"Shop ID"
//	@Param			method	path		string					true	"Payment method"
//	@Success		200		{object}	payments.VerifyResult	"Envelope: { data: VerifyResult }"
//	@Failure		400		{object}	error					"Missing correlation id"
//	@Failure		404		{object}	error					"Unknown payment"
//	@Failure		429		{object}	error					"Rate limited"
//	@Router			/payments/{shopID}/{method}/callback [get]
//	@Router			/payments/{shopID}/{method}/callback [post]
func (app *application) paymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	shopID, method, err := shopAndMethod(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	raw, err := callbackParams(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	res, err := app.payments.HandleCallback(r.Context(), shopID, method, raw)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, res); err != nil {
		app.internalServerError(w, r, err)
	}
}

// esewaReturnHandler godoc
//
//	@Summary		eSewa browser return
//	@Description	eSewa sends the buyer here after paying or cancelling. The payment is settled and the browser is redirected to the shop's return or failure URL with paymentStatus and transactionId.
//	@Tags			Payments
//	@Param			data	query	string	false	"base64 response blob from eSewa"
//	@Success		303
//	@Router			/payments/esewa/success [get]
//	@Router			/payments/esewa/failure [get]
func (app *application) esewaReturnHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := callbackParams(w, r)
	if err != nil {
		app.logger.Warnw("esewa return with unreadable params", "err", err)
		raw = map[string]string{}
	}

	p, res, err := app.payments.HandleEsewaReturn(r.Context(), raw)
	if err != nil || p == nil {
		app.logger.Warnw("esewa return could not be settled", "path", r.URL.Path, "err", err)
		http.Redirect(w, r, withQuery(app.config.FrontendURL, "error", raw["transaction_uuid"]), http.StatusSeeOther)
		return
	}

	target := p.FailureURL
	if p.Status == payments.StatusCompleted {
		target = p.ReturnURL
	}
	http.Redirect(w, r, withQuery(target, returnStatus(p, res), p.RequestID()), http.StatusSeeOther)
}

func returnStatus(p *payments.Payment, res payments.VerifyResult) string {
	switch p.Status {
	case payments.StatusCompleted:
		return "success"
	case payments.StatusFailed, payments.StatusCanceled:
		return "failure"
	}
	if res.Status == payments.StateError {
		return "error"
	}
	return "pending"
}

func withQuery(base, status, transactionID string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("paymentStatus", status)
	if transactionID != "" {
		q.Set("transactionId", transactionID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func shopAndMethod(r *http.Request) (uuid.UUID, payments.Method, error) {
	shopID, err := uuid.Parse(chi.URLParam(r, "shopID"))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid shop id")
	}
	method, err := payments.ParseMethod(chi.URLParam(r, "method"))
	if err != nil {
		return uuid.Nil, "", err
	}
	return shopID, method, nil
}

// callbackParams flattens query, form or JSON callback input into one map.
// Query values are read first and body values override them.
func callbackParams(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	out := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	if r.Method == http.MethodGet || r.Body == nil || r.ContentLength == 0 {
		return out, nil
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body map[string]any
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("invalid callback body: %w", err)
		}
		for k, v := range body {
			switch t := v.(type) {
			case nil:
			case string:
				out[k] = t
			case json.Number:
				out[k] = t.String()
			case bool:
				out[k] = fmt.Sprint(t)
			default:
				b, _ := json.Marshal(t)
				out[k] = string(b)
			}
		}
		return out, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("callback body too large")
		}
		return nil, fmt.Errorf("invalid callback body: %w", err)
	}
	for k, v := range r.PostForm {
		if len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			out[k] = v[0]
		}
	}
	return out, nil
}
