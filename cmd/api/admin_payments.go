package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pasal/internal/params"
	"pasal/internal/payments"
)

// adminListPaymentsHandler godoc
//
//	@Summary		List payments (admin)
//	@Description	Returns a paginated list of payments, oldest first. Optional filters: status, method, since, before.
//	@Tags			Admin-Payments
//	@Produce		json
//	@Param			status	query		string			false	"INITIATED|COMPLETED|FAILED|CANCELED"
//	@Param			method	query		string			false	"payment method filter"
//	@Param			since	query		string			false	"RFC3339 or YYYY-MM-DD; created_at >= since"
//	@Param			before	query		string			false	"RFC3339 or YYYY-MM-DD; created_at < before"
//	@Param			page	query		int				false	"Page number (default: 1)"
//	@Param			limit	query		int				false	"Items per page (default 20, max 100)"
//	@Success		200		{object}	map[string]any	"Envelope: { data: { payments, pagination } }"
//	@Failure		400		{object}	error			"Bad Request"
//	@Failure		401		{object}	error			"Unauthorized"
//	@Failure		403		{object}	error			"Forbidden"
//	@Security		ApiKeyAuth
//	@Router			/admin/payments [get]
func (app *application) adminListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	var f payments.ListFilter

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st, err := payments.ParseStatus(raw)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		f.Status = &st
	}
	if raw := strings.TrimSpace(q.Get("method")); raw != "" {
		m, err := payments.ParseMethod(raw)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		f.Method = &m
	}

	var err error
	if f.Since, err = params.ParseTime(q, "since"); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if f.Before, err = params.ParseTime(q, "before"); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	pg := params.ParsePagination(q)
	f.Limit, f.Offset = pg.Limit, pg.Offset

	list, total, err := app.payments.ListForReconciliation(ctx, f)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}
	pg.ComputeMeta(total)

	if list == nil {
		list = []*payments.Payment{}
	}
	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"payments":   list,
		"pagination": pg,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type cancelPaymentPayload struct {
	Reason string `json:"reason" validate:"max=500"`
}

// adminCancelPaymentHandler godoc
//
//	@Summary	Cancel an open payment (admin)
//	@Tags		Admin-Payments
//	@Accept		json
//	@Produce	json
//	@Param		paymentID	path		string					true	"Payment ID"
//	@Param		payload		body		cancelPaymentPayload	false	"Reason"
//	@Success	200			{object}	payments.Payment
//	@Failure	404			{object}	error
//	@Failure	409			{object}	error	"Payment already terminal"
//	@Security	ApiKeyAuth
//	@Router		/admin/payments/{paymentID}/cancel [post]
func (app *application) adminCancelPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid payment id"))
		return
	}

	var payload cancelPaymentPayload
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		if err := Validate.Struct(payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	p, err := app.payments.Cancel(r.Context(), id, payload.Reason)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, p); err != nil {
		app.internalServerError(w, r, err)
	}
}

type confirmPaymentPayload struct {
	TxnRef string `json:"txnRef" validate:"max=128"`
}

// adminConfirmPaymentHandler godoc
//
//	@Summary		Confirm a manual payment (admin)
//	@Description	Marks a bank transfer or cash on delivery payment COMPLETED once the money has arrived.
//	@Tags			Admin-Payments
//	@Accept			json
//	@Produce		json
//	@Param			paymentID	path		string					true	"Payment ID"
//	@Param			payload		body		confirmPaymentPayload	false	"Bank or receipt reference"
//	@Success		200			{object}	payments.Payment
//	@Failure		400			{object}	error	"Not a manual method"
//	@Failure		409			{object}	error	"Payment already terminal"
//	@Security		ApiKeyAuth
//	@Router			/admin/payments/{paymentID}/confirm [post]
func (app *application) adminConfirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid payment id"))
		return
	}

	var payload confirmPaymentPayload
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		if err := Validate.Struct(payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	p, err := app.payments.ConfirmManual(r.Context(), id, payload.TxnRef)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, p); err != nil {
		app.internalServerError(w, r, err)
	}
}
