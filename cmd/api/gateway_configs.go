package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pasal/internal/payments"
)

type createGatewayConfigPayload struct {
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
	Credentials   json.RawMessage `json:"credentials"`
}

type updateGatewayConfigPayload struct {
	Credentials json.RawMessage `json:"credentials,omitempty"`
	Active      *bool           `json:"active,omitempty"`
}

type fullCredentialsResponse struct {
	Config      *payments.GatewayConfig `json:"config"`
	Credentials payments.Credentials    `json:"credentials"`
}

// createGatewayConfigHandler godoc
//
//	@Summary		Configure a payment method for a shop
//	@Description	Stores the shop's credentials for one payment method, encrypted. One live config per shop and method.
//	@Tags			Gateway-Configs
//	@Accept			json
//	@Produce		json
//	@Param			shopID	path		string						true	"Shop ID"
//	@Param			payload	body		createGatewayConfigPayload	true	"Method and credentials"
//	@Success		201		{object}	payments.ConfigView			"Envelope: { data: ConfigView } with masked credentials"
//	@Failure		400		{object}	error						"Invalid credentials or duplicate config"
//	@Failure		403		{object}	error						"Not the shop owner"
//	@Security		ApiKeyAuth
//	@Router			/shops/{shopID}/gateway-configs [post]
func (app *application) createGatewayConfigHandler(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "shopID"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid shop id"))
		return
	}
	if !app.authorizeShop(w, r, shopID) {
		return
	}

	var payload createGatewayConfigPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	method, err := payments.ParseMethod(payload.PaymentMethod)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	creds, err := payments.DecodeCredentials(method, payload.Credentials)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view, err := app.configs.Create(r.Context(), shopID, method, creds)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listGatewayConfigsHandler godoc
//
//	@Summary		List a shop's payment methods
//	@Tags			Gateway-Configs
//	@Produce		json
//	@Param			shopID	path		string				true	"Shop ID"
//	@Success		200		{array}		payments.ConfigView	"Envelope: { data: [ConfigView] }"
//	@Failure		403		{object}	error				"Not the shop owner"
//	@Security		ApiKeyAuth
//	@Router			/shops/{shopID}/gateway-configs [get]
func (app *application) listGatewayConfigsHandler(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "shopID"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid shop id"))
		return
	}
	if !app.authorizeShop(w, r, shopID) {
		return
	}

	views, err := app.configs.ListByShop(r.Context(), shopID)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, views); err != nil {
		app.internalServerError(w, r, err)
	}
}

// loadConfigForCaller resolves {configID} and checks the caller may manage it.
func (app *application) loadConfigForCaller(w http.ResponseWriter, r *http.Request) (*payments.GatewayConfig, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "configID"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid config id"))
		return nil, false
	}
	cfg, err := app.configs.Get(r.Context(), id)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return nil, false
	}
	if !app.authorizeShop(w, r, cfg.ShopID) {
		return nil, false
	}
	return cfg, true
}

// updateGatewayConfigHandler godoc
//
//	@Summary		Update a payment method config
//	@Description	Replaces the credentials and/or the active flag. Omitted fields are unchanged.
//	@Tags			Gateway-Configs
//	@Accept			json
//	@Produce		json
//	@Param			configID	path		string						true	"Config ID"
//	@Param			payload		body		updateGatewayConfigPayload	true	"Fields to change"
//	@Success		200			{object}	payments.ConfigView
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/gateway-configs/{configID} [patch]
func (app *application) updateGatewayConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, ok := app.loadConfigForCaller(w, r)
	if !ok {
		return
	}

	var payload updateGatewayConfigPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	upd := payments.ConfigUpdate{Active: payload.Active}
	if len(payload.Credentials) > 0 {
		creds, err := payments.DecodeCredentials(cfg.Method, payload.Credentials)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		upd.Credentials = creds
	}

	view, err := app.configs.Update(r.Context(), cfg.ID, upd)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// toggleGatewayConfigHandler godoc
//
//	@Summary	Enable or disable a payment method
//	@Tags		Gateway-Configs
//	@Produce	json
//	@Param		configID	path		string	true	"Config ID"
//	@Success	200			{object}	payments.ConfigView
//	@Failure	404			{object}	error
//	@Security	ApiKeyAuth
//	@Router		/gateway-configs/{configID}/toggle-active [patch]
func (app *application) toggleGatewayConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, ok := app.loadConfigForCaller(w, r)
	if !ok {
		return
	}

	view, err := app.configs.ToggleActive(r.Context(), cfg.ID)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteGatewayConfigHandler godoc
//
//	@Summary	Remove a payment method
//	@Tags		Gateway-Configs
//	@Param		configID	path	string	true	"Config ID"
//	@Success	204
//	@Failure	404	{object}	error
//	@Security	ApiKeyAuth
//	@Router		/gateway-configs/{configID} [delete]
func (app *application) deleteGatewayConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, ok := app.loadConfigForCaller(w, r)
	if !ok {
		return
	}

	if err := app.configs.SoftDelete(r.Context(), cfg.ID); err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adminGatewayCredentialsHandler godoc
//
//	@Summary		View full credentials (admin)
//	@Description	Decrypts and returns a config's credentials. Every call is logged.
//	@Tags			Admin-Gateway-Configs
//	@Produce		json
//	@Param			configID	path		string	true	"Config ID"
//	@Success		200			{object}	fullCredentialsResponse
//	@Failure		403			{object}	error
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/gateway-configs/{configID}/credentials [get]
func (app *application) adminGatewayCredentialsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "configID"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid config id"))
		return
	}

	cfg, creds, err := app.configs.GetFullCredentials(r.Context(), id)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if p := getPrincipal(r); p != nil {
		app.logger.Infow("admin viewed gateway credentials", "user_id", p.ID, "config_id", id)
	}

	if err := app.jsonResponse(w, http.StatusOK, fullCredentialsResponse{Config: cfg, Credentials: creds}); err != nil {
		app.internalServerError(w, r, err)
	}
}
