package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pasal/internal/auth"
	"pasal/internal/domain/accesscontrol"
	"pasal/internal/payments"
	"pasal/internal/payments/paymentstest"
	"pasal/internal/ratelimiter"
)

const (
	testSecret  = "test-secret"
	adminUserID = int64(1)
	ownerUserID = int64(2)
	otherUserID = int64(3)
)

type fakeAccess struct {
	admins map[int64]bool
	owners map[uuid.UUID]int64
}

func (f fakeAccess) GetUserRoles(context.Context, int64) ([]accesscontrol.Role, error) { return nil, nil }

func (f fakeAccess) UserHasRole(_ context.Context, userID int64, role accesscontrol.RoleName) (bool, error) {
	return role == accesscontrol.RoleAdmin && f.admins[userID], nil
}

func (f fakeAccess) OwnsShop(_ context.Context, userID int64, shopID uuid.UUID) (bool, error) {
	return f.owners[shopID] == userID, nil
}

type base64Cipher struct{}

func (base64Cipher) Encrypt(b []byte) (string, error) { return base64.StdEncoding.EncodeToString(b), nil }
func (base64Cipher) Decrypt(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

type testEnv struct {
	app    *application
	store  *paymentstest.Storage
	events *paymentstest.Publisher
	shopID uuid.UUID
	esewa  *httptest.Server
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop().Sugar()
	store := paymentstest.NewStorage()
	events := &paymentstest.Publisher{}
	shopID := uuid.New()

	esewa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"product_code":"EPAYTEST","transaction_uuid":%q,"total_amount":"100","status":"COMPLETE","ref_id":"REF-9"}`,
			r.URL.Query().Get("transaction_uuid"))
	}))
	t.Cleanup(esewa.Close)

	configs := payments.NewConfigService(store, base64Cipher{}, logger)
	refs, err := payments.NewReferenceGenerator("test-salt", "PSL")
	require.NoError(t, err)

	registry, err := payments.NewRegistry(
		payments.NewEsewaAdapter(payments.EsewaConfig{StatusURL: esewa.URL}, configs, esewa.Client(), logger),
		payments.NewBankTransferAdapter(configs, refs),
		payments.NewCODAdapter(configs, refs),
	)
	require.NoError(t, err)

	app := &application{
		config: config{
			FrontendURL:         "https://pasal.example.com",
			AuthBasicUser:       "ops",
			AuthBasicPass:       "ops-pass",
			RateLimiterEnabled:  false,
			RateLimiterRequests: 1,
			RateLimiterWindow:   time.Minute,
		},
		logger:        logger,
		payments:      payments.NewService(store, registry, events, logger),
		configs:       configs,
		access:        fakeAccess{admins: map[int64]bool{adminUserID: true}, owners: map[uuid.UUID]int64{shopID: ownerUserID}},
		authenticator: auth.NewJWTAuthenticator(testSecret, "pasal"),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(1, time.Minute),
	}

	return &testEnv{app: app, store: store, events: events, shopID: shopID, esewa: esewa, router: app.mount()}
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := e.app.authenticator.GenerateAccessToken(userID, "merchant")
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path string, userID int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) configure(t *testing.T, creds payments.Credentials) payments.ConfigView {
	t.Helper()
	view, err := e.app.configs.Create(context.Background(), e.shopID, creds.Method(), creds)
	require.NoError(t, err)
	return view
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func startBody() string {
	return fmt.Sprintf(`{"orderId":%q,"amountMinor":10000,"returnUrl":"https://shop.example.com/ok","failureUrl":"https://shop.example.com/fail"}`, uuid.NewString())
}

func TestStartPaymentHandler(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, payments.CODCredentials{})

	t.Run("requires a bearer token", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/payments/"+env.shopID.String()+"/CASH_ON_DELIVERY/init", 0, startBody())
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("cash on delivery", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/payments/"+env.shopID.String()+"/cash_on_delivery/init", otherUserID, startBody())
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp payments.InitiateResponse
		decodeData(t, rr, &resp)
		assert.True(t, strings.HasPrefix(resp.GatewayRequestID, "PSL-"))
		assert.Equal(t, resp.GatewayRequestID, resp.Fields["reference"])

		p, ok := env.store.Payment(resp.PaymentID)
		require.True(t, ok)
		assert.Equal(t, payments.StatusInitiated, p.Status)
	})

	t.Run("method not configured for shop", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/payments/"+env.shopID.String()+"/BANK_TRANSFER/init", otherUserID, startBody())
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown method", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/payments/"+env.shopID.String()+"/PAYPAL/init", otherUserID, startBody())
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/payments/"+env.shopID.String()+"/CASH_ON_DELIVERY/init", otherUserID,
			`{"orderId":"nope","amountMinor":0}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestPaymentCallbackHandler(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, payments.CODCredentials{})

	rr := env.do(t, http.MethodPost, "/v1/payments/"+env.shopID.String()+"/CASH_ON_DELIVERY/init", otherUserID, startBody())
	require.Equal(t, http.StatusCreated, rr.Code)
	var started payments.InitiateResponse
	decodeData(t, rr, &started)

	base := "/v1/payments/" + env.shopID.String() + "/CASH_ON_DELIVERY/callback"

	t.Run("query string", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, base+"?reference="+url.QueryEscape(started.GatewayRequestID), 0, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var res payments.VerifyResult
		decodeData(t, rr, &res)
		assert.False(t, res.Success)
		assert.Equal(t, payments.StatePending, res.Status)
	})

	t.Run("json body", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, base, 0, fmt.Sprintf(`{"reference":%q}`, started.GatewayRequestID))
		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("form body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, base, strings.NewReader("reference="+url.QueryEscape(started.GatewayRequestID)))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("missing correlation id", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, base, 0, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown payment", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, base+"?reference=PSL-NOPE", 0, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("other shop", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/v1/payments/"+uuid.NewString()+"/CASH_ON_DELIVERY/callback?reference="+
			url.QueryEscape(started.GatewayRequestID), 0, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestEsewaReturnHandler(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, payments.EsewaCredentials{MerchantCode: "EPAYTEST", SecretKey: "8gBm/:&EnhH.1/q"})

	ctx := context.Background()
	resp, err := env.app.payments.StartPayment(ctx, payments.StartRequest{
		ShopID:      env.shopID,
		Method:      payments.MethodEsewa,
		OrderID:     uuid.New(),
		AmountMinor: 10000,
		ReturnURL:   "https://shop.example.com/ok?order=7",
		FailureURL:  "https://shop.example.com/fail",
	})
	require.NoError(t, err)

	blob, err := json.Marshal(map[string]any{
		"transaction_code": "REF-9",
		"status":           "COMPLETE",
		"total_amount":     "100.0",
		"transaction_uuid": resp.GatewayRequestID,
		"product_code":     "EPAYTEST",
	})
	require.NoError(t, err)

	rr := env.do(t, http.MethodGet, "/v1/payments/esewa/success?data="+url.QueryEscape(base64.StdEncoding.EncodeToString(blob)), 0, "")
	require.Equal(t, http.StatusSeeOther, rr.Code)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", loc.Host)
	assert.Equal(t, "/ok", loc.Path)
	assert.Equal(t, "7", loc.Query().Get("order"))
	assert.Equal(t, "success", loc.Query().Get("paymentStatus"))
	assert.Equal(t, resp.GatewayRequestID, loc.Query().Get("transactionId"))

	p, _ := env.store.Payment(resp.PaymentID)
	assert.Equal(t, payments.StatusCompleted, p.Status)
	assert.Equal(t, "REF-9", p.TxnID())
	require.Len(t, env.events.Events(), 1)
	assert.Equal(t, payments.SubjectCompleted, env.events.Events()[0].Subject)

	t.Run("unknown payment goes to the storefront", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/v1/payments/esewa/failure", 0, "")
		require.Equal(t, http.StatusSeeOther, rr.Code)
		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "pasal.example.com", loc.Host)
		assert.Equal(t, "error", loc.Query().Get("paymentStatus"))
	})
}

func TestGatewayConfigHandlers(t *testing.T) {
	env := newTestEnv(t)
	shop := env.shopID.String()

	t.Run("non owner is forbidden", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/shops/"+shop+"/gateway-configs", otherUserID,
			`{"paymentMethod":"KHALTI","credentials":{"publicKey":"pub","secretKey":"sec"}}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	rr := env.do(t, http.MethodPost, "/v1/shops/"+shop+"/gateway-configs", ownerUserID,
		`{"paymentMethod":"BANK_TRANSFER","credentials":{"bankName":"Nabil","accountNumber":"0011223344"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "0011223344")

	var view payments.ConfigView
	decodeData(t, rr, &view)
	assert.Equal(t, "****", view.Credentials.MaskedAccount)
	assert.True(t, view.Active)

	t.Run("duplicate", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/shops/"+shop+"/gateway-configs", ownerUserID,
			`{"paymentMethod":"BANK_TRANSFER","credentials":{"bankName":"NIC","accountNumber":"9"}}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/shops/"+shop+"/gateway-configs", ownerUserID,
			`{"paymentMethod":"ESEWA","credentials":{"merchantCode":"EPAYTEST"}}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("list is masked", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/v1/shops/"+shop+"/gateway-configs", ownerUserID, "")
		require.Equal(t, http.StatusOK, rr.Code)
		var views []payments.ConfigView
		decodeData(t, rr, &views)
		require.Len(t, views, 1)
		assert.NotContains(t, rr.Body.String(), "Nabil")
	})

	cfgPath := "/v1/gateway-configs/" + view.ID.String()

	t.Run("toggle", func(t *testing.T) {
		rr := env.do(t, http.MethodPatch, cfgPath+"/toggle-active", ownerUserID, "")
		require.Equal(t, http.StatusOK, rr.Code)
		var v payments.ConfigView
		decodeData(t, rr, &v)
		assert.False(t, v.Active)
	})

	t.Run("update rotates credentials", func(t *testing.T) {
		rr := env.do(t, http.MethodPatch, cfgPath, ownerUserID,
			`{"credentials":{"bankName":"NIC Asia","accountNumber":"555"},"active":true}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		_, creds, err := env.app.configs.GetFullCredentials(context.Background(), view.ID)
		require.NoError(t, err)
		assert.Equal(t, payments.BankTransferCredentials{BankName: "NIC Asia", AccountNumber: "555"}, creds)
	})

	t.Run("full credentials need admin", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/v1/admin/gateway-configs/"+view.ID.String()+"/credentials", ownerUserID, "")
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = env.do(t, http.MethodGet, "/v1/admin/gateway-configs/"+view.ID.String()+"/credentials", adminUserID, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"accountNumber":"555"`)
	})

	t.Run("admin may manage any shop", func(t *testing.T) {
		rr := env.do(t, http.MethodPatch, cfgPath+"/toggle-active", adminUserID, "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rr := env.do(t, http.MethodDelete, cfgPath, ownerUserID, "")
		require.Equal(t, http.StatusNoContent, rr.Code)

		rr = env.do(t, http.MethodDelete, cfgPath, ownerUserID, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAdminPaymentHandlers(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, payments.BankTransferCredentials{BankName: "Nabil", AccountNumber: "1"})

	start := func() payments.InitiateResponse {
		rr := env.do(t, http.MethodPost, "/v1/payments/"+env.shopID.String()+"/BANK_TRANSFER/init", otherUserID, startBody())
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var resp payments.InitiateResponse
		decodeData(t, rr, &resp)
		return resp
	}
	first, second := start(), start()

	t.Run("list needs admin", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/v1/admin/payments", ownerUserID, "")
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/v1/admin/payments?status=initiated&limit=1", adminUserID, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var out struct {
			Payments   []payments.Payment `json:"payments"`
			Pagination struct {
				Total   int  `json:"total"`
				HasNext bool `json:"has_next"`
			} `json:"pagination"`
		}
		decodeData(t, rr, &out)
		assert.Len(t, out.Payments, 1)
		assert.Equal(t, 2, out.Pagination.Total)
		assert.True(t, out.Pagination.HasNext)
	})

	t.Run("bad filter", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/v1/admin/payments?since=yesterday", adminUserID, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("confirm then conflict", func(t *testing.T) {
		path := "/v1/admin/payments/" + first.PaymentID.String() + "/confirm"
		rr := env.do(t, http.MethodPost, path, adminUserID, `{"txnRef":"NABIL-778"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var p payments.Payment
		decodeData(t, rr, &p)
		assert.Equal(t, payments.StatusCompleted, p.Status)
		assert.Equal(t, "NABIL-778", p.TxnID())

		rr = env.do(t, http.MethodPost, path, adminUserID, "")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("cancel", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/admin/payments/"+second.PaymentID.String()+"/cancel", adminUserID, `{"reason":"buyer asked"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		p, _ := env.store.Payment(second.PaymentID)
		assert.Equal(t, payments.StatusCanceled, p.Status)
	})

	t.Run("unknown payment", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/admin/payments/"+uuid.NewString()+"/cancel", adminUserID, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRateLimiterMiddleware(t *testing.T) {
	env := newTestEnv(t)
	env.app.config.RateLimiterEnabled = true

	path := "/v1/payments/" + env.shopID.String() + "/KHALTI/callback?pidx=abc"
	rr := env.do(t, http.MethodGet, path, 0, "")
	assert.NotEqual(t, http.StatusTooManyRequests, rr.Code)

	rr = env.do(t, http.MethodGet, path, 0, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestHealthCheckHandler(t *testing.T) {
	env := newTestEnv(t)
	env.app.checks = map[string]func(context.Context) error{
		"database": func(context.Context) error { return nil },
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.SetBasicAuth("ops", "ops-pass")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	env.app.checks["nats"] = func(context.Context) error { return errors.New("nats not connected") }
	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.SetBasicAuth("ops", "ops-pass")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "degraded")
}

func TestPaymentErrorResponse(t *testing.T) {
	app := &application{logger: zap.NewNop().Sugar()}
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", payments.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: %w", payments.ErrConfiguration, payments.ErrNotFound), http.StatusBadRequest},
		{fmt.Errorf("%w: gone", payments.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: done", payments.ErrInvalidTransition), http.StatusConflict},
		{fmt.Errorf("%w: timeout", payments.ErrExternalGateway), http.StatusBadGateway},
		{payments.ErrCredential, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rr := httptest.NewRecorder()
			app.paymentErrorResponse(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
