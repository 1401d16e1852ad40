package payments_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pasal/internal/payments"
	"pasal/internal/payments/paymentstest"
	"pasal/internal/secrets"
)

func newConfigService(t *testing.T) (*payments.ConfigService, *paymentstest.Storage) {
	t.Helper()
	enc, err := secrets.NewEncryptor("test passphrase", "test-salt")
	require.NoError(t, err)
	store := paymentstest.NewStorage()
	return payments.NewConfigService(store, enc, zap.NewNop().Sugar()), store
}

func TestConfigService_CreateAndLoad(t *testing.T) {
	svc, store := newConfigService(t)
	ctx := context.Background()
	shop := uuid.New()
	creds := payments.EsewaCredentials{MerchantCode: "EPAYTEST", SecretKey: "8gBm/:&EnhH.1/q"}

	view, err := svc.Create(ctx, shop, payments.MethodEsewa, creds)
	require.NoError(t, err)
	assert.True(t, view.Active)
	assert.Equal(t, "***", view.Credentials.MaskedMerchantCode)

	stored, ok := store.Config(view.ID)
	require.True(t, ok)
	assert.NotContains(t, stored.EncryptedCredentials, "EPAYTEST")
	assert.NotContains(t, stored.EncryptedCredentials, creds.SecretKey)

	got, err := svc.Load(ctx, shop, payments.MethodEsewa)
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestConfigService_CreateRejectsDuplicate(t *testing.T) {
	svc, _ := newConfigService(t)
	ctx := context.Background()
	shop := uuid.New()

	first, err := svc.Create(ctx, shop, payments.MethodCashOnDelivery, payments.CODCredentials{})
	require.NoError(t, err)

	_, err = svc.Create(ctx, shop, payments.MethodCashOnDelivery, payments.CODCredentials{})
	assert.ErrorIs(t, err, payments.ErrConfiguration)

	// an inactive config still blocks a second one
	_, err = svc.ToggleActive(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, shop, payments.MethodCashOnDelivery, payments.CODCredentials{})
	assert.ErrorIs(t, err, payments.ErrConfiguration)

	// another shop is unaffected
	_, err = svc.Create(ctx, uuid.New(), payments.MethodCashOnDelivery, payments.CODCredentials{})
	assert.NoError(t, err)

	// once deleted, the slot is free again
	require.NoError(t, svc.SoftDelete(ctx, first.ID))
	_, err = svc.Create(ctx, shop, payments.MethodCashOnDelivery, payments.CODCredentials{})
	assert.NoError(t, err)
}

func TestConfigService_CreateValidation(t *testing.T) {
	svc, _ := newConfigService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), payments.MethodEsewa, payments.KhaltiCredentials{PublicKey: "p", SecretKey: "s"})
	assert.ErrorIs(t, err, payments.ErrValidation)

	_, err = svc.Create(ctx, uuid.New(), payments.MethodKhalti, payments.KhaltiCredentials{PublicKey: "p"})
	assert.ErrorIs(t, err, payments.ErrValidation)

	_, err = svc.Create(ctx, uuid.New(), payments.MethodEsewa, nil)
	assert.ErrorIs(t, err, payments.ErrValidation)
}

func TestConfigService_LoadStates(t *testing.T) {
	svc, _ := newConfigService(t)
	ctx := context.Background()
	shop := uuid.New()

	_, err := svc.Load(ctx, shop, payments.MethodKhalti)
	assert.ErrorIs(t, err, payments.ErrNotFound)

	view, err := svc.Create(ctx, shop, payments.MethodKhalti, payments.KhaltiCredentials{PublicKey: "p", SecretKey: "s"})
	require.NoError(t, err)

	off := false
	_, err = svc.Update(ctx, view.ID, payments.ConfigUpdate{Active: &off})
	require.NoError(t, err)
	_, err = svc.Load(ctx, shop, payments.MethodKhalti)
	assert.ErrorIs(t, err, payments.ErrConfiguration)

	require.NoError(t, svc.SoftDelete(ctx, view.ID))
	_, err = svc.Load(ctx, shop, payments.MethodKhalti)
	assert.ErrorIs(t, err, payments.ErrNotFound)
}

func TestConfigService_UpdateRotatesOnlyWhenSupplied(t *testing.T) {
	svc, store := newConfigService(t)
	ctx := context.Background()
	shop := uuid.New()

	view, err := svc.Create(ctx, shop, payments.MethodBankTransfer, payments.BankTransferCredentials{BankName: "Nabil", AccountNumber: "1"})
	require.NoError(t, err)
	before, _ := store.Config(view.ID)

	on := true
	_, err = svc.Update(ctx, view.ID, payments.ConfigUpdate{Active: &on})
	require.NoError(t, err)
	unchanged, _ := store.Config(view.ID)
	assert.Equal(t, before.EncryptedCredentials, unchanged.EncryptedCredentials)

	rotated := payments.BankTransferCredentials{BankName: "NIC Asia", AccountNumber: "2", AccountHolderName: "Hari"}
	_, err = svc.Update(ctx, view.ID, payments.ConfigUpdate{Credentials: rotated})
	require.NoError(t, err)
	after, _ := store.Config(view.ID)
	assert.NotEqual(t, before.EncryptedCredentials, after.EncryptedCredentials)

	got, err := svc.Load(ctx, shop, payments.MethodBankTransfer)
	require.NoError(t, err)
	assert.Equal(t, rotated, got)

	_, err = svc.Update(ctx, view.ID, payments.ConfigUpdate{Credentials: payments.CODCredentials{}})
	assert.ErrorIs(t, err, payments.ErrValidation)

	_, err = svc.Update(ctx, uuid.New(), payments.ConfigUpdate{Active: &on})
	assert.ErrorIs(t, err, payments.ErrNotFound)
}

func TestConfigService_DeletedConfigsAreInvisible(t *testing.T) {
	svc, store := newConfigService(t)
	ctx := context.Background()
	shop := uuid.New()

	esewa, err := svc.Create(ctx, shop, payments.MethodEsewa, payments.EsewaCredentials{MerchantCode: "m", SecretKey: "s"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, shop, payments.MethodCashOnDelivery, payments.CODCredentials{})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(ctx, esewa.ID))

	list, err := svc.ListByShop(ctx, shop)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, payments.MethodCashOnDelivery, list[0].Method)

	_, err = svc.Get(ctx, esewa.ID)
	assert.ErrorIs(t, err, payments.ErrNotFound)
	_, _, err = svc.GetFullCredentials(ctx, esewa.ID)
	assert.ErrorIs(t, err, payments.ErrNotFound)
	_, err = svc.ToggleActive(ctx, esewa.ID)
	assert.ErrorIs(t, err, payments.ErrNotFound)
	assert.ErrorIs(t, svc.SoftDelete(ctx, esewa.ID), payments.ErrNotFound)

	// the row itself is kept
	row, ok := store.Config(esewa.ID)
	require.True(t, ok)
	assert.True(t, row.Deleted)
}

func TestConfigService_GetFullCredentials(t *testing.T) {
	svc, _ := newConfigService(t)
	ctx := context.Background()
	creds := payments.KhaltiCredentials{PublicKey: "pub", SecretKey: "sec"}

	view, err := svc.Create(ctx, uuid.New(), payments.MethodKhalti, creds)
	require.NoError(t, err)

	cfg, got, err := svc.GetFullCredentials(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, cfg.ID)
	assert.Equal(t, creds, got)
}

func TestConfigService_TamperedCredentials(t *testing.T) {
	svc, store := newConfigService(t)
	ctx := context.Background()
	shop := uuid.New()

	view, err := svc.Create(ctx, shop, payments.MethodEsewa, payments.EsewaCredentials{MerchantCode: "m", SecretKey: "s"})
	require.NoError(t, err)

	other, err := secrets.NewEncryptor("a different passphrase", "test-salt")
	require.NoError(t, err)
	foreign, err := other.Encrypt([]byte(`{"merchantCode":"m","secretKey":"s"}`))
	require.NoError(t, err)
	require.NoError(t, store.Repos().Configs.Update(ctx, &payments.GatewayConfig{ID: view.ID, EncryptedCredentials: foreign, Active: true}))

	_, err = svc.Load(ctx, shop, payments.MethodEsewa)
	assert.ErrorIs(t, err, payments.ErrCredential)
}
