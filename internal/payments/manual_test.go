package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefs(t *testing.T, prefix string) *ReferenceGenerator {
	t.Helper()
	refs, err := NewReferenceGenerator("test-salt", prefix)
	require.NoError(t, err)
	return refs
}

func TestReferenceGenerator_Unique(t *testing.T) {
	refs := newTestRefs(t, "bt")
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref, err := refs.Next()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ref, "BT-"), ref)
		assert.GreaterOrEqual(t, len(ref), len("BT-")+8)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestBankTransferAdapter(t *testing.T) {
	creds := BankTransferCredentials{BankName: "Nabil Bank", AccountNumber: "0123456789", BranchName: "Thamel"}
	a := NewBankTransferAdapter(staticCreds{creds: creds}, newTestRefs(t, "BT"))
	assert.Equal(t, MethodBankTransfer, a.Supports())

	resp, err := a.Initiate(context.Background(), InitiateRequest{
		ShopID:      uuid.New(),
		OrderID:     uuid.New(),
		AmountMinor: 250050,
		ReturnURL:   "https://shop.example.com/thanks",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/thanks", resp.RedirectTarget)
	assert.Equal(t, resp.GatewayRequestID, resp.Fields["reference"])
	assert.Equal(t, "2500.50", resp.Fields["amount"])
	assert.Equal(t, "Nabil Bank", resp.Fields["bank_name"])
	assert.Equal(t, "Thamel", resp.Fields["branch_name"])
	assert.NotContains(t, resp.Fields, "account_holder_name")

	res, err := a.Verify(context.Background(), VerifyRequest{ShopID: uuid.New(), GatewayRequestID: resp.GatewayRequestID})
	require.NoError(t, err)
	assert.Equal(t, VerifyResult{Status: StatePending}, res)
}

func TestCODAdapter(t *testing.T) {
	a := NewCODAdapter(staticCreds{creds: CODCredentials{}}, newTestRefs(t, "COD"))

	resp, err := a.Initiate(context.Background(), InitiateRequest{ShopID: uuid.New(), AmountMinor: 100, ReturnURL: "r"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.GatewayRequestID, "COD-"))
	assert.Equal(t, "1", resp.Fields["amount"])

	disabled := NewCODAdapter(staticCreds{}, newTestRefs(t, "COD"))
	_, err = disabled.Initiate(context.Background(), InitiateRequest{ShopID: uuid.New(), AmountMinor: 100})
	assert.ErrorIs(t, err, ErrConfiguration)
}
