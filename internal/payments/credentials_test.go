package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCredentials(t *testing.T) {
	tests := []struct {
		name    string
		method  Method
		raw     string
		want    Credentials
		wantErr bool
	}{
		{
			name:   "esewa",
			method: MethodEsewa,
			raw:    `{"merchantCode":"EPAYTEST","secretKey":"8gBm/:&EnhH.1/q"}`,
			want:   EsewaCredentials{MerchantCode: "EPAYTEST", SecretKey: "8gBm/:&EnhH.1/q"},
		},
		{
			name:   "khalti",
			method: MethodKhalti,
			raw:    `{"publicKey":"pub","secretKey":"sec"}`,
			want:   KhaltiCredentials{PublicKey: "pub", SecretKey: "sec"},
		},
		{
			name:   "bank transfer with optional fields omitted",
			method: MethodBankTransfer,
			raw:    `{"bankName":"Nabil","accountNumber":"001122"}`,
			want:   BankTransferCredentials{BankName: "Nabil", AccountNumber: "001122"},
		},
		{name: "cod empty object", method: MethodCashOnDelivery, raw: `{}`, want: CODCredentials{}},
		{name: "cod empty body", method: MethodCashOnDelivery, raw: ``, want: CODCredentials{}},
		{name: "blank secret", method: MethodEsewa, raw: `{"merchantCode":"EPAYTEST","secretKey":"   "}`, wantErr: true},
		{name: "missing field", method: MethodKhalti, raw: `{"publicKey":"pub"}`, wantErr: true},
		{
			// a khalti-shaped payload stored under the esewa tag must not be accepted as khalti
			name:    "shape of another variant",
			method:  MethodEsewa,
			raw:     `{"publicKey":"pub","secretKey":"sec"}`,
			wantErr: true,
		},
		{name: "cod with smuggled fields", method: MethodCashOnDelivery, raw: `{"secretKey":"x"}`, wantErr: true},
		{name: "not json", method: MethodBankTransfer, raw: `bank`, wantErr: true},
		{name: "unknown method", method: Method("PAYPAL"), raw: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCredentials(tt.method, []byte(tt.raw))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.method, got.Method())
		})
	}
}

func TestEncodeCredentials_Canonical(t *testing.T) {
	b, err := EncodeCredentials(EsewaCredentials{MerchantCode: "EPAYTEST", SecretKey: "k"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"merchantCode":"EPAYTEST","secretKey":"k"}`, string(b))

	back, err := DecodeCredentials(MethodEsewa, b)
	require.NoError(t, err)
	assert.Equal(t, EsewaCredentials{MerchantCode: "EPAYTEST", SecretKey: "k"}, back)

	_, err = EncodeCredentials(BankTransferCredentials{BankName: "Nabil"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMaskFor(t *testing.T) {
	assert.Equal(t, "***", MaskFor(MethodEsewa).MaskedMerchantCode)
	assert.Equal(t, "***", MaskFor(MethodKhalti).MaskedPublicKey)
	assert.Equal(t, "****", MaskFor(MethodBankTransfer).MaskedAccount)
	assert.Equal(t, CredentialsMask{Method: MethodCashOnDelivery}, MaskFor(MethodCashOnDelivery))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("esewa")
	require.NoError(t, err)
	assert.Equal(t, MethodEsewa, m)

	m, err = ParseMethod("cash_on_delivery")
	require.NoError(t, err)
	assert.Equal(t, MethodCashOnDelivery, m)

	_, err = ParseMethod("paypal")
	assert.ErrorIs(t, err, ErrValidation)
}
