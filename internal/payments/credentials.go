package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Credentials is the closed set of per-method secret shapes.
type Credentials interface {
	Method() Method
}

type EsewaCredentials struct {
	MerchantCode string `json:"merchantCode" validate:"notblank"`
	SecretKey    string `json:"secretKey" validate:"notblank"`
}

type KhaltiCredentials struct {
	PublicKey string `json:"publicKey" validate:"notblank"`
	SecretKey string `json:"secretKey" validate:"notblank"`
}

type BankTransferCredentials struct {
	BankName          string `json:"bankName" validate:"notblank"`
	AccountNumber     string `json:"accountNumber" validate:"notblank"`
	AccountHolderName string `json:"accountHolderName,omitempty"`
	BranchName        string `json:"branchName,omitempty"`
}

type CODCredentials struct{}

func (EsewaCredentials) Method() Method        { return MethodEsewa }
func (KhaltiCredentials) Method() Method       { return MethodKhalti }
func (BankTransferCredentials) Method() Method { return MethodBankTransfer }
func (CODCredentials) Method() Method          { return MethodCashOnDelivery }

// credentialDecoders is keyed by the stored method tag. The JSON shape is never
// used to pick the variant.
var credentialDecoders = map[Method]func(*json.Decoder) (Credentials, error){
	MethodEsewa:          decodeAs[EsewaCredentials],
	MethodKhalti:         decodeAs[KhaltiCredentials],
	MethodBankTransfer:   decodeAs[BankTransferCredentials],
	MethodCashOnDelivery: decodeAs[CODCredentials],
}

func decodeAs[T Credentials](dec *json.Decoder) (Credentials, error) {
	var c T
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	return c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// DecodeCredentials parses raw as the variant for method and validates it.
// Unknown fields are rejected.
func DecodeCredentials(method Method, raw []byte) (Credentials, error) {
	decode, ok := credentialDecoders[method]
	if !ok {
		return nil, fmt.Errorf("%w: no credential shape for method %q", ErrValidation, method)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	creds, err := decode(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s credentials: %w", ErrValidation, method, err)
	}
	if err := ValidateCredentials(creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// ValidateCredentials checks every required field of the variant is non-blank.
func ValidateCredentials(c Credentials) error {
	if c == nil {
		return fmt.Errorf("%w: credentials are required", ErrValidation)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s credentials: %w", ErrValidation, c.Method(), err)
	}
	return nil
}

// EncodeCredentials returns the canonical JSON of c.
func EncodeCredentials(c Credentials) ([]byte, error) {
	if err := ValidateCredentials(c); err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

// CredentialsMask is what listings show instead of secrets.
type CredentialsMask struct {
	Method             Method `json:"paymentMethod"`
	MaskedMerchantCode string `json:"maskedMerchantCode,omitempty"`
	MaskedPublicKey    string `json:"maskedPublicKey,omitempty"`
	MaskedAccount      string `json:"maskedAccountNumber,omitempty"`
}

// MaskFor derives the mask from the method tag alone; nothing is decrypted.
func MaskFor(m Method) CredentialsMask {
	mask := CredentialsMask{Method: m}
	switch m {
	case MethodEsewa:
		mask.MaskedMerchantCode = "***"
	case MethodKhalti:
		mask.MaskedPublicKey = "***"
	case MethodBankTransfer:
		mask.MaskedAccount = "****"
	}
	return mask
}
