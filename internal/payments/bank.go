package payments

import (
	"context"
	"fmt"
)

// BankTransferAdapter hands the customer the shop's account details and a
// reference to quote. Settlement is confirmed by an operator.
type BankTransferAdapter struct {
	creds CredentialSource
	refs  *ReferenceGenerator
}

func NewBankTransferAdapter(creds CredentialSource, refs *ReferenceGenerator) *BankTransferAdapter {
	return &BankTransferAdapter{creds: creds, refs: refs}
}

func (b *BankTransferAdapter) Supports() Method { return MethodBankTransfer }

func (b *BankTransferAdapter) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	creds, err := credentialsFor[BankTransferCredentials](ctx, b.creds, req.ShopID, MethodBankTransfer)
	if err != nil {
		return InitiateResponse{}, err
	}

	ref, err := b.refs.Next()
	if err != nil {
		return InitiateResponse{}, fmt.Errorf("bank transfer reference: %w", err)
	}

	fields := map[string]string{
		"bank_name":      creds.BankName,
		"account_number": creds.AccountNumber,
		"amount":         FormatMinor(req.AmountMinor),
		"reference":      ref,
	}
	if creds.AccountHolderName != "" {
		fields["account_holder_name"] = creds.AccountHolderName
	}
	if creds.BranchName != "" {
		fields["branch_name"] = creds.BranchName
	}

	return InitiateResponse{
		RedirectTarget:   req.ReturnURL,
		Fields:           fields,
		GatewayRequestID: ref,
	}, nil
}

// Verify never settles a transfer on its own.
func (b *BankTransferAdapter) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	if _, err := credentialsFor[BankTransferCredentials](ctx, b.creds, req.ShopID, MethodBankTransfer); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Status: StatePending}, nil
}
