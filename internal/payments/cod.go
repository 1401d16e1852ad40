package payments

import (
	"context"
	"fmt"
)

// CODAdapter issues a delivery reference; money is collected at the door.
type CODAdapter struct {
	creds CredentialSource
	refs  *ReferenceGenerator
}

func NewCODAdapter(creds CredentialSource, refs *ReferenceGenerator) *CODAdapter {
	return &CODAdapter{creds: creds, refs: refs}
}

func (c *CODAdapter) Supports() Method { return MethodCashOnDelivery }

func (c *CODAdapter) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	// The shop must have COD enabled even though there is nothing secret in it.
	if _, err := credentialsFor[CODCredentials](ctx, c.creds, req.ShopID, MethodCashOnDelivery); err != nil {
		return InitiateResponse{}, err
	}

	ref, err := c.refs.Next()
	if err != nil {
		return InitiateResponse{}, fmt.Errorf("cod reference: %w", err)
	}

	return InitiateResponse{
		RedirectTarget: req.ReturnURL,
		Fields: map[string]string{
			"amount":    FormatMinor(req.AmountMinor),
			"reference": ref,
		},
		GatewayRequestID: ref,
	}, nil
}

func (c *CODAdapter) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	if _, err := credentialsFor[CODCredentials](ctx, c.creds, req.ShopID, MethodCashOnDelivery); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Status: StatePending}, nil
}
