package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Gateway is implemented by every payment method adapter.
type Gateway interface {
	// Supports returns the single method this adapter handles.
	Supports() Method
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error)
	// Verify asks the provider about an attempt. Transport failures come back as a
	// result with Status=ERROR; only configuration and credential problems are errors.
	Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error)
}

// CredentialSource hands adapters a tenant's decrypted credentials.
type CredentialSource interface {
	Load(ctx context.Context, shopID uuid.UUID, method Method) (Credentials, error)
}

const DefaultGatewayTimeout = 10 * time.Second

// NewHTTPClient returns the client adapters use for provider calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}
	return &http.Client{Timeout: timeout}
}

// credentialsFor loads the credentials for method and asserts their variant.
// A missing config is a configuration problem from the adapter's point of view.
func credentialsFor[T Credentials](ctx context.Context, src CredentialSource, shopID uuid.UUID, method Method) (T, error) {
	var zero T
	creds, err := src.Load(ctx, shopID, method)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return zero, err
	}
	c, ok := creds.(T)
	if !ok {
		return zero, fmt.Errorf("%w: stored credentials for %s have variant %s", ErrCredential, method, creds.Method())
	}
	return c, nil
}

func errorResult() VerifyResult {
	return VerifyResult{Success: false, Status: StateError}
}
