package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var testLogger = zap.NewNop().Sugar()

type staticCreds struct {
	creds Credentials
	err   error
}

func (s staticCreds) Load(_ context.Context, _ uuid.UUID, m Method) (Credentials, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.creds == nil {
		return nil, fmt.Errorf("%w: no %s config", ErrNotFound, m)
	}
	return s.creds, nil
}
