package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-vendor-api/internal/models"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		cause string
	}{
		{"bad password", &pgconn.PgError{Code: codeInvalidPassword}, models.CauseAuthFailed},
		{"no pg_hba entry", &pgconn.PgError{Code: codeInvalidAuth}, models.CauseAuthFailed},
		{"missing database", &pgconn.PgError{Code: codeInvalidCatalog}, models.CauseDatabaseMissing},
		{"starting up", &pgconn.PgError{Code: codeCannotConnectNow}, models.CauseConnectionRefused},
		{"dns", &net.DNSError{Err: "no such host", Name: "db.invalid", IsNotFound: true}, models.CauseHostUnresolved},
		{"refused", fmt.Errorf("connect: %w", syscall.ECONNREFUSED), models.CauseConnectionRefused},
		{"dial timeout", &net.OpError{Op: "dial", Net: "tcp", Err: timeoutErr{}}, models.CauseTimeout},
		{"dial other", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("network unreachable")}, models.CauseConnectionRefused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(fmt.Errorf("list vendors: %w", tt.err))
			var down *models.StoreUnavailableError
			require.True(t, errors.As(err, &down), "got %v", err)
			assert.Equal(t, tt.cause, down.Cause)
			assert.NotEmpty(t, down.Hint)
			assert.Equal(t, hints[tt.cause], down.Hint)
			assert.Equal(t, down.Hint, HintFor(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyLeavesStatementErrors(t *testing.T) {
	assert.NoError(t, classify(nil))

	syntax := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	assert.Same(t, syntax, classify(syntax))

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
	assert.Equal(t, context.Canceled, classify(context.Canceled))
	assert.Empty(t, HintFor(plain))

	already := &models.StoreUnavailableError{Cause: models.CauseTimeout}
	assert.Same(t, already, classify(already))
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: codeUniqueViolation})
	assert.True(t, isUniqueViolation(err))
	assert.True(t, hasCode(err, codeUndefinedFunction, codeUniqueViolation))
	assert.False(t, hasCode(err, codeUndefinedFunction))
	assert.False(t, isUniqueViolation(errors.New("x")))
}
