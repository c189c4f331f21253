package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/sitedock/be-pm-approvals/internal/errors"
)

func TestClassifyError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, ClassifyError(nil))
	})

	t.Run("retryable sqlstates", func(t *testing.T) {
		for _, code := range []string{"40001", "40P01", "55P03"} {
			err := ClassifyError(&pgconn.PgError{Code: code})
			assert.Equal(t, errors.ErrCodeUnavailable, errors.Code(err), code)
			assert.True(t, errors.IsRetryable(err))
		}
	})

	t.Run("other pg errors pass through", func(t *testing.T) {
		cause := &pgconn.PgError{Code: "23505"}
		err := ClassifyError(cause)
		assert.Equal(t, cause, err)
		assert.False(t, errors.IsRetryable(err))
	})

	t.Run("deadline is retryable", func(t *testing.T) {
		err := ClassifyError(fmt.Errorf("query: %w", context.DeadlineExceeded))
		assert.True(t, errors.IsRetryable(err))
	})

	t.Run("wrapped pg error", func(t *testing.T) {
		err := ClassifyError(fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40001"}))
		assert.True(t, errors.IsRetryable(err))
	})
}
