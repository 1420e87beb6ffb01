package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/yungbote/coursebridge-backend/internal/pkg/errors"
)

func TestFromDomain(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("question: %w", apperrors.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{fmt.Errorf("get course: %w", apperrors.ErrStoreUnavailable), http.StatusServiceUnavailable, "store_unavailable"},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		got := FromDomain(tc.err)
		assert.Equal(t, tc.status, got.Status, tc.err.Error())
		assert.Equal(t, tc.code, got.Code)
		assert.ErrorIs(t, got, tc.err)
	}
	assert.Nil(t, FromDomain(nil))

	pre := New(http.StatusTeapot, "teapot", nil)
	assert.Same(t, pre, FromDomain(fmt.Errorf("wrapped: %w", pre)))
}
