package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errCause = New("connection refused")

func TestKindOfWalksChain(t *testing.T) {
	err := fmt.Errorf("apply: %w", E(Internal, "failed to apply payment event", errCause))

	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, "failed to apply payment event", MessageOf(err))
	assert.True(t, Is(err, errCause))
	assert.Equal(t, Other, KindOf(errCause))
	assert.Equal(t, "connection refused", MessageOf(errCause))
}

func TestErrorString(t *testing.T) {
	err := E(NotFound, "order not found")
	assert.JSONEq(t, `{"kind":"entity not found","message":"order not found"}`, err.Error())

	err = E(Upstream, "failed to create payment", errCause)
	assert.JSONEq(t, `{"kind":"upstream gateway error","message":"failed to create payment","cause":"connection refused"}`, err.Error())
}
