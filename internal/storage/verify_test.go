package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/minimarket/internal/model"
)

func TestVerify(t *testing.T) {
	good := []byte(`{"id":"p1","name":"Alice","language":"en","created_date":"2024-01-01T12:00:00"}`)

	assert.NoError(t, Verify("p1", good))
	assert.ErrorIs(t, Verify("p2", good), model.ErrValidation)
	assert.ErrorIs(t, Verify("p1", []byte(`{"id":"p1"}`)), model.ErrValidation)
	assert.ErrorIs(t, Verify("p1", []byte(`{"id":"p1","na`)), model.ErrValidation)
}
