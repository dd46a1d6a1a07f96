package postgres

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsSerializationConflict(t *testing.T) {
	assert.True(t, isSerializationConflict(&pq.Error{Code: sqlstateSerializationFailure}))
	assert.True(t, isSerializationConflict(&pq.Error{Code: sqlstateDeadlockDetected}))
	assert.False(t, isSerializationConflict(&pq.Error{Code: "23505"}))
	assert.False(t, isSerializationConflict(errors.New("boom")))
	assert.False(t, isSerializationConflict(nil))
}
