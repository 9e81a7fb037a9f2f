package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dosada05/pyramid-ladder/repositories"
)

func TestHandleRepositoryError(t *testing.T) {
	assert.NoError(t, handleRepositoryError(nil, "noop"))

	err := handleRepositoryError(repositories.ErrSlotOccupied, "place team %d", 3)
	assert.ErrorIs(t, err, ErrSlotOccupied)
	assert.ErrorIs(t, err, repositories.ErrSlotOccupied)
	assert.Contains(t, err.Error(), "place team 3")

	plain := errors.New("connection refused")
	err = handleRepositoryError(plain, "load pyramid %d", 1)
	assert.ErrorIs(t, err, plain)
	assert.EqualError(t, err, "load pyramid 1: connection refused")
}
