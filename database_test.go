package saascore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabasePlaceholders(t *testing.T) {
	assert.ErrorIs(t, InitDB("postgres://localhost/saas"), ErrDatabase)

	_, err := GetDB(context.Background())
	assert.ErrorIs(t, err, ErrDatabase)

	assert.ErrorIs(t, CloseDB(), ErrDatabase)
}
