package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
