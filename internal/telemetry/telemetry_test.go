package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), "test-service", "")
	require.NoError(t, err)
	defer shutdown(context.Background())

	_, span := StartSpan(context.Background(), "unit-test-span")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}
