package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/telemetry"
)

// Runs before any Init call in this package, so the package-level shutdown
// registry is still empty.
func TestShutdownNoopBeforeInit(t *testing.T) {
	assert.NoError(t, telemetry.Shutdown(context.Background()))
}

func TestInitReturnsWorkingShutdown(t *testing.T) {
	shutdown, err := telemetry.Init(telemetry.Options{ServiceName: "hustle-test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(context.Background()))
}

func TestInitWithPrettyPrint(t *testing.T) {
	shutdown, err := telemetry.Init(telemetry.Options{ServiceName: "hustle-test", PrettyPrint: true})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
