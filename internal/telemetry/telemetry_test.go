package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/park285/chess-duel-bot/internal/telemetry"
)

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("DUEL_OTEL_ENABLED", "")

	shutdown, err := telemetry.Setup(context.Background(), "duel-bot-test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupNoopWhenDisabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318")
	t.Setenv("DUEL_OTEL_ENABLED", "false")

	shutdown, err := telemetry.Setup(context.Background(), "duel-bot-test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupCreatesProvider(t *testing.T) {
	// non-routable, nothing is exported before shutdown
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("DUEL_OTEL_ENABLED", "")

	shutdown, err := telemetry.Setup(context.Background(), "duel-bot-test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
