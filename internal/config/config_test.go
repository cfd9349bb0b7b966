package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("IRIS_BASE_URL", "http://iris:3000")
	t.Setenv("IRIS_WS_URL", "ws://iris:3000/ws")
	t.Setenv("BOT_PREFIX", "!")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_ROOMS", " room-a, ,room-b ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.EgressMode)
	assert.Equal(t, []string{"room-a", "room-b"}, cfg.AllowedRooms)
	assert.Equal(t, 10*time.Minute, cfg.Duel.InitialClock)
	assert.Equal(t, 5*time.Minute, cfg.Duel.OfferTTL)
	assert.Equal(t, 10*time.Second, cfg.Duel.WatchdogInterval)
	assert.Equal(t, 120*time.Second, cfg.Duel.InactivityTimeout)
	assert.False(t, cfg.Duel.SweepFlagFall)
}

func TestLoadDuelOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DUEL_INITIAL_CLOCK", "3m")
	t.Setenv("DUEL_SWEEP_FLAG_FALL", "true")
	t.Setenv("DUEL_INELIGIBLE_IDS", "bot1,bot2")
	t.Setenv("IRIS_EGRESS", "AUTO")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, cfg.Duel.InitialClock)
	assert.True(t, cfg.Duel.SweepFlagFall)
	assert.Equal(t, []string{"bot1", "bot2"}, cfg.Duel.Ineligible)
	assert.Equal(t, "auto", cfg.EgressMode)
}

func TestLoadRejects(t *testing.T) {
	t.Run("missing prefix", func(t *testing.T) {
		setRequired(t)
		t.Setenv("BOT_PREFIX", "")
		_, err := Load()
		assert.EqualError(t, err, "BOT_PREFIX is required")
	})
	t.Run("bad duration", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DUEL_OFFER_TTL", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "parse duel config")
	})
	t.Run("zero clock", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DUEL_INITIAL_CLOCK", "0s")
		_, err := Load()
		assert.EqualError(t, err, "DUEL_INITIAL_CLOCK must be positive")
	})
}
