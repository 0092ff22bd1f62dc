package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("BACKEND_URL", "http://zetta.test/")
	t.Setenv("REVERB_APP_KEY", "app-key")
	t.Setenv("REVERB_HOST", "reverb.zetta.test")
}

func TestFromEnv_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://zetta.test", cfg.BackendURL)
	assert.Equal(t, "/api/v1", cfg.BackendPrefix)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.Equal(t, "reverb", cfg.BroadcastDriver)
	assert.Equal(t, "formation-interests", cfg.InterestChannel)
	assert.Equal(t, `App\Events\`, cfg.EventNamespace)
	assert.Equal(t, 5, cfg.RecentLimit)
	assert.False(t, cfg.ResetClearsReadState)
	assert.False(t, cfg.UsesRedisBroadcast())
	assert.False(t, cfg.UsesRedisReadState())
	assert.Equal(t, "wss://reverb.zetta.test:443/app/app-key?protocol=7&client=zetta&version=1.0", cfg.ReverbURL())
}

func TestFromEnv_RedisDriverNeedsNoReverb(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://zetta.test")
	t.Setenv("BROADCAST_DRIVER", "redis")
	t.Setenv("READSTATE_BACKEND", "redis")
	t.Setenv("RESET_CLEARS_READ_STATE", "yes")
	t.Setenv("REVERB_APP_KEY", "")
	t.Setenv("REVERB_HOST", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.UsesRedisBroadcast())
	assert.True(t, cfg.UsesRedisReadState())
	assert.True(t, cfg.ResetClearsReadState)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad timeout", key: "BACKEND_TIMEOUT", val: "soon"},
		{name: "bad driver", key: "BROADCAST_DRIVER", val: "carrier-pigeon"},
		{name: "bad readstate backend", key: "READSTATE_BACKEND", val: "cookie"},
		{name: "zero recent limit", key: "RECENT_LIMIT", val: "0"},
		{name: "bad port", key: "REVERB_PORT", val: "eighty"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.key, tc.val)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_ProdRequiresSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	_, err = FromEnv()
	assert.NoError(t, err)
}

func TestFromEnv_MissingBackend(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BACKEND_URL", "")

	_, err := FromEnv()
	assert.Error(t, err)
}
