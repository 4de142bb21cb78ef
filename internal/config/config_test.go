package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123"

func TestDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)

	cfg, err := parse()
	require.NoError(t, err)
	assert.Equal(t, uint16(8085), cfg.HttpServerPort)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, int64(0), cfg.BidMinIncrement)
	assert.False(t, cfg.RedisEnabled)
	assert.False(t, cfg.MailEnabled())
	assert.Equal(t, []string{"*"}, cfg.CorsAllowedOrigins)
	assert.Less(t, cfg.WsPingPeriod, cfg.WsPongWait)
}

func TestOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("BID_MIN_INCREMENT", "250")
	t.Setenv("REQUIRE_DEAL_CONFIRMATION", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SMTP_HOST", "smtp.example")
	t.Setenv("MAIL_FROM", "auctions@example.com")

	cfg, err := parse()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, int64(250), cfg.BidMinIncrement)
	assert.True(t, cfg.RequireDealConfirmation)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CorsAllowedOrigins)
	assert.True(t, cfg.MailEnabled())
}

func TestValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"short secret":   {"JWT_SECRET": "short"},
		"bad driver":     {"JWT_SECRET": secret, "STORE_DRIVER": "sqlite"},
		"negative step":  {"JWT_SECRET": secret, "BID_MIN_INCREMENT": "-1"},
		"ping too slow":  {"JWT_SECRET": secret, "WS_PING_PERIOD": "40s"},
		"mail no sender": {"JWT_SECRET": secret, "SMTP_HOST": "smtp.example"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := parse()
			assert.Error(t, err)
		})
	}
}
