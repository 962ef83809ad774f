package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberkit/memberkit/pkg/config"
)

type feedConfig struct {
	PageSize int           `env:"TEST_FEED_PAGE_SIZE" envDefault:"20"`
	Interval time.Duration `env:"TEST_FEED_INTERVAL" envDefault:"5s"`
}

type requiredConfig struct {
	URL string `env:"TEST_REQUIRED_MISSING_URL,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg feedConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Interval)
}

func TestLoad_CachesPerType(t *testing.T) {
	var first feedConfig
	require.NoError(t, config.Load(&first))

	// Env changes after the first load are not observed: the parsed value
	// is cached per type for the process lifetime.
	t.Setenv("TEST_FEED_PAGE_SIZE", "99")
	var second feedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, first.PageSize, second.PageSize)
}

func TestLoad_RequiredMissing(t *testing.T) {
	var cfg requiredConfig
	err := config.Load(&cfg)

	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	err := config.Load[feedConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}
