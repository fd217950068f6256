package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:           "8080",
		Env:            "development",
		DBDriver:       "postgres",
		DBPassword:     "secure-password",
		DBSSLMode:      "require",
		ImageUploadDir: "/tmp/uploads",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateDriver(t *testing.T) {
	c := validConfig()
	c.DBDriver = "mysql"
	assert.Error(t, c.Validate())

	c.DBDriver = "sqlite"
	c.SQLitePath = ""
	assert.Error(t, c.Validate())

	c.SQLitePath = "wall.db"
	assert.NoError(t, c.Validate())

	c.Env = "production"
	assert.Error(t, c.Validate(), "sqlite is rejected in production")
}

func TestConfig_ValidateFeedSettings(t *testing.T) {
	c := validConfig()
	c.FeedOptimisticRetention = -time.Second
	assert.Error(t, c.Validate())

	c = validConfig()
	c.TracingSamplerRatio = 1.5
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateTracingExporter(t *testing.T) {
	c := validConfig()
	c.TracingExporter = "jaeger"
	assert.NoError(t, c.Validate(), "exporter is ignored while tracing is off")

	c.TracingEnabled = true
	assert.Error(t, c.Validate())

	c.TracingExporter = "otlp"
	assert.NoError(t, c.Validate())
}

func TestConfig_Author(t *testing.T) {
	c := validConfig()
	assert.Nil(t, c.Author())

	c.AuthorName = "Gabriel Carlos"
	require.NotNil(t, c.Author())
	assert.Equal(t, "Gabriel Carlos", *c.Author())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("DB_DRIVER")
	defer os.Unsetenv("PUBLIC_BASE_URL")
	defer os.Unsetenv("FEED_OPTIMISTIC_RETENTION")
	defer viper.Reset()

	os.Setenv("APP_ENV", "test")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("DB_DRIVER", " SQLite ")
	os.Setenv("PUBLIC_BASE_URL", "http://wall.local/")
	os.Setenv("FEED_OPTIMISTIC_RETENTION", "3s")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "http://wall.local", c.PublicBaseURL)
	assert.Equal(t, 3*time.Second, c.FeedOptimisticRetention)
	assert.Equal(t, "8375", c.Port)
}
