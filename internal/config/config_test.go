package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  host: 0.0.0.0
  port: 8080
  public_base_url: http://localhost:8080/
database:
  host: localhost
  user: tripmeet
  database: tripmeet
jwt:
  secret: 0123456789abcdef0123456789abcdef
storage:
  upload_dir: ./uploads
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(baseYAML))
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "http://localhost:8080/files", cfg.Storage.BaseURL)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes())
	assert.Equal(t, "local", cfg.Realtime.Broker)
	assert.Equal(t, "tripmeet:changes", cfg.Realtime.Channel)
	assert.Equal(t, "@every 2s", cfg.Scheduler.DrainOutbox)
	assert.Equal(t, 5, cfg.Fanout.MaxAttempts)
	assert.Equal(t, "authenticated", cfg.JWT.Audience)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	assert.Equal(t, "postgres://tripmeet:@localhost:5432/tripmeet?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse([]byte(baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "redis", cfg.Realtime.Broker)
	assert.Equal(t, "redis://cache:6379/0", cfg.Realtime.RedisURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"short secret", "server: {port: 80}\ndatabase: {host: h, user: u, database: d}\njwt: {secret: short}\nstorage: {upload_dir: x}", "at least 32"},
		{"bad port", "server: {port: 0}", "invalid server port"},
		{"firebase without bucket", "server: {port: 80}\ndatabase: {host: h, user: u, database: d}\njwt: {secret: 0123456789abcdef0123456789abcdef}\nstorage: {type: firebase}", "bucket is required"},
		{"redis without url", "server: {port: 80}\ndatabase: {host: h, user: u, database: d}\njwt: {secret: 0123456789abcdef0123456789abcdef}\nstorage: {upload_dir: x}\nrealtime: {broker: redis}", "redis url is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("Health"))
	assert.Equal(t, SecurityAuthenticated, GetSecurityLevel("UpdateMyProfile"))
	assert.Equal(t, SecurityOnboarded, GetSecurityLevel("SendMessage"))
	assert.Equal(t, SecurityOnboarded, GetSecurityLevel("SomethingNew"))
}
