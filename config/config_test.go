package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	for _, key := range []string{"DATABASE_URL", "PORT", "JWT_SECRET", "CONTEXT_TIMEOUT", "CORS_ALLOWED_ORIGINS",
		"EMAIL_PROVIDER", "PUSH_PROVIDER", "STORAGE_PROVIDER", "POLICY_FILE", "AUDIT_BUFFER_SIZE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.ContextTimeout)
	assert.Equal(t, 100, cfg.AuditBufferSize)
	assert.Equal(t, "noop", cfg.EmailProvider)
	assert.Equal(t, "noop", cfg.PushProvider)
	assert.Equal(t, "noop", cfg.StorageProvider)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, DefaultPolicy(), cfg.Policy)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("CONTEXT_TIMEOUT", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	t.Setenv("STORAGE_PROVIDER", "s3")
	t.Setenv("STORAGE_BUCKET", "vaquita-adjuntos")
	t.Setenv("AUDIT_BUFFER_SIZE", "8")
	t.Setenv("POLICY_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "s3cr3t", cfg.JWTSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.ContextTimeout)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "vaquita-adjuntos", cfg.StorageBucket)
	assert.Equal(t, 8, cfg.AuditBufferSize)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "production without secret", env: map[string]string{"GO_ENV": "production", "JWT_SECRET": ""}},
		{name: "bad timeout", env: map[string]string{"CONTEXT_TIMEOUT": "soon"}},
		{name: "negative timeout", env: map[string]string{"CONTEXT_TIMEOUT": "-1s"}},
		{name: "bad buffer size", env: map[string]string{"AUDIT_BUFFER_SIZE": "0"}},
		{name: "s3 without bucket", env: map[string]string{"STORAGE_PROVIDER": "s3", "STORAGE_BUCKET": ""}},
		{name: "missing policy file", env: map[string]string{"POLICY_FILE": "/nonexistent/policy.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_ENV", "test")
			t.Setenv("JWT_SECRET", "x")
			t.Setenv("CONTEXT_TIMEOUT", "")
			t.Setenv("AUDIT_BUFFER_SIZE", "")
			t.Setenv("STORAGE_PROVIDER", "")
			t.Setenv("POLICY_FILE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		p, err := LoadPolicy("")
		require.NoError(t, err)
		assert.Equal(t, int64(1<<20), p.Attachments.MaxBytes)
		assert.Equal(t, 2, p.Attachments.MaxPerEvent)
		assert.Equal(t, "eventos/", p.Attachments.PathPrefix)
		assert.Equal(t, 100, p.Invitations.MaxUses)
		assert.Equal(t, 30*24*time.Hour, p.Invitations.RecurringTTL)
	})

	t.Run("partial override keeps other defaults", func(t *testing.T) {
		path := writePolicy(t, `
attachments:
  max_bytes: 2097152
  allowed_mime_types: [image/png, image/webp]
invitations:
  recurring_ttl: 168h
`)
		p, err := LoadPolicy(path)
		require.NoError(t, err)
		assert.Equal(t, int64(2<<20), p.Attachments.MaxBytes)
		assert.Equal(t, []string{"image/png", "image/webp"}, p.Attachments.AllowedMIMETypes)
		assert.Equal(t, 2, p.Attachments.MaxPerEvent)
		assert.Equal(t, 100, p.Invitations.MaxUses)
		assert.Equal(t, 7*24*time.Hour, p.Invitations.RecurringTTL)
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid yaml", body: "attachments: [\n"},
		{name: "zero max bytes", body: "attachments:\n  max_bytes: 0\n"},
		{name: "prefix without slash", body: "attachments:\n  path_prefix: eventos\n"},
		{name: "empty mime list", body: "attachments:\n  allowed_mime_types: []\n"},
		{name: "zero uses", body: "invitations:\n  max_uses: 0\n"},
		{name: "bad duration", body: "invitations:\n  recurring_ttl: forever\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tt.body))
			assert.Error(t, err)
		})
	}
}
