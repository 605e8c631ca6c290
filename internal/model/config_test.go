package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EMAIL_IMAP_HOST", "imap.example.com")
	t.Setenv("EMAIL_IMAP_USER", "vrs@example.com")
	t.Setenv("EMAIL_IMAP_PASS", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "993", cfg.IMAPPort)
	assert.Equal(t, "INBOX", cfg.IMAPMailbox)
	assert.Equal(t, 30*time.Second, cfg.SocketTimeout)
	assert.Equal(t, 5*time.Second, cfg.ScanInterval)
	assert.False(t, cfg.IncludeSeen)
	assert.False(t, cfg.RequireAssignee)
	assert.True(t, cfg.HasCredentials())

	// App address defaults to the IMAP user, lowercased.
	assert.Equal(t, "vrs@example.com", cfg.AppAddress)
}

func TestLoadConfigAppAddressPrecedence(t *testing.T) {
	t.Setenv("EMAIL_IMAP_USER", "Inbox@Example.com")
	t.Setenv("APP_MAIL_ADDRESS", "Security@Example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "security@example.com", cfg.AppAddress)
}

func TestLoadConfigMinutesIntervalFallback(t *testing.T) {
	t.Setenv("EMAIL_INGEST_INTERVAL_SEC", "0")
	t.Setenv("EMAIL_INGEST_INTERVAL_MIN", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.ScanInterval)
}

func TestLoadConfigMissingCredentials(t *testing.T) {
	t.Setenv("EMAIL_IMAP_HOST", "")
	t.Setenv("EMAIL_IMAP_USER", "")
	t.Setenv("EMAIL_IMAP_PASS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.HasCredentials())
}
