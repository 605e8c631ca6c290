package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the engine's runtime configuration, read from
// environment-style keys. The key names match what the surrounding
// reporting system uses, so one .env file serves both.
type Config struct {
	IMAPHost      string
	IMAPPort      string
	IMAPUser      string
	IMAPPass      string
	IMAPMailbox   string
	SocketTimeout time.Duration

	// AppAddress is the application's dedicated mailbox address. Messages
	// not addressed (To/Cc) to it are skipped. Defaults to IMAPUser.
	AppAddress string

	ScanInterval time.Duration
	IncludeSeen  bool

	// RequireAssignee rejects replies for reports that have no resolvable
	// assignee email instead of accepting them permissively.
	RequireAssignee bool

	DBPath   string
	HTTPAddr string
}

// configKeys is the full set of environment keys the engine reads.
var configKeys = []string{
	"EMAIL_IMAP_HOST",
	"EMAIL_IMAP_PORT",
	"EMAIL_IMAP_USER",
	"EMAIL_IMAP_PASS",
	"EMAIL_IMAP_MAILBOX",
	"EMAIL_IMAP_SOCKET_TIMEOUT",
	"APP_MAIL_ADDRESS",
	"MAIL_USERNAME",
	"EMAIL_INGEST_INTERVAL_SEC",
	"EMAIL_INGEST_INTERVAL_MIN",
	"EMAIL_INGEST_INCLUDE_SEEN",
	"EMAIL_INGEST_REQUIRE_ASSIGNEE",
	"VRS_DB_PATH",
	"INGEST_HTTP_ADDR",
}

// LoadConfig reads the engine configuration from the environment using
// Viper. Missing keys resolve to defaults; credentials are validated at
// run time, not here, so the daemon can still start and report status.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env key %s: %w", key, err)
		}
	}

	v.SetDefault("EMAIL_IMAP_PORT", "993")
	v.SetDefault("EMAIL_IMAP_MAILBOX", "INBOX")
	v.SetDefault("EMAIL_IMAP_SOCKET_TIMEOUT", 30)
	v.SetDefault("EMAIL_INGEST_INTERVAL_SEC", 5)
	v.SetDefault("EMAIL_INGEST_INTERVAL_MIN", 5)
	v.SetDefault("VRS_DB_PATH", "vrs.db")
	v.SetDefault("INGEST_HTTP_ADDR", ":8090")

	cfg := &Config{
		IMAPHost:        v.GetString("EMAIL_IMAP_HOST"),
		IMAPPort:        v.GetString("EMAIL_IMAP_PORT"),
		IMAPUser:        v.GetString("EMAIL_IMAP_USER"),
		IMAPPass:        v.GetString("EMAIL_IMAP_PASS"),
		IMAPMailbox:     v.GetString("EMAIL_IMAP_MAILBOX"),
		SocketTimeout:   time.Duration(v.GetInt("EMAIL_IMAP_SOCKET_TIMEOUT")) * time.Second,
		IncludeSeen:     v.GetBool("EMAIL_INGEST_INCLUDE_SEEN"),
		RequireAssignee: v.GetBool("EMAIL_INGEST_REQUIRE_ASSIGNEE"),
		DBPath:          v.GetString("VRS_DB_PATH"),
		HTTPAddr:        v.GetString("INGEST_HTTP_ADDR"),
	}

	// The app mailbox address falls back through the same chain the
	// outbound mailer uses, ending at the IMAP username.
	cfg.AppAddress = strings.ToLower(firstNonEmpty(
		v.GetString("APP_MAIL_ADDRESS"),
		v.GetString("MAIL_USERNAME"),
		cfg.IMAPUser,
	))

	// A seconds-based interval takes precedence; the minutes key is the
	// coarser production setting.
	if sec := v.GetInt("EMAIL_INGEST_INTERVAL_SEC"); sec > 0 {
		cfg.ScanInterval = time.Duration(sec) * time.Second
	} else if min := v.GetInt("EMAIL_INGEST_INTERVAL_MIN"); min > 0 {
		cfg.ScanInterval = time.Duration(min) * time.Minute
	} else {
		cfg.ScanInterval = 5 * time.Second
	}

	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = 30 * time.Second
	}

	return cfg, nil
}

// HasCredentials reports whether the mailbox credentials needed for a
// scan are present.
func (c *Config) HasCredentials() bool {
	return c.IMAPHost != "" && c.IMAPUser != "" && c.IMAPPass != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
