// Package config loads environment and roster configuration. Env vars
// come first, an optional .env file fills gaps, and YAML rosters
// describe multi-process deployments.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/office-mas/office-multi-agent/logger"
)

// LoadEnv reads .env from the working directory if present. Existing
// environment variables always win.
func LoadEnv() {
	if err := godotenv.Load(); err == nil {
		logger.GetLogger().Debug("loaded .env")
	}
}

// GetEnv returns the variable or the default when unset or empty.
func GetEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// GetEnvInt parses the variable as an integer, falling back on the
// default for unset or malformed values.
func GetEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.GetLogger().Warnf("invalid integer in %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

// GetEnvSeconds parses the variable as a decimal number of seconds.
func GetEnvSeconds(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		logger.GetLogger().Warnf("invalid seconds in %s=%q, using %s", key, v, def)
		return def
	}
	return time.Duration(f * float64(time.Second))
}

// GetEnvBool treats 1/true/yes/on (any case) as true.
func GetEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// Domain settings with their documented defaults.

func ProviderItem() string            { return GetEnv("PROVIDER_ITEM", "bułek") }
func ProviderDefaultQty() int         { return GetEnvInt("PROVIDER_DEFAULT_QTY", 6) }
func ProviderDelay() time.Duration    { return GetEnvSeconds("PROVIDER_DELAY", 500*time.Millisecond) }
func HistoryLimit() int               { return GetEnvInt("ACL_HISTORY_LIMIT", 20) }
func ReplyByWindow() time.Duration    { return GetEnvSeconds("ACL_REPLY_BY_SECONDS", 30*time.Second) }
func AuditDir() string                { return GetEnv("AUDIT_DIR", "audit") }
func RegistryDumpPath() string        { return GetEnv("AGENTS_REG_PATH", "agents_registry.json") }
func OrderText() string               { return GetEnv("ORDER_TEXT", "poproszę 6 bułek") }
func AutoAI() bool                    { return GetEnvBool("AGENT_AUTO_AI", false) }

// CharacterFor resolves an agent's persona text: CHAR_<ALIAS> first,
// then AGENT_CHARACTER, then the given default.
func CharacterFor(alias, def string) string {
	if v := strings.TrimSpace(os.Getenv("CHAR_" + strings.ToUpper(alias))); v != "" {
		return v
	}
	return GetEnv("AGENT_CHARACTER", def)
}

// RoleFor resolves an agent's role name: ROLE_<ALIAS> first, then
// AGENT_ROLE, then the given default.
func RoleFor(alias, def string) string {
	if v := strings.TrimSpace(os.Getenv("ROLE_" + strings.ToUpper(alias))); v != "" {
		return v
	}
	return GetEnv("AGENT_ROLE", def)
}

// EndpointFor returns ENDPOINT_<ALIAS> or empty.
func EndpointFor(alias string) string {
	return strings.TrimSpace(os.Getenv("ENDPOINT_" + strings.ToUpper(alias)))
}

// Allowlist parses AGENT_ALLOWLIST as a comma-separated alias list.
// Empty means no restriction.
func Allowlist() []string {
	raw := strings.TrimSpace(os.Getenv("AGENT_ALLOWLIST"))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate flags obviously broken settings early.
func Validate() error {
	if HistoryLimit() <= 0 {
		return fmt.Errorf("ACL_HISTORY_LIMIT must be positive")
	}
	if ReplyByWindow() <= 0 {
		return fmt.Errorf("ACL_REPLY_BY_SECONDS must be positive")
	}
	return nil
}
