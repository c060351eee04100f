package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	for _, key := range []string{"PROVIDER_ITEM", "PROVIDER_DEFAULT_QTY", "PROVIDER_DELAY", "ACL_HISTORY_LIMIT", "ACL_REPLY_BY_SECONDS", "ORDER_TEXT"} {
		t.Setenv(key, "")
	}
	if ProviderItem() != "bułek" {
		t.Errorf("item = %q", ProviderItem())
	}
	if ProviderDefaultQty() != 6 {
		t.Errorf("qty = %d", ProviderDefaultQty())
	}
	if ProviderDelay() != 500*time.Millisecond {
		t.Errorf("delay = %s", ProviderDelay())
	}
	if HistoryLimit() != 20 {
		t.Errorf("history limit = %d", HistoryLimit())
	}
	if ReplyByWindow() != 30*time.Second {
		t.Errorf("reply window = %s", ReplyByWindow())
	}
	if OrderText() != "poproszę 6 bułek" {
		t.Errorf("order text = %q", OrderText())
	}
}

func TestGettersParseAndFallBack(t *testing.T) {
	t.Setenv("ACL_HISTORY_LIMIT", "7")
	if HistoryLimit() != 7 {
		t.Errorf("limit = %d", HistoryLimit())
	}
	t.Setenv("ACL_HISTORY_LIMIT", "junk")
	if HistoryLimit() != 20 {
		t.Errorf("malformed must fall back, got %d", HistoryLimit())
	}

	t.Setenv("PROVIDER_DELAY", "1.5")
	if ProviderDelay() != 1500*time.Millisecond {
		t.Errorf("delay = %s", ProviderDelay())
	}
	t.Setenv("PROVIDER_DELAY", "-2")
	if ProviderDelay() != 500*time.Millisecond {
		t.Errorf("negative must fall back, got %s", ProviderDelay())
	}

	t.Setenv("AGENT_AUTO_AI", "yes")
	if !AutoAI() {
		t.Error("yes must be true")
	}
	t.Setenv("AGENT_AUTO_AI", "off")
	if AutoAI() {
		t.Error("off must be false")
	}
}

func TestPerAliasOverrides(t *testing.T) {
	t.Setenv("AGENT_CHARACTER", "generic persona")
	t.Setenv("CHAR_BAKERY", "sells bread")
	if got := CharacterFor("bakery", "def"); got != "sells bread" {
		t.Errorf("CHAR_BAKERY ignored: %q", got)
	}
	if got := CharacterFor("florist", "def"); got != "generic persona" {
		t.Errorf("AGENT_CHARACTER ignored: %q", got)
	}

	t.Setenv("ROLE_BAKERY", "provider")
	if got := RoleFor("bakery", "human"); got != "provider" {
		t.Errorf("ROLE_BAKERY ignored: %q", got)
	}

	t.Setenv("ENDPOINT_BAKERY", "127.0.0.1:8101")
	if got := EndpointFor("bakery"); got != "127.0.0.1:8101" {
		t.Errorf("EndpointFor = %q", got)
	}
}

func TestAllowlist(t *testing.T) {
	t.Setenv("AGENT_ALLOWLIST", "")
	if got := Allowlist(); got != nil {
		t.Errorf("empty must mean nil, got %v", got)
	}
	t.Setenv("AGENT_ALLOWLIST", " Human , coordinator ,, ")
	got := Allowlist()
	if len(got) != 2 || got[0] != "human" || got[1] != "coordinator" {
		t.Errorf("allowlist = %v", got)
	}
}

func TestLoadRoster(t *testing.T) {
	t.Setenv("BAKERY_PORT", "8101")
	path := filepath.Join(t.TempDir(), "roster.yaml")
	content := `agents:
  bakery:
    endpoint: "127.0.0.1:${BAKERY_PORT}"
    role: provider
    character: "piekarnia"
  office:
    endpoint: "127.0.0.1:8100"
    role: coordinator
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if len(r.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(r.Agents))
	}
	if r.Agents["bakery"].Endpoint != "127.0.0.1:8101" {
		t.Errorf("env expansion failed: %q", r.Agents["bakery"].Endpoint)
	}
	if r.Agents["office"].Role != "coordinator" {
		t.Errorf("role = %q", r.Agents["office"].Role)
	}
}

func TestLoadRosterErrors(t *testing.T) {
	if _, err := LoadRoster(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file must fail")
	}
	path := filepath.Join(t.TempDir(), "empty.yaml")
	os.WriteFile(path, []byte("agents: {}\n"), 0o644)
	if _, err := LoadRoster(path); err == nil {
		t.Error("empty roster must fail")
	}
}
