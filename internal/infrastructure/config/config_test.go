package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[app]
env_file = "`+filepath.Join(dir, "missing.env")+`"

[symbols]
list = ["btc", "ETHUSDT", "btc-usdt", " wif_usdt "]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"BTC-USDT", "ETH-USDT", "WIF-USDT"}
	if !reflect.DeepEqual(cfg.Symbols.List, want) {
		t.Errorf("symbols = %v, want %v", cfg.Symbols.List, want)
	}
	if cfg.Feed.GroupSize != 50 || cfg.Feed.StaggerMs != 200 || cfg.Feed.ReconnectSec != 5 {
		t.Errorf("feed defaults wrong: %+v", cfg.Feed)
	}
	if cfg.Funding.TTLSec != 60 || cfg.Funding.IntervalSec != 30 || cfg.Funding.BatchSize != 10 {
		t.Errorf("funding defaults wrong: %+v", cfg.Funding)
	}
	if cfg.Detect.Workers != 3 || cfg.DispatchInterval().Milliseconds() != 500 {
		t.Errorf("detect defaults wrong: %+v", cfg.Detect)
	}
	if cfg.Symbols.MinPrice != 0.0001 || cfg.Symbols.MaxPrice != 1.0 {
		t.Errorf("price band defaults wrong: %v..%v", cfg.Symbols.MinPrice, cfg.Symbols.MaxPrice)
	}
}

func TestLoadTelegramTokenFromEnvFile(t *testing.T) {
	t.Setenv("TOKEN", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	os.Unsetenv("TOKEN")
	os.Unsetenv("TELEGRAM_TOKEN")

	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "TOKEN=123:abc\n")
	path := writeFile(t, dir, "config.toml", `
[app]
env_file = "`+env+`"

[notify.telegram]
enabled = true
chat_ids = [42]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Notify.Telegram.Token != "123:abc" {
		t.Errorf("token not loaded from env file: %q", cfg.Notify.Telegram.Token)
	}
	if len(cfg.Notify.Telegram.ChatIDs) != 1 || cfg.Notify.Telegram.ChatIDs[0] != 42 {
		t.Errorf("chat ids wrong: %v", cfg.Notify.Telegram.ChatIDs)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	noEnv := filepath.Join(dir, "none.env")

	cases := map[string]string{
		"group size": `
[app]
env_file = "` + noEnv + `"
[feed]
group_size = 80
`,
		"price band": `
[app]
env_file = "` + noEnv + `"
[symbols]
min_price = 2.0
max_price = 1.0
`,
		"postgres dsn": `
[app]
env_file = "` + noEnv + `"
[storage]
enabled = true
[storage.postgres]
enabled = true
`,
	}
	t.Setenv("POSTGRES_DSN", "")
	os.Unsetenv("POSTGRES_DSN")

	for name, content := range cases {
		path := writeFile(t, dir, "bad.toml", content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
