package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfigWithPath("vsound", filepath.Join(t.TempDir(), "vsound", "config.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigWithPath: %v", err)
	}
	return cfg
}

func TestLoadConfigWithPath_NewConfig(t *testing.T) {
	cfg := newTestConfig(t)
	if cfg.AppName != "vsound" {
		t.Errorf("AppName got=%q", cfg.AppName)
	}
	if len(cfg.Contexts) != 0 {
		t.Errorf("contexts got=%v", cfg.Contexts)
	}
	if _, err := os.Stat(cfg.Path()); err != nil {
		t.Errorf("config file not created: %v", err)
	}
	if cfg.Dir() != filepath.Dir(cfg.Path()) {
		t.Errorf("Dir got=%q", cfg.Dir())
	}
}

func TestConfig_Contexts(t *testing.T) {
	cfg := newTestConfig(t)

	if err := cfg.AddContext("lab", &Context{Extra: map[string]string{"listen": ":9000"}}); err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddContext("desk", &Context{}); err != nil {
		t.Fatal(err)
	}
	if got := cfg.ListContexts(); !slices.Equal(got, []string{"desk", "lab"}) {
		t.Errorf("ListContexts got=%v", got)
	}

	if _, err := cfg.GetCurrentContext(); err == nil {
		t.Error("current context set before UseContext")
	}
	if err := cfg.UseContext("missing"); err == nil {
		t.Error("UseContext(missing) succeeded")
	}
	if err := cfg.UseContext("lab"); err != nil {
		t.Fatal(err)
	}
	ctx, err := cfg.ResolveContext("")
	if err != nil || ctx.Name != "lab" {
		t.Fatalf("ResolveContext got=(%v, %v)", ctx, err)
	}
	if ctx, _ := cfg.ResolveContext("desk"); ctx.Name != "desk" {
		t.Errorf("ResolveContext(desk) got=%q", ctx.Name)
	}

	if err := cfg.DeleteContext("lab"); err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("current context got=%q after delete", cfg.CurrentContext)
	}
	if err := cfg.DeleteContext("lab"); err == nil {
		t.Error("second delete succeeded")
	}
}

func TestConfig_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfigWithPath("vsound", path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := &Context{Description: "bench card"}
	ctx.SetExtra("backend", "rtp")
	ctx.SetExtra("tick_ms", "5")
	if err := cfg.AddContext("bench", ctx); err != nil {
		t.Fatal(err)
	}
	if err := cfg.UseContext("bench"); err != nil {
		t.Fatal(err)
	}

	again, err := LoadConfigWithPath("vsound", path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := again.GetCurrentContext()
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "bench" || got.Description != "bench card" || got.GetExtra("backend") != "rtp" {
		t.Errorf("got=%+v", got)
	}
}

func TestContext_Extra(t *testing.T) {
	var nilCtx *Context
	if got := nilCtx.GetExtra("x"); got != "" {
		t.Errorf("nil context got=%q", got)
	}

	ctx := &Context{Name: "test"}
	if got := ctx.GetExtra("listen"); got != "" {
		t.Errorf("unset got=%q", got)
	}
	ctx.SetExtra("listen", ":8080")
	if got := ctx.GetExtra("listen"); got != ":8080" {
		t.Errorf("got=%q", got)
	}
	ctx.SetExtra("listen", "")
	if _, ok := ctx.Extra["listen"]; ok {
		t.Error("empty value not removed")
	}
}

func TestContext_ExtraInt(t *testing.T) {
	ctx := &Context{Extra: map[string]string{"ring_size": "4096", "bad": "x"}}
	if n, err := ctx.ExtraInt("ring_size", 1); err != nil || n != 4096 {
		t.Errorf("got=(%d, %v)", n, err)
	}
	if n, err := ctx.ExtraInt("tick_ms", 10); err != nil || n != 10 {
		t.Errorf("default got=(%d, %v)", n, err)
	}
	if _, err := ctx.ExtraInt("bad", 0); err == nil {
		t.Error("bad value parsed")
	}
}

func TestContext_ExtraDuration(t *testing.T) {
	ctx := &Context{Extra: map[string]string{"rtp_packet": "20ms", "bad": "soon"}}
	if d, err := ctx.ExtraDuration("rtp_packet", 0); err != nil || d != 20*time.Millisecond {
		t.Errorf("got=(%v, %v)", d, err)
	}
	if d, err := ctx.ExtraDuration("missing", time.Second); err != nil || d != time.Second {
		t.Errorf("default got=(%v, %v)", d, err)
	}
	if _, err := ctx.ExtraDuration("bad", 0); err == nil {
		t.Error("bad value parsed")
	}
}
