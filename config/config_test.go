package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "session.yaml")
	contents := "sender_comp_id: CLIENT\ntarget_comp_id: GATEWAY\nsocket_host: gw.example.com\nsocket_port: 9823\n"
	if err := os.WriteFile(cfgFile, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BeginString != "FIX.4.4" {
		t.Errorf("expect default BeginString, got %q", cfg.BeginString)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("expect default MaxReconnectAttempts=5, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.SocketHost != "gw.example.com" || cfg.SocketPort != 9823 {
		t.Errorf("expect config file values to override defaults, got %+v", cfg)
	}
}

func TestLoadRequiresIdentity(t *testing.T) {
	if _, err := Load("", nil); err == nil {
		t.Fatal("expect error when sender_comp_id/target_comp_id/socket_host are unset")
	}
}
