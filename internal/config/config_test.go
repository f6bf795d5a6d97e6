package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_MAX_AGE", "")
	t.Setenv("CHAT_RATE_WINDOW", "")
	t.Setenv("PARTNER_DEFAULT_REGION", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.AccessTokenMaxAge != 3600 {
		t.Errorf("AccessTokenMaxAge = %d, want 3600", cfg.AccessTokenMaxAge)
	}
	if cfg.ChatRateWindow != time.Minute {
		t.Errorf("ChatRateWindow = %v, want 1m", cfg.ChatRateWindow)
	}
	if cfg.PartnerDefaultRegion != "eu" {
		t.Errorf("PartnerDefaultRegion = %q, want eu", cfg.PartnerDefaultRegion)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
}

func TestLoadConfig_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("REFRESH_TOKEN_MAX_AGE", "-5")
	t.Setenv("CHAT_RATE_LIMIT", "lots")
	t.Setenv("CHAT_RATE_WINDOW", "soon")

	cfg, _ := LoadConfig()

	if cfg.RefreshTokenMaxAge != 2592000 {
		t.Errorf("RefreshTokenMaxAge = %d, want default", cfg.RefreshTokenMaxAge)
	}
	if cfg.ChatRateLimit != 20 {
		t.Errorf("ChatRateLimit = %d, want 20", cfg.ChatRateLimit)
	}
	if cfg.ChatRateWindow != time.Minute {
		t.Errorf("ChatRateWindow = %v, want 1m", cfg.ChatRateWindow)
	}
}

func TestConfiguredHelpers(t *testing.T) {
	cfg := &Config{FCMProjectID: "p", FCMClientEmail: "e"}
	if cfg.FCMConfigured() {
		t.Error("FCMConfigured should be false without a private key")
	}
	cfg.FCMPrivateKey = "k"
	if !cfg.FCMConfigured() {
		t.Error("FCMConfigured should be true")
	}
	if cfg.WebPushConfigured() {
		t.Error("WebPushConfigured should be false without VAPID keys")
	}
	if cfg.StorageConfigured() {
		t.Error("StorageConfigured should be false without R2 settings")
	}
}

func TestLoadConfig_TrustProxyHeaders(t *testing.T) {
	t.Setenv("TRUST_PROXY_HEADERS", "")
	cfg, _ := LoadConfig()
	if cfg.TrustProxyHeaders {
		t.Error("proxy headers trusted by default")
	}

	t.Setenv("TRUST_PROXY_HEADERS", "true")
	cfg, _ = LoadConfig()
	if !cfg.TrustProxyHeaders {
		t.Error("TRUST_PROXY_HEADERS=true not applied")
	}
}
