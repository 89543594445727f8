package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: test-secret-key-0123456789\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Workflow.CodeLength != 6 {
		t.Errorf("期望 code_length=6，实际=%d", cfg.Workflow.CodeLength)
	}
	if cfg.Workflow.MaxCountPasses != 3 {
		t.Errorf("期望 max_count_passes=3，实际=%d", cfg.Workflow.MaxCountPasses)
	}
	if cfg.Workflow.ClaimTTL != 0 {
		t.Errorf("期望 claim_ttl=0，实际=%s", cfg.Workflow.ClaimTTL)
	}
	if cfg.Server.RateLimit.Window != time.Minute {
		t.Errorf("期望 rate_limit.window=1m，实际=%s", cfg.Server.RateLimit.Window)
	}
	if len(cfg.Permissions.Approve) == 0 {
		t.Error("approve 权限默认值不应为空")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	if _, err := Load(path); err == nil {
		t.Fatal("缺少 jwt_secret 时应返回错误")
	}
}

func TestValidate_NegativeClaimTTL(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 8080},
		Auth:     AuthConfig{JWTSecret: "test-secret-key-0123456789"},
		Workflow: WorkflowConfig{CodeLength: 6, MaxCountPasses: 3, ClaimTTL: -time.Second},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("负数 claim_ttl 应校验失败")
	}
}

func TestValidate_CodeLengthBounds(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"zero", 0, true},
		{"default", 6, false},
		{"column width", MaxCodeLength, false},
		{"wider than column", MaxCodeLength + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{Port: 8080},
				Auth:     AuthConfig{JWTSecret: "test-secret-key-0123456789"},
				Workflow: WorkflowConfig{CodeLength: tt.length, MaxCountPasses: 3},
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("code_length=%d 期望 wantErr=%v，实际: %v", tt.length, tt.wantErr, err)
			}
		})
	}
}
