package authz

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestEnforcer_DefaultPolicy(t *testing.T) {
	e, err := NewEnforcer("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	tests := []struct {
		role, resource, action string
		want                   bool
	}{
		{"user", ResourceRecords, ActionRead, true},
		{"user", ResourceRecords, ActionExport, false},
		{"user", ResourceSnapshot, ActionReload, false},
		{"admin", ResourceRecords, ActionRead, true},
		{"admin", ResourceRecords, ActionExport, true},
		{"admin", ResourceSnapshot, ActionReload, true},
		{"guest", ResourceRecords, ActionRead, false},
		{"", ResourceRecords, ActionRead, false},
	}
	for _, tt := range tests {
		got, err := e.Enforce(tt.role, tt.resource, tt.action)
		if err != nil {
			t.Fatalf("Enforce(%s,%s,%s): %v", tt.role, tt.resource, tt.action, err)
		}
		if got != tt.want {
			t.Errorf("Enforce(%s,%s,%s) = %v, want %v", tt.role, tt.resource, tt.action, got, tt.want)
		}
	}
}

func TestEnforcer_CustomPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	policy := "p, user, records, read\np, user, records, export\n"
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := NewEnforcer(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	if ok, _ := e.Enforce("user", ResourceRecords, ActionExport); !ok {
		t.Error("custom policy should allow user export")
	}
	if ok, _ := e.Enforce("admin", ResourceSnapshot, ActionReload); ok {
		t.Error("custom policy has no admin rules")
	}
}
