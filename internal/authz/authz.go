package authz

import (
	"embed"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v3"
	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"
)

//go:embed model.conf policy.csv
var embedFS embed.FS

// Resources and actions used by the HTTP layer.
const (
	ResourceRecords  = "records"
	ResourceSnapshot = "snapshot"

	ActionRead   = "read"
	ActionExport = "export"
	ActionReload = "reload"
)

// Enforcer decides whether a role may perform an action on a resource.
type Enforcer struct {
	e   *casbin.Enforcer
	log *slog.Logger
}

// NewEnforcer loads the embedded RBAC model and policy. When policyPath is
// non-empty it replaces the embedded policy.
func NewEnforcer(policyPath string, log *slog.Logger) (*Enforcer, error) {
	if log == nil {
		log = logger.Get()
	}
	dir, err := os.MkdirTemp("", "lookup-casbin-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := writeEmbedToDir(dir, "model.conf", "policy.csv"); err != nil {
		return nil, err
	}
	if policyPath == "" {
		policyPath = filepath.Join(dir, "policy.csv")
	}

	e, err := casbin.NewEnforcer(filepath.Join(dir, "model.conf"), policyPath)
	if err != nil {
		return nil, err
	}
	return &Enforcer{e: e, log: log}, nil
}

func writeEmbedToDir(dir string, names ...string) error {
	for _, name := range names {
		data, err := embedFS.ReadFile(name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			return err
		}
	}
	return nil
}

// Enforce checks whether role may perform action on resource.
func (e *Enforcer) Enforce(role, resource, action string) (bool, error) {
	allowed, err := e.e.Enforce(role, resource, action)
	e.log.Debug("authz decision", "role", role, "resource", resource, "action", action, "allowed", allowed, "error", err)
	return allowed, err
}
