package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/kartikbazzad/bunbase/lookup/internal/metrics"
	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Roles understood by the authorization policy.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrMissingCredentials = errors.New("identifier and password are required")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("wrong password")
)

// User is an entry of the users file. Password holds a bcrypt hash.
type User struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Principal is the identity attached to a session.
type Principal struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Principal returns the user's identity without credentials. Users without
// a role get RoleUser.
func (u User) Principal() Principal {
	role := strings.ToLower(strings.TrimSpace(u.Role))
	if role == "" {
		role = RoleUser
	}
	return Principal{Name: u.Name, Email: u.Email, Role: role}
}

// Directory is the set of users loaded from a JSON file.
type Directory struct {
	path string
	log  *slog.Logger

	mu    sync.RWMutex
	users []User
}

// NewDirectory creates an empty directory backed by path.
func NewDirectory(path string, log *slog.Logger) *Directory {
	if log == nil {
		log = logger.Get()
	}
	return &Directory{path: path, log: log}
}

// Reload re-reads the users file. A missing file empties the directory; an
// unreadable or malformed one also empties it so stale credentials stop working.
func (d *Directory) Reload(ctx context.Context) error {
	users, err := readUsers(d.path)
	if err != nil {
		metrics.ReloadsTotal.WithLabelValues("users", "error").Inc()
		d.log.Error("Failed to load users", "path", d.path, "error", err)
		d.Set(nil)
		return err
	}
	d.Set(users)
	metrics.ReloadsTotal.WithLabelValues("users", "ok").Inc()
	d.log.Info("Users loaded", "path", d.path, "count", len(users))
	return nil
}

// ReloadFunc adapts Reload to the watcher callback signature.
func (d *Directory) ReloadFunc() func(context.Context) {
	return func(ctx context.Context) {
		_ = d.Reload(ctx)
	}
}

func readUsers(path string) ([]User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []User{}, nil
		}
		return nil, err
	}
	var users []User
	if len(strings.TrimSpace(string(data))) == 0 {
		return []User{}, nil
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return users, nil
}

// Set replaces the user list.
func (d *Directory) Set(users []User) {
	if users == nil {
		users = []User{}
	}
	d.mu.Lock()
	d.users = users
	d.mu.Unlock()
}

// Len returns the number of users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// Find looks a user up by email or name, case-insensitively.
func (d *Directory) Find(identifier string) (User, bool) {
	identifier = strings.TrimSpace(identifier)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, identifier) || strings.EqualFold(u.Name, identifier) {
			return u, true
		}
	}
	return User{}, false
}

// Authenticate checks identifier/password against the directory.
func (d *Directory) Authenticate(identifier, password string) (User, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return User{}, ErrMissingCredentials
	}
	u, ok := d.Find(identifier)
	if !ok {
		return User{}, ErrUserNotFound
	}
	if !CheckPassword(password, u.Password) {
		return User{}, ErrWrongPassword
	}
	return u, nil
}

// HashPassword returns a bcrypt hash for the users file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
