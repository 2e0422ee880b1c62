package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"visitsuite/internal/envutil"
)

const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// Credential is one entry of the static user map loaded at startup.
type Credential struct {
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Config carries everything the web app needs, built once at startup and
// passed down explicitly.
type Config struct {
	Addr         string
	SecretKey    string
	Users        map[string]Credential
	VisitLogPath string
	IssueLogPath string
	UploadDir    string
	SessionTTL   time.Duration
}

// DefaultConfigFromEnv assembles a Config from the environment. Validation
// of required values happens in Validate so setup tooling can build partial
// configs.
func DefaultConfigFromEnv() (Config, error) {
	cfg := Config{
		Addr:         envutil.OrDefault("APP_ADDR", ":5000"),
		SecretKey:    os.Getenv("SECRET_KEY"),
		VisitLogPath: envutil.OrDefault("VISIT_LOG_PATH", "visit_logs.xlsx"),
		IssueLogPath: envutil.OrDefault("ISSUE_LOG_PATH", "issue_logs.xlsx"),
		UploadDir:    envutil.OrDefault("UPLOAD_DIR", "uploads"),
		SessionTTL:   12 * time.Hour,
	}

	if raw := strings.TrimSpace(os.Getenv("SESSION_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = ttl
	}

	users, err := ParseUsers(os.Getenv("USERS_JSON"))
	if err != nil {
		return Config{}, err
	}
	cfg.Users = users
	return cfg, nil
}

// ParseUsers decodes the serialized credential map. Usernames are lowercased
// so login lookups are case-insensitive.
func ParseUsers(raw string) (map[string]Credential, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("USERS_JSON is required")
	}

	var decoded map[string]Credential
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parse USERS_JSON: %w", err)
	}
	if len(decoded) == 0 {
		return nil, errors.New("USERS_JSON contains no users")
	}

	users := make(map[string]Credential, len(decoded))
	for username, cred := range decoded {
		username = strings.ToLower(strings.TrimSpace(username))
		if username == "" {
			return nil, errors.New("USERS_JSON contains a blank username")
		}
		if cred.Password == "" {
			return nil, fmt.Errorf("user %q has no password", username)
		}
		switch cred.Role {
		case RoleEmployee, RoleAdmin:
		default:
			return nil, fmt.Errorf("user %q has unknown role %q", username, cred.Role)
		}
		users[username] = cred
	}
	return users, nil
}

// Lookup finds a credential by username, case-insensitively.
func (c Config) Lookup(username string) (Credential, bool) {
	cred, ok := c.Users[strings.ToLower(strings.TrimSpace(username))]
	return cred, ok
}

// Validate reports the first missing required value.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("SECRET_KEY is required")
	}
	if len(c.Users) == 0 {
		return errors.New("USERS_JSON is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	return nil
}
