package auth

import (
	"crypto/subtle"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/middleware"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid username or password")

//go:embed users_default.yaml
var defaultUsersYAML []byte

// User is one entry of the credential table
type User struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"passwordHash"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	Sector       string `yaml:"sector"`
}

// Credentials is a static table of users
type Credentials struct {
	users map[string]User
}

// LoadCredentials reads the table from path, or the built-in table when path is empty
func LoadCredentials(path string) (*Credentials, error) {
	if path == "" {
		return ParseCredentials(defaultUsersYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	return ParseCredentials(data)
}

// ParseCredentials parses and validates a YAML credential table
func ParseCredentials(data []byte) (*Credentials, error) {
	var file struct {
		Users []User `yaml:"users"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse users: %w", err)
	}

	users := make(map[string]User, len(file.Users))
	for _, u := range file.Users {
		key := strings.ToLower(strings.TrimSpace(u.Username))
		if key == "" {
			return nil, fmt.Errorf("user without username")
		}
		if _, dup := users[key]; dup {
			return nil, fmt.Errorf("duplicate user %q", u.Username)
		}
		if u.Role != RoleAdmin && u.Role != RoleViewer {
			return nil, fmt.Errorf("user %q: unknown role %q", u.Username, u.Role)
		}
		if u.Sector == "" {
			u.Sector = string(domain.SectorAll)
		}
		if sector := domain.SectorID(u.Sector); sector != domain.SectorAll && !sector.IsValid() {
			return nil, fmt.Errorf("user %q: unknown sector %q", u.Username, u.Sector)
		}
		users[key] = u
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no users defined")
	}
	return &Credentials{users: users}, nil
}

// Authenticate checks a username and password. Usernames are case-insensitive.
func (c *Credentials) Authenticate(username, password string) (*middleware.Principal, error) {
	u, ok := c.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if u.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
			return nil, ErrInvalidCredentials
		}
	} else if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		return nil, ErrInvalidCredentials
	}

	return &middleware.Principal{Username: u.Username, Role: u.Role, Sector: u.Sector}, nil
}

// DisplayName returns the user's display name, falling back to the username
func (c *Credentials) DisplayName(username string) string {
	u, ok := c.users[strings.ToLower(username)]
	if !ok || u.Name == "" {
		return username
	}
	return u.Name
}

// CanAnnotate reports whether p may write a note on sector. Admins may
// annotate anywhere; a viewer only on the one sector assigned to them, so an
// all-sector viewer is read-only.
func CanAnnotate(p *middleware.Principal, sector domain.SectorID) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleAdmin {
		return true
	}
	return p.Sector != string(domain.SectorAll) && p.Sector == string(sector)
}
