// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides the local login gate for advisor TUI.
//
// The advisor backend performs no authentication of its own, so this is a
// client-side gate only: any non-empty username/password pair is accepted,
// a derived token is persisted to disk, and subsequent launches skip the
// login screen until the token expires. TOTP can be enrolled as an
// optional second factor.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/advisor-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// TokenPrefix marks locally issued tokens.
	TokenPrefix = "adv_"

	// KeySize is the derived token length in bytes.
	KeySize = 32

	// SaltSize is the salt length for token derivation.
	SaltSize = 32

	// PBKDF2Iterations is the iteration count for token derivation.
	// OWASP-recommended minimum for PBKDF2-HMAC-SHA256.
	PBKDF2Iterations = 600000

	// DefaultTokenTTL is how long a login remains valid.
	DefaultTokenTTL = 24 * time.Hour

	// TOTPIssuer is the issuer shown in authenticator apps.
	TOTPIssuer = "advisor-tui"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyCredentials indicates a blank username or password.
	ErrEmptyCredentials = errors.New("username and password must not be empty")

	// ErrNotAuthenticated indicates no stored login token.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrTokenExpired indicates the stored token is past its TTL.
	ErrTokenExpired = errors.New("login expired")

	// ErrTOTPRequired indicates TOTP is enrolled but no code was given.
	ErrTOTPRequired = errors.New("TOTP code required")

	// ErrInvalidTOTP indicates the supplied TOTP code did not verify.
	ErrInvalidTOTP = errors.New("invalid TOTP code")
)

// =============================================================================
// TYPES
// =============================================================================

// Credentials are the inputs to Login.
type Credentials struct {
	Username string
	Password string
	TOTPCode string
}

// State is the persisted auth file (~/.advisor/auth.json). Token fields are
// cleared on logout; TOTPSecret survives so enrollment persists.
type State struct {
	Username   string    `json:"username,omitempty"`
	Token      string    `json:"token,omitempty"`
	Salt       string    `json:"salt,omitempty"`
	IssuedAt   time.Time `json:"issued_at,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	TOTPSecret string    `json:"totp_secret,omitempty"`
}

// LoggedIn reports whether the state carries a token.
func (s *State) LoggedIn() bool {
	return s.Token != ""
}

// Manager issues, persists, and validates login tokens.
type Manager struct {
	// Path is the auth state file location.
	Path string

	// TTL is the token lifetime.
	TTL time.Duration

	// Iterations overrides the PBKDF2 cost. Tests lower this; zero means
	// PBKDF2Iterations.
	Iterations int

	// now is injectable for expiry tests.
	now func() time.Time
}

// NewManager creates a manager persisting to path with the given TTL.
// A non-positive ttl falls back to DefaultTokenTTL.
func NewManager(path string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Manager{
		Path: path,
		TTL:  ttl,
		now:  time.Now,
	}
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// Login verifies the credentials, derives a token, and persists it.
// Any non-empty username/password is accepted; when TOTP is enrolled the
// code must verify as well.
func (m *Manager) Login(creds Credentials) (*State, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, ErrEmptyCredentials
	}

	state, err := m.load()
	if err != nil {
		return nil, err
	}

	if state.TOTPSecret != "" {
		code := strings.TrimSpace(creds.TOTPCode)
		if code == "" {
			return nil, ErrTOTPRequired
		}
		if !totp.Validate(code, state.TOTPSecret) {
			return nil, ErrInvalidTOTP
		}
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	token := m.deriveToken(username, creds.Password, salt)
	issued := m.now()

	state.Username = username
	state.Token = token
	state.Salt = hex.EncodeToString(salt)
	state.IssuedAt = issued
	state.ExpiresAt = issued.Add(m.TTL)

	if err := m.save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Logout clears the stored token. Enrolled TOTP secrets are kept.
// Logging out while not logged in is not an error.
func (m *Manager) Logout() error {
	state, err := m.load()
	if err != nil {
		return err
	}
	if !state.LoggedIn() && state.TOTPSecret == "" {
		// Nothing persisted at all.
		return nil
	}

	state.Token = ""
	state.Salt = ""
	state.IssuedAt = time.Time{}
	state.ExpiresAt = time.Time{}

	if state.Username == "" && state.TOTPSecret == "" {
		return m.remove()
	}
	return m.save(state)
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate returns the stored state if a current login exists.
// Expired tokens are cleared on sight and reported as ErrTokenExpired.
func (m *Manager) Validate() (*State, error) {
	state, err := m.load()
	if err != nil {
		return nil, err
	}
	if !state.LoggedIn() {
		return nil, ErrNotAuthenticated
	}
	if m.now().After(state.ExpiresAt) {
		state.Token = ""
		state.Salt = ""
		_ = m.save(state)
		return nil, ErrTokenExpired
	}
	return state, nil
}

// IsAuthenticated reports whether a current login exists.
func (m *Manager) IsAuthenticated() bool {
	_, err := m.Validate()
	return err == nil
}

// Username returns the logged-in username, or empty.
func (m *Manager) Username() string {
	state, err := m.Validate()
	if err != nil {
		return ""
	}
	return state.Username
}

// =============================================================================
// TOTP ENROLLMENT
// =============================================================================

// EnrollTOTP generates and persists a TOTP secret for the logged-in user.
// Returns the secret and the otpauth:// provisioning URL for authenticator
// apps. Subsequent logins require a valid code.
func (m *Manager) EnrollTOTP() (secret, url string, err error) {
	state, err := m.Validate()
	if err != nil {
		return "", "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: state.Username,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate TOTP key: %w", err)
	}

	state.TOTPSecret = key.Secret()
	if err := m.save(state); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// DisableTOTP removes the enrolled TOTP secret.
func (m *Manager) DisableTOTP() error {
	state, err := m.load()
	if err != nil {
		return err
	}
	if state.TOTPSecret == "" {
		return nil
	}
	state.TOTPSecret = ""
	return m.save(state)
}

// TOTPEnrolled reports whether a TOTP secret is on file.
func (m *Manager) TOTPEnrolled() bool {
	state, err := m.load()
	return err == nil && state.TOTPSecret != ""
}

// =============================================================================
// INTERNALS
// =============================================================================

// deriveToken stretches the credentials into an opaque token.
func (m *Manager) deriveToken(username, password string, salt []byte) string {
	iterations := m.Iterations
	if iterations <= 0 {
		iterations = PBKDF2Iterations
	}
	key := pbkdf2.Key([]byte(username+":"+password), salt, iterations, KeySize, sha256.New)
	return TokenPrefix + hex.EncodeToString(key)
}

// load reads the state file. A missing file yields an empty state.
func (m *Manager) load() (*State, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("read auth state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt auth file should force re-login, not brick the app.
		return &State{}, nil
	}
	return &state, nil
}

// save writes the state file with owner-only permissions.
func (m *Manager) save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal auth state: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(m.Path, data, 0600, 0700); err != nil {
		return fmt.Errorf("write auth state: %w", err)
	}
	return nil
}

// remove deletes the state file.
func (m *Manager) remove() error {
	if err := os.Remove(m.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove auth state: %w", err)
	}
	return nil
}
