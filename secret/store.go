// Package secret holds credential values and the placeholder tokens that
// stand in for them. Tokens are what the model and logs see; real values are
// substituted into outbound guest commands immediately before transport.
package secret

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Resolver is the read-only boundary tool execution depends on. Execution
// never persists or caches secret values itself.
type Resolver interface {
	ResolveToken(token string) (string, bool)
	SubstituteTokens(text string) string
}

// Credential is one site login supplied through the management boundary.
type Credential struct {
	Site     string
	Username string
	Password string
}

// TokenPair is the model-visible projection of a credential: the site label
// plus one opaque token per secret value.
type TokenPair struct {
	Site          string `json:"site"`
	UsernameToken string `json:"username_token"`
	PasswordToken string `json:"password_token"`
}

type entry struct {
	usernameToken string
	passwordToken string
}

// Store maps sites to credentials and tokens to secret values. Writes happen
// only through Put before or between tool calls; execution reads concurrently.
type Store struct {
	mu      sync.RWMutex
	bySite  map[string]entry
	byToken map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		bySite:  make(map[string]entry),
		byToken: make(map[string]string),
	}
}

// Put registers a credential and returns its tokens. Re-registering a site
// replaces the stored values and issues fresh tokens.
func (s *Store) Put(cred Credential) TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.bySite[cred.Site]; ok {
		delete(s.byToken, old.usernameToken)
		delete(s.byToken, old.passwordToken)
	}

	e := entry{
		usernameToken: uuid.NewString(),
		passwordToken: uuid.NewString(),
	}
	s.bySite[cred.Site] = e
	s.byToken[e.usernameToken] = cred.Username
	s.byToken[e.passwordToken] = cred.Password

	return TokenPair{Site: cred.Site, UsernameToken: e.usernameToken, PasswordToken: e.passwordToken}
}

// Tokens returns the token pair for a site.
func (s *Store) Tokens(site string) (TokenPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.bySite[site]
	if !ok {
		return TokenPair{}, false
	}
	return TokenPair{Site: site, UsernameToken: e.usernameToken, PasswordToken: e.passwordToken}, true
}

// Sites returns the registered site labels in sorted order.
func (s *Store) Sites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sites := make([]string, 0, len(s.bySite))
	for site := range s.bySite {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites
}

// ResolveToken returns the secret value behind a token.
func (s *Store) ResolveToken(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byToken[token]
	return v, ok
}

// SubstituteTokens replaces every known token in text with its secret value.
// Unknown text passes through untouched.
func (s *Store) SubstituteTokens(text string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for token, value := range s.byToken {
		if strings.Contains(text, token) {
			text = strings.ReplaceAll(text, token, value)
		}
	}
	return text
}
