package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/voocel/pilot/schema"
	"github.com/voocel/pilot/secret"
)

// CredentialsTool hands the model placeholder tokens for a site's stored
// login. The real values never appear in the conversation; they are swapped
// in at the transport boundary when the placeholders are typed.
type CredentialsTool struct {
	store *secret.Store
}

// NewCredentialsTool creates the tool backed by a secret store.
func NewCredentialsTool(store *secret.Store) *CredentialsTool {
	return &CredentialsTool{store: store}
}

func (t *CredentialsTool) Name() string { return schema.ToolFetchCredentials }

func (t *CredentialsTool) Description() string {
	return "Fetch login placeholders for a site the user has stored credentials for. Type the placeholders exactly as given; the real values are filled in automatically."
}

func (t *CredentialsTool) Schema() *ToolSchema {
	return ObjectSchema(map[string]*PropertySchema{
		"site": StringProperty("The site label the credentials are stored under, e.g. github.com"),
	}, "site")
}

func (t *CredentialsTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Site string `json:"site"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("fetch_credentials args: %w", err)
	}
	if strings.TrimSpace(in.Site) == "" {
		return "", errors.New("site is required")
	}

	pair, ok := t.store.Tokens(in.Site)
	if !ok {
		sites := t.store.Sites()
		if len(sites) == 0 {
			return "", fmt.Errorf("no credentials stored for %q", in.Site)
		}
		return "", fmt.Errorf("no credentials stored for %q; available sites: %s", in.Site, strings.Join(sites, ", "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Credentials for %s:\n", pair.Site)
	fmt.Fprintf(&b, "username: %s\n", pair.UsernameToken)
	fmt.Fprintf(&b, "password: %s\n", pair.PasswordToken)
	b.WriteString("Type each placeholder exactly as shown; it is replaced with the real value when entered.")
	return b.String(), nil
}
