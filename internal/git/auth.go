package git

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	appcfg "git.home.luguber.info/inful/recreate-skps/internal/config"
)

// authMethod returns the go-git transport auth for cfg; nil means anonymous.
func authMethod(cfg *appcfg.AuthConfig) (transport.AuthMethod, error) {
	if cfg.IsZero() {
		return nil, nil
	}
	switch cfg.Type {
	case appcfg.AuthTypeToken:
		if cfg.Token == "" {
			return nil, fmt.Errorf("token authentication requires a token")
		}
		user := cfg.Username
		if user == "" {
			user = "token"
		}
		return &http.BasicAuth{Username: user, Password: cfg.Token}, nil
	case appcfg.AuthTypeBasic:
		if cfg.Username == "" || cfg.Password == "" {
			return nil, fmt.Errorf("basic authentication requires username and password")
		}
		return &http.BasicAuth{Username: cfg.Username, Password: cfg.Password}, nil
	case appcfg.AuthTypeSSH:
		keyPath := cfg.KeyPath
		if keyPath == "" {
			keyPath = filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		}
		keys, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("unsupported authentication type: %s", cfg.Type)
	}
}
