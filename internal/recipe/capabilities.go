package recipe

import (
	"context"

	"git.home.luguber.info/inful/recreate-skps/internal/browsercheck"
	"git.home.luguber.info/inful/recreate-skps/internal/config"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/metrics"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe/models"
	"git.home.luguber.info/inful/recreate-skps/internal/step"
)

// Checkouter fetches a repository and returns its local path.
type Checkouter interface {
	Checkout(ctx context.Context, repo config.Repository) (string, error)
}

// Files performs the destructive directory operations of a run.
type Files interface {
	ResetDir(path string) error
}

// DepsRefresher refreshes the upload script's Go dependencies and describes
// the environment they are installed into.
type DepsRefresher interface {
	Refresh(ctx context.Context) error
	Env() map[string]string
	PathDirs() []string
}

// CredentialScope holds a credential file for the duration of use.
type CredentialScope interface {
	With(ctx context.Context, use func(path string) error) error
}

// CredentialFactory builds the scope for the credential at path. It is only
// called by runs that upload.
type CredentialFactory func(path string) CredentialScope

// Capabilities are the collaborators a run talks to.
type Capabilities struct {
	Checkout     Checkouter
	Runner       step.Runner
	Files        Files
	Deps         DepsRefresher
	Credentials  CredentialFactory
	BrowserCheck browsercheck.Checker // optional; required when capture.smoke_check is on
	Recorder     metrics.Recorder     // optional
	Observers    []models.RunObserver
}

func (c Capabilities) recorder() metrics.Recorder {
	if c.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return c.Recorder
}

// validate checks that every collaborator the planned stages need is present.
func (c Capabilities) validate(cfg *config.Config, kind models.RunKind) error {
	missing := func(name string) error {
		return ferrors.ValidationError("missing recipe capability").
			WithContext("capability", name).
			WithContext("kind", string(kind)).
			Build()
	}
	if c.Runner == nil {
		return missing("runner")
	}
	if c.Files == nil {
		return missing("files")
	}
	if !cfg.Checkout.Skip && c.Checkout == nil {
		return missing("checkout")
	}
	if cfg.Capture.SmokeCheck && c.BrowserCheck == nil {
		return missing("browser_check")
	}
	if kind.Uploads() {
		if c.Deps == nil {
			return missing("deps")
		}
		if c.Credentials == nil {
			return missing("credentials")
		}
	}
	return nil
}
