package config

import (
	"fmt"
	"net/url"
	"strings"

	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
)

// Validate checks the configuration and returns a classified validation error.
func (c *Config) Validate() error {
	v := &configurationValidator{config: c}
	return v.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validate() error {
	checks := []func() error{
		cv.validatePaths,
		cv.validateRepositories,
		cv.validateBuild,
		cv.validateUpload,
		cv.validateDeps,
		cv.validateSchedule,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field, msg string) error {
	return ferrors.ValidationError(msg).WithContext("field", field).Build()
}

func (cv *configurationValidator) validatePaths() error {
	p := cv.config.Paths
	if strings.TrimSpace(p.WorkDir) == "" {
		return invalid("paths.work_dir", "work directory cannot be empty")
	}
	if strings.TrimSpace(p.StartDir) == "" {
		return invalid("paths.start_dir", "start directory cannot be empty")
	}
	if strings.TrimSpace(p.HomeDir) == "" {
		return invalid("paths.home_dir", "home directory cannot be empty")
	}
	return nil
}

func (cv *configurationValidator) validateRepositories() error {
	seen := make(map[string]bool)
	for i, repo := range cv.config.Checkout.Repositories {
		field := fmt.Sprintf("checkout.repositories[%d]", i)
		if repo.Name == "" {
			return invalid(field+".name", "repository name cannot be empty")
		}
		if strings.ContainsAny(repo.Name, `/\`) || repo.Name == "." || repo.Name == ".." {
			return invalid(field+".name", fmt.Sprintf("repository name %q must be a single path element", repo.Name))
		}
		if seen[repo.Name] {
			return invalid(field+".name", fmt.Sprintf("duplicate repository name: %s", repo.Name))
		}
		seen[repo.Name] = true
		if repo.URL == "" {
			return invalid(field+".url", fmt.Sprintf("repository %s has no url", repo.Name))
		}
		if repo.Auth != nil && repo.Auth.Type == "" {
			return invalid(field+".auth.type", fmt.Sprintf("repository %s has an unsupported auth type", repo.Name))
		}
		if err := validateAuth(field, repo.Auth); err != nil {
			return err
		}
	}
	for _, required := range []string{"src", "skia"} {
		if !seen[required] && !cv.config.Checkout.Skip {
			return invalid("checkout.repositories", fmt.Sprintf("a repository named %q is required", required))
		}
	}
	if cv.config.Checkout.Retry.MaxRetries > 10 {
		return invalid("checkout.retry.max_retries", "max_retries must not exceed 10")
	}
	return nil
}

func validateAuth(field string, a *AuthConfig) error {
	if a.IsZero() {
		return nil
	}
	switch a.Type {
	case AuthTypeToken:
		if a.Token == "" {
			return invalid(field+".auth.token", "token auth requires a token")
		}
	case AuthTypeBasic:
		if a.Username == "" || a.Password == "" {
			return invalid(field+".auth", "basic auth requires username and password")
		}
	case AuthTypeSSH:
		if a.KeyPath == "" {
			return invalid(field+".auth.key_path", "ssh auth requires key_path")
		}
	}
	return nil
}

func (cv *configurationValidator) validateBuild() error {
	b := cv.config.Build
	if b.Target == "" {
		return invalid("build.target", "build target cannot be empty")
	}
	if b.GN == "" || b.Ninja == "" {
		return invalid("build", "gn and ninja must be set")
	}
	return nil
}

func (cv *configurationValidator) validateUpload() error {
	endpoint := cv.config.MetadataEndpoint()
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("upload.metadata_url", fmt.Sprintf("invalid metadata url %q", endpoint))
	}
	if strings.ContainsAny(cv.config.Upload.CookieFile, `/\`) {
		return invalid("upload.cookie_file", "cookie file must be a file name, not a path")
	}
	return nil
}

func (cv *configurationValidator) validateDeps() error {
	if len(cv.config.Deps.Command) == 0 || cv.config.Deps.Command[0] == "" {
		return invalid("deps.command", "dependency refresh command cannot be empty")
	}
	return nil
}

func (cv *configurationValidator) validateSchedule() error {
	names := make(map[string]bool)
	for i, job := range cv.config.Schedule.Jobs {
		field := fmt.Sprintf("schedule.jobs[%d]", i)
		if job.Name == "" {
			return invalid(field+".name", "job name cannot be empty")
		}
		if names[job.Name] {
			return invalid(field+".name", fmt.Sprintf("duplicate job name: %s", job.Name))
		}
		names[job.Name] = true
		if len(strings.Fields(job.Cron)) < 5 {
			return invalid(field+".cron", fmt.Sprintf("job %s has an invalid cron expression %q", job.Name, job.Cron))
		}
		if job.Builder == "" {
			return invalid(field+".builder", fmt.Sprintf("job %s has no builder", job.Name))
		}
	}
	return nil
}
