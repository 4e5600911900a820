// Package config loads run configuration from flags, environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opensdd/osdd-api/clients/go/osdd"
	"github.com/opensdd/osdd-todosync/core/utils"
	"github.com/spf13/viper"
)

// FileName is the project config file looked up in the scan root.
const FileName = ".todosync.yaml"

// Config holds the settings of one run.
type Config struct {
	// Repository is the target repository as "owner/name". Required.
	Repository string `mapstructure:"repository"`
	// TokenEnv names the environment variable holding the credential.
	TokenEnv string `mapstructure:"token_env"`
	// ProjectNumber is the project board records are added to. 0 disables linking.
	ProjectNumber int `mapstructure:"project_number"`
	// ProjectOwner owns the board. Defaults to the repository owner.
	ProjectOwner string `mapstructure:"project_owner"`
	// Label marks records created from TODO comments.
	Label string `mapstructure:"label"`
	// Delay is the pause after each processed annotation.
	Delay time.Duration `mapstructure:"delay"`
	// APIURL and GraphQLURL point at the GitHub REST and GraphQL endpoints.
	APIURL     string `mapstructure:"api_url"`
	GraphQLURL string `mapstructure:"graphql_url"`
	// DryRun reports what would be created without creating anything.
	DryRun bool `mapstructure:"dry_run"`
	// Report is an optional path for the YAML run report.
	Report string `mapstructure:"report"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		TokenEnv:      utils.DefaultAuthTokenEnvVar,
		ProjectNumber: 1,
		Label:         "todo",
		Delay:         time.Second,
		APIURL:        "https://api.github.com",
		GraphQLURL:    "https://api.github.com/graphql",
	}
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("repository", defaults.Repository)
	v.SetDefault("token_env", defaults.TokenEnv)
	v.SetDefault("project_number", defaults.ProjectNumber)
	v.SetDefault("project_owner", defaults.ProjectOwner)
	v.SetDefault("label", defaults.Label)
	v.SetDefault("delay", defaults.Delay)
	v.SetDefault("api_url", defaults.APIURL)
	v.SetDefault("graphql_url", defaults.GraphQLURL)
	v.SetDefault("dry_run", defaults.DryRun)
	v.SetDefault("report", defaults.Report)

	// GitHub Actions exports GITHUB_REPOSITORY; the prefixed names win when both are set.
	_ = v.BindEnv("repository", "TODOSYNC_REPOSITORY", "GITHUB_REPOSITORY")
	_ = v.BindEnv("project_number", "TODOSYNC_PROJECT_NUMBER", "PROJECT_NUMBER")
	v.SetEnvPrefix("TODOSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// New returns a viper instance with defaults applied and, when present, the config file read.
// An explicit configFile must exist. Otherwise FileName in dir is used if it exists.
func New(configFile, dir string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	path := configFile
	if path == "" {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err != nil {
			return v, nil
		}
		path = candidate
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return v, nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Repository = strings.TrimSpace(cfg.Repository)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.Repository == "" {
		errs = append(errs, fmt.Errorf("repository is required: set --repository, TODOSYNC_REPOSITORY or GITHUB_REPOSITORY"))
	} else if _, err := utils.NewGitRepository(c.Repository, c.TokenEnv); err != nil {
		errs = append(errs, err)
	}
	if c.ProjectNumber < 0 {
		errs = append(errs, fmt.Errorf("project_number must not be negative, got %d", c.ProjectNumber))
	}
	if strings.TrimSpace(c.Label) == "" {
		errs = append(errs, fmt.Errorf("label cannot be empty"))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative, got %s", c.Delay))
	}
	if strings.TrimSpace(c.APIURL) == "" || strings.TrimSpace(c.GraphQLURL) == "" {
		errs = append(errs, fmt.Errorf("api_url and graphql_url cannot be empty"))
	}
	return errors.Join(errs...)
}

// Credentials returns the repository descriptor and the credential it points at.
// A missing credential is an error: the run must not start without one.
func (c *Config) Credentials() (*osdd.GitRepository, string, error) {
	repo, err := utils.NewGitRepository(c.Repository, c.TokenEnv)
	if err != nil {
		return nil, "", err
	}
	token := utils.ResolveAuthToken(repo)
	if token == "" {
		return nil, "", fmt.Errorf("credential is required: set the %s environment variable", repo.GetAuthTokenEnvVar())
	}
	return repo, token, nil
}

// LinkOwner returns the login that owns the project board.
func (c *Config) LinkOwner() string {
	if c.ProjectOwner != "" {
		return c.ProjectOwner
	}
	owner, _, _ := strings.Cut(c.Repository, "/")
	return owner
}
