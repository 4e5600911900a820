package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/opensdd/osdd-api/clients/go/osdd"
)

// DefaultAuthTokenEnvVar is the environment variable read for the tracker credential.
const DefaultAuthTokenEnvVar = "GITHUB_TOKEN"

// NewGitRepository builds the descriptor of a GitHub repository given as "owner/name".
// The credential is not stored: only the name of the env var that holds it.
func NewGitRepository(fullName, authTokenEnvVar string) (*osdd.GitRepository, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("git repository full name cannot be empty")
	}
	if _, _, err := splitFullName(fullName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(authTokenEnvVar) == "" {
		authTokenEnvVar = DefaultAuthTokenEnvVar
	}
	return osdd.GitRepository_builder{
		FullName:        fullName,
		Provider:        "github",
		AuthTokenEnvVar: &authTokenEnvVar,
	}.Build(), nil
}

// SplitFullName returns the owner and name of repo.
// Only GitHub repositories are supported.
func SplitFullName(repo *osdd.GitRepository) (string, string, error) {
	if repo == nil {
		return "", "", fmt.Errorf("git repository cannot be nil")
	}
	switch provider := strings.ToLower(strings.TrimSpace(repo.GetProvider())); provider {
	case "", "github":
	default:
		return "", "", fmt.Errorf("unsupported git provider: %s", provider)
	}
	return splitFullName(strings.TrimSpace(repo.GetFullName()))
}

func splitFullName(fullName string) (string, string, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", fullName)
	}
	return owner, name, nil
}

// ResolveAuthToken reads the credential from the env var named by repo.
// An empty string means no credential is available.
func ResolveAuthToken(repo *osdd.GitRepository) string {
	if repo == nil || !repo.HasAuthTokenEnvVar() {
		return ""
	}
	envVar := repo.GetAuthTokenEnvVar()
	if envVar == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envVar))
}
