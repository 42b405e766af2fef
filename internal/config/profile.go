package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/capsule-dev/capsule/internal/assets"
	"github.com/capsule-dev/capsule/internal/errors"
	"github.com/capsule-dev/capsule/internal/logging"
	"github.com/capsule-dev/capsule/internal/system"
)

// Staged file names inside the build context, referenced by the recipe's
// COPY instructions.
const (
	CredentialsFileName = ".credentials.json"
	ProfileFileName     = ".claude.json"
)

// Stager prepares the configuration blobs the image build consumes:
// the host's Claude credentials and a profile merged from the host's
// ~/.claude.json into the embedded template.
type Stager struct {
	fs      system.FileSystem
	homeDir string
}

// NewStager creates a Stager reading host configuration from homeDir.
func NewStager(fs system.FileSystem, homeDir string) *Stager {
	return &Stager{fs: fs, homeDir: homeDir}
}

// Stage writes the credentials file and merged profile into buildContext and
// returns the paths of the staged files. Both source files are required;
// a missing source is fatal before any container work starts.
func (s *Stager) Stage(buildContext, userName string) ([]string, error) {
	logging.Debug("staging configuration blobs", "context", buildContext)

	credSrc := filepath.Join(s.homeDir, ".claude", CredentialsFileName)
	if !s.fs.Exists(credSrc) {
		return nil, errors.ConfigError(fmt.Sprintf("%s not found", credSrc), nil)
	}

	userCfgPath := filepath.Join(s.homeDir, ProfileFileName)
	userCfg, err := s.fs.ReadFile(userCfgPath)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("%s not found", userCfgPath), err)
	}

	merged, err := MergeProfile(userCfg, assets.ConfigTemplate(), userName)
	if err != nil {
		return nil, errors.ConfigError("failed to merge profile", err)
	}

	credDst, err := securejoin.SecureJoin(buildContext, CredentialsFileName)
	if err != nil {
		return nil, errors.ConfigError("invalid credentials path", err)
	}
	if err := s.fs.CopyFile(credSrc, credDst); err != nil {
		return nil, errors.ConfigError("failed to copy credentials", err)
	}

	profileDst, err := securejoin.SecureJoin(buildContext, ProfileFileName)
	if err != nil {
		return nil, errors.ConfigError("invalid profile path", err)
	}
	if err := s.fs.WriteFile(profileDst, merged, 0600); err != nil {
		return nil, errors.ConfigError("failed to write profile", err)
	}

	return []string{credDst, profileDst}, nil
}

// MergeProfile merges identity fields from the host profile into the embedded
// template: userID and oauthAccount carry over, and the $USER_NAME token in
// project keys is replaced with the host user name.
func MergeProfile(hostProfile, template []byte, userName string) ([]byte, error) {
	var host map[string]json.RawMessage
	if err := json.Unmarshal(hostProfile, &host); err != nil {
		return nil, fmt.Errorf("invalid host profile: %w", err)
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(template, &merged); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	// The host profile has carried the user ID under two different keys
	// across versions.
	userID := host["userID"]
	if userID == nil {
		userID = host["userId"]
	}
	if userID != nil {
		merged["userID"] = userID
	}

	if oauth, ok := host["oauthAccount"]; ok {
		merged["oauthAccount"] = oauth
	}

	if rawProjects, ok := merged["projects"]; ok {
		var projects map[string]json.RawMessage
		if err := json.Unmarshal(rawProjects, &projects); err != nil {
			return nil, fmt.Errorf("invalid projects section: %w", err)
		}

		renamed := make(map[string]json.RawMessage, len(projects))
		for key, value := range projects {
			renamed[strings.ReplaceAll(key, "$USER_NAME", userName)] = value
		}

		data, err := json.Marshal(renamed)
		if err != nil {
			return nil, err
		}
		merged["projects"] = data
	}

	return json.MarshalIndent(merged, "", "  ")
}
