package config

import (
	"os"
	"strconv"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
)

const (
	// UserConfigPath is the default path to the notion2gdrive user config.
	UserConfigPath = "~/.notion2gdrive.yaml"

	// InitialUserConfigVersion is the first version of the user config.
	// Config files that do not specify a version will default to this
	// version.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the supported version of the user
	// config of the current binary.
	SupportedUserConfigVersion = "v1alpha1"

	// DefaultNotionVersion is the Notion API version requested when the
	// config doesn't specify one.
	DefaultNotionVersion = "2022-06-28"

	// DefaultMirrorDir is where the local mirror is built when the config
	// doesn't specify a directory.
	DefaultMirrorDir = "notion_mirror"
)

// User contains the configuration for mirroring the user's Notion
// workspace. Environment variables override the values in the config file,
// so the token never has to live on disk.
type User struct {
	Version       string `json:"version,omitempty"`
	NotionToken   string `json:"notionToken,omitempty"`
	NotionVersion string `json:"notionVersion,omitempty"`
	MirrorDir     string `json:"mirrorDir,omitempty"`
	Concurrency   int    `json:"concurrency,omitempty"`
	Rclone        Rclone `json:"rclone,omitempty"`
}

// Rclone configures the external rclone invocation that pushes the local
// mirror to Google Drive.
type Rclone struct {
	Exe           string `json:"exe,omitempty"`
	Remote        string `json:"remote,omitempty"`
	DestFolder    string `json:"destFolder,omitempty"`
	DriveUseTrash string `json:"driveUseTrash,omitempty"`
}

func (u User) getVersion() string {
	return u.Version
}

// homedirExpand will be overridden in mock tests.
var homedirExpand = homedir.Expand

// ParseUser loads the user config from the default path, applies
// environment overrides and defaults, and validates that a Notion token is
// available. A missing config file isn't fatal because the environment can
// carry the whole configuration.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	config := User{Version: InitialUserConfigVersion}
	if err := parseConfig(path, &config, SupportedUserConfigVersion); err != nil {
		if _, ok := errors.RootCause(err).(errors.FileNotFound); !ok {
			return User{}, errors.WithContext(err, "parse")
		}
	}

	config.applyEnvironment()
	config.applyDefaults()

	if config.NotionToken == "" {
		return User{}, errors.NewFriendlyError("No Notion token configured.\n"+
			"Set NOTION_TOKEN in the environment, or run "+
			"`notion2gdrive configure --token <token>` to store it in %q.", path)
	}

	config.MirrorDir, err = homedirExpand(config.MirrorDir)
	if err != nil {
		return User{}, errors.WithContext(err, "expand mirror dir")
	}
	return config, nil
}

// applyEnvironment overlays the environment variables the original tooling
// reads from its .env file.
func (u *User) applyEnvironment() {
	overlay := func(dest *string, key string) {
		if value := os.Getenv(key); value != "" {
			*dest = value
		}
	}

	overlay(&u.NotionToken, "NOTION_TOKEN")
	overlay(&u.NotionVersion, "NOTION_VERSION")
	overlay(&u.MirrorDir, "LOCAL_MIRROR_DIR")
	overlay(&u.Rclone.Exe, "RCLONE_EXE")
	overlay(&u.Rclone.Remote, "RCLONE_REMOTE")
	overlay(&u.Rclone.DestFolder, "RCLONE_DEST_FOLDER")
	overlay(&u.Rclone.DriveUseTrash, "RCLONE_DRIVE_USE_TRASH")

	if value := os.Getenv("NOTION_PAGE_CONCURRENCY"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			u.Concurrency = parsed
		}
	}
}

func (u *User) applyDefaults() {
	if u.NotionVersion == "" {
		u.NotionVersion = DefaultNotionVersion
	}
	if u.MirrorDir == "" {
		u.MirrorDir = DefaultMirrorDir
	}
	if u.Rclone.Exe == "" {
		u.Rclone.Exe = "rclone"
	}
	if u.Rclone.Remote == "" {
		u.Rclone.Remote = "gdrive"
	}
	if u.Rclone.DestFolder == "" {
		u.Rclone.DestFolder = "notion"
	}
}

// WriteUser writes the given user config to disk.
func WriteUser(cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetUserConfigPath returns the expanded path to the user's global
// configuration, so it can be directly passed to file operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}
