package commands

import (
	"os"
	"path/filepath"

	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/core/history"
	"github.com/hay-kot/pulse/internal/core/session"
	"github.com/hay-kot/pulse/internal/store/jsonfile"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Stores are opened in the Before hook
	Sessions    session.Store
	Activities  session.ActivityLog
	History     history.Store
	Checkpoints *jsonfile.CheckpointStore
}

// Open sets cfg and opens the stores under its data directory.
func (f *Flags) Open(cfg *config.Config) {
	f.Config = cfg
	f.Sessions = jsonfile.New(cfg.SessionsFile())
	f.Activities = jsonfile.NewActivityStore(cfg.ActivityDir()).WithMaxActivities(cfg.Store.MaxActivities)
	f.History = jsonfile.NewHistoryStore(cfg.HistoryFile(), MaxHistoryEntries)
	f.Checkpoints = jsonfile.NewCheckpointStore(cfg.CheckpointsFile())
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "pulse", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "pulse")
}
