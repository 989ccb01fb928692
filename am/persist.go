package am

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/Somnusochi/auto-novel/errors"
)

// Save writes cfg as TOML to configPath, rotating up to three backups of the
// previous file (.back1 newest).
func Save(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Keep the watcher from reloading our own write
	if w := GetGlobalWatcher(); w != nil {
		w.MarkOwnWrite()
	}

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write config %s", configPath)
	}
	return nil
}

// createBackup rotates .back2 -> .back3, .back1 -> .back2 and copies current -> .back1
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	backups := []string{configPath + ".back1", configPath + ".back2", configPath + ".back3"}

	if err := os.Remove(backups[2]); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete old backup %s", backups[2])
	}
	for i := len(backups) - 2; i >= 0; i-- {
		if _, err := os.Stat(backups[i]); err == nil {
			if err := os.Rename(backups[i], backups[i+1]); err != nil {
				return errors.Wrapf(err, "failed to rotate %s", backups[i])
			}
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(backups[0], content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}
