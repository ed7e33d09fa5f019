package am

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/teranos/jobsweep/errors"
	"github.com/teranos/jobsweep/logger"
)

const starterHeader = `# jobsweep configuration
# Precedence: defaults < /etc/jobsweep < ~/.jobsweep < ./jobsweep.toml < JOBSWEEP_* env < flags
`

// WriteStarterConfig writes cfg as a commented TOML file at path.
// An existing file is only replaced when overwrite is set, after a rotating backup.
func WriteStarterConfig(path string, cfg Config, overwrite bool) error {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return errors.WithHint(
				errors.Newf("config file %s already exists", path),
				"re-run with --force to overwrite (a .back1 backup is kept)")
		}
		if err := createBackup(path); err != nil {
			return errors.Wrap(err, "failed to create backup")
		}
	}

	var buf bytes.Buffer
	buf.WriteString(starterHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	// 0600: the connection string may carry credentials
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// backupDepth is how many previous versions of a config file are kept
const backupDepth = 3

func backupPath(configPath string, n int) string {
	return configPath + ".back" + strconv.Itoa(n)
}

// createBackup shifts .backN to .backN+1, dropping the oldest, then copies
// the current file to .back1
func createBackup(configPath string) error {
	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	oldest := backupPath(configPath, backupDepth)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		// An undeletable backup must not block the write
		logger.Warnw("Failed to delete old backup", "path", oldest, "error", err)
	}

	for n := backupDepth - 1; n >= 1; n-- {
		from, to := backupPath(configPath, n), backupPath(configPath, n+1)
		if err := os.Rename(from, to); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to rotate %s", filepath.Base(from))
		}
	}

	if err := os.WriteFile(backupPath(configPath, 1), content, 0600); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}
