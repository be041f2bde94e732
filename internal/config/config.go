// Package config resolves per-user configuration paths and reads the
// line-oriented rule files consumed by the watchlist and description
// database.
package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const appDirName = "netscope"

// Dir returns the per-user configuration directory for the application,
// typically ~/.config/netscope on Linux.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}

// Path returns the full path of a named config file. The directory is not
// created or checked.
func Path(filename string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// ReadLines reads a line-oriented config file, dropping blank lines and
// #-comments and trimming surrounding whitespace. A missing file is not an
// error; it reads as empty.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return readLines(f)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// InstallDefault copies a bundled default file into the config directory if
// no file of that name exists yet. It reports true when the config file is
// present afterwards.
func InstallDefault(filename, sourceDir string) (bool, error) {
	dest, err := Path(filename)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(dest); err == nil {
		return true, nil
	}

	src, err := os.ReadFile(filepath.Join(sourceDir, filename))
	if err != nil {
		return false, err
	}
	if err := EnsureDir(); err != nil {
		return false, err
	}
	if err := os.WriteFile(dest, src, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
