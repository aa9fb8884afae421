package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
)

const (
	AppName = "bookharvest"

	// DefaultLabel is the profile created by `config init`. It cannot be
	// removed and it is where the selection falls back to.
	DefaultLabel = "Default"

	profileExt = ".yaml"
)

var (
	ErrNoConfig       = errors.New("no harvest profile is active")
	ErrProfileMissing = errors.New("profile does not exist")
	ErrProfileExists  = errors.New("profile already exists")
)

// baseDir is swapped by tests; xdg resolves its roots once at start-up.
var baseDir = func() string { return xdg.ConfigHome }

// ConfigRoot is $XDG_CONFIG_HOME/bookharvest, or the platform equivalent.
func ConfigRoot() string {
	return filepath.Join(baseDir(), AppName)
}

// DataDir holds the run journal.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

func ConfigsDir() string {
	return filepath.Join(ConfigRoot(), "configs")
}

// CurrentLabelFile names the file holding the active profile label.
func CurrentLabelFile() string {
	return filepath.Join(ConfigRoot(), "current_config")
}

func ensureDirs() error {
	return os.MkdirAll(ConfigsDir(), 0755)
}

// profilePath maps a label to its file. Labels are plain names; anything
// that would escape the profiles directory is rejected.
func profilePath(label string) (string, error) {
	label = strings.TrimSpace(label)
	switch {
	case label == "":
		return "", errors.New("profile label cannot be empty")
	case strings.ContainsAny(label, `/\`), strings.HasPrefix(label, "."):
		return "", fmt.Errorf("profile label %q is not a plain name", label)
	}
	return filepath.Join(ConfigsDir(), label+profileExt), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func setActive(label string) error {
	return os.WriteFile(CurrentLabelFile(), []byte(label+"\n"), 0644)
}

func clearActive() error {
	err := os.Remove(CurrentLabelFile())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func CurrentLabel() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	b, err := os.ReadFile(CurrentLabelFile())
	if os.IsNotExist(err) {
		return "", ErrNoConfig
	}
	if err != nil {
		return "", err
	}

	label := strings.TrimSpace(string(b))
	if label == "" {
		return "", ErrNoConfig
	}
	return label, nil
}

// ActiveConfigPath is the file of the active profile. A selection that
// points at a deleted file counts as no selection.
func ActiveConfigPath() (string, error) {
	label, err := CurrentLabel()
	if err != nil {
		return "", err
	}

	path, err := profilePath(label)
	if err != nil {
		return "", err
	}
	if !exists(path) {
		return "", fmt.Errorf("%w: active profile %q has no file", ErrNoConfig, label)
	}
	return path, nil
}

// ConfigPathByLabel returns the profile file for label, which must exist.
func ConfigPathByLabel(label string) (string, error) {
	path, err := profilePath(label)
	if err != nil {
		return "", err
	}
	if !exists(path) {
		return "", fmt.Errorf("%q: %w", label, ErrProfileMissing)
	}
	return path, nil
}

type ConfigInfo struct {
	Label  string
	Path   string
	Active bool
}

func ListConfigs() ([]ConfigInfo, error) {
	if err := ensureDirs(); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(ConfigsDir(), "*"+profileExt))
	if err != nil {
		return nil, err
	}

	active, _ := CurrentLabel()
	out := make([]ConfigInfo, 0, len(matches))
	for _, path := range matches {
		label := strings.TrimSuffix(filepath.Base(path), profileExt)
		out = append(out, ConfigInfo{Label: label, Path: path, Active: label == active})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func SwitchConfig(label string) error {
	path, err := ConfigPathByLabel(label)
	if err != nil {
		return err
	}
	if err := ensureDirs(); err != nil {
		return err
	}
	return setActive(strings.TrimSuffix(filepath.Base(path), profileExt))
}

// AddConfig copies an existing YAML file in as a new profile. The file must
// decode as a harvest config.
func AddConfig(label, srcPath string) error {
	dst, err := newProfilePath(label)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	if _, err := loadYAML(srcPath); err != nil {
		return fmt.Errorf("%s is not a harvest profile: %w", srcPath, err)
	}

	return os.WriteFile(dst, raw, 0644)
}

// CreateEmptyConfig writes a profile holding the built-in defaults.
func CreateEmptyConfig(label string) (string, error) {
	path, err := newProfilePath(label)
	if err != nil {
		return "", err
	}
	if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}
	return path, nil
}

func newProfilePath(label string) (string, error) {
	path, err := profilePath(label)
	if err != nil {
		return "", err
	}
	if err := ensureDirs(); err != nil {
		return "", err
	}
	if exists(path) {
		return "", fmt.Errorf("%q: %w", label, ErrProfileExists)
	}
	return path, nil
}

func RenameConfig(oldLabel, newLabel string) error {
	oldPath, err := ConfigPathByLabel(oldLabel)
	if err != nil {
		return err
	}
	if oldLabel == DefaultLabel {
		return fmt.Errorf("the %s profile cannot be renamed", DefaultLabel)
	}
	newPath, err := newProfilePath(newLabel)
	if err != nil {
		return err
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}

	if active, _ := CurrentLabel(); active == oldLabel {
		return setActive(newLabel)
	}
	return nil
}

// RemoveConfig deletes a profile. When it was the active one the selection
// moves to the Default profile, or is cleared if there is none; the label now
// active ("" for none) is returned.
func RemoveConfig(label string) (string, error) {
	if label == DefaultLabel {
		return "", fmt.Errorf("the %s profile cannot be removed; use `%s config reset` instead", DefaultLabel, AppName)
	}
	path, err := ConfigPathByLabel(label)
	if err != nil {
		return "", err
	}

	active, _ := CurrentLabel()
	if err := os.Remove(path); err != nil {
		return active, err
	}
	if active != label {
		return active, nil
	}

	if def, err := profilePath(DefaultLabel); err == nil && exists(def) {
		return DefaultLabel, setActive(DefaultLabel)
	}
	return "", clearActive()
}

// InitDefaultConfig writes the Default profile unless it exists, and makes it
// active either way. os.ErrExist reports an existing file.
func InitDefaultConfig() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	path, err := profilePath(DefaultLabel)
	if err != nil {
		return "", err
	}

	var created error
	if exists(path) {
		created = os.ErrExist
	} else if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}

	if err := setActive(DefaultLabel); err != nil {
		return path, err
	}
	return path, created
}
