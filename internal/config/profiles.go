package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is a named connection preset: the host/port/character a user
// types once and then refers to by name from the CLI, plus a list of
// startup scripts that is saved and loaded with the profile but not sent
// to the daemon on connect.
type Profile struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Character      string   `yaml:"character,omitempty"`
	StartupScripts []string `yaml:"startup_scripts,omitempty"`
}

// ProfilesFile is the on-disk shape of ~/.smudgy/profiles.yaml: a set of
// named Profiles a player accumulates one MUD at a time.
type ProfilesFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadProfiles reads profiles.yaml from userConfigDir. A missing file
// is not an error; it yields an empty ProfilesFile.
func LoadProfiles(userConfigDir string) (*ProfilesFile, error) {
	path := filepath.Join(userConfigDir, "profiles.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ProfilesFile{Profiles: map[string]Profile{}}, nil
		}
		return nil, err
	}

	var pf ProfilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, err
	}
	if pf.Profiles == nil {
		pf.Profiles = map[string]Profile{}
	}
	return &pf, nil
}

// Save writes the ProfilesFile back to userConfigDir/profiles.yaml.
func (pf *ProfilesFile) Save(userConfigDir string) error {
	if err := os.MkdirAll(userConfigDir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(pf)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(userConfigDir, "profiles.yaml"), data, 0644)
}

// Set adds or replaces a named profile.
func (pf *ProfilesFile) Set(name string, p Profile) {
	if pf.Profiles == nil {
		pf.Profiles = map[string]Profile{}
	}
	pf.Profiles[name] = p
}
