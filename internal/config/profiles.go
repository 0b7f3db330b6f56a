package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrProfileNotFound = errors.New("harvest profile not found")

// Profile is a named search preset: which section to query, with which term,
// and which terms a case block must contain to be kept.
type Profile struct {
	Name          string   `yaml:"name"`
	SectionCode   string   `yaml:"section_code"`
	QueryTerm     string   `yaml:"query_term"`
	RequiredTerms []string `yaml:"required_terms"`
}

// ProfileFile is the structure of HARVEST_PROFILE_FILE.
type ProfileFile struct {
	Searches []Profile `yaml:"searches"`
}

func LoadProfiles(path string) (*ProfileFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}
	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profile file: %w", err)
	}

	seen := make(map[string]bool, len(file.Searches))
	for i, p := range file.Searches {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("profile #%d: name is required", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("profile %q: defined twice", name)
		}
		seen[name] = true
		file.Searches[i].Name = name
	}
	return &file, nil
}

func (f *ProfileFile) Profile(name string) (Profile, error) {
	if f != nil {
		for _, p := range f.Searches {
			if p.Name == name {
				return p, nil
			}
		}
	}
	return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// Apply overlays non-empty profile values onto the environment config.
func (p Profile) Apply(cfg Config) Config {
	out := cfg
	if s := strings.TrimSpace(p.SectionCode); s != "" {
		out.SectionCode = s
	}
	if s := strings.TrimSpace(p.QueryTerm); s != "" {
		out.QueryTerm = s
	}
	if len(p.RequiredTerms) > 0 {
		out.RequiredTerms = append([]string(nil), p.RequiredTerms...)
	}
	return out
}
