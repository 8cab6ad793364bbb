package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sites is the station list processed by the metarcsv command.
type Sites struct {
	OutputDir string `yaml:"output_dir"`
	Sites     []Site `yaml:"sites"`
}

// Site pairs a station code with a file holding its captured page text.
type Site struct {
	Station string `yaml:"station"`
	Input   string `yaml:"input"`
}

// LoadSites reads and validates a YAML sites file. Relative input paths are
// resolved against the file's directory.
func LoadSites(path string) (*Sites, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided path is expected
	if err != nil {
		return nil, fmt.Errorf("reading sites file: %w", err)
	}
	return ParseSites(data, filepath.Dir(path))
}

// ParseSites parses sites YAML, resolving relative inputs against baseDir.
func ParseSites(data []byte, baseDir string) (*Sites, error) {
	var s Sites
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing sites file: %w", err)
	}
	if s.OutputDir == "" {
		s.OutputDir = "."
	}

	for i := range s.Sites {
		site := &s.Sites[i]
		site.Station = strings.ToUpper(strings.TrimSpace(site.Station))
		if site.Input != "" && !filepath.IsAbs(site.Input) && baseDir != "" {
			site.Input = filepath.Join(baseDir, site.Input)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every site names a station and an input.
func (s *Sites) Validate() error {
	if len(s.Sites) == 0 {
		return errors.New("at least one site is required")
	}
	var errs []error
	for i, site := range s.Sites {
		if site.Station == "" {
			errs = append(errs, fmt.Errorf("sites[%d]: station is required", i))
		} else if !validStation(site.Station) {
			errs = append(errs, fmt.Errorf("sites[%d]: station %q must be alphanumeric", i, site.Station))
		}
		if site.Input == "" {
			errs = append(errs, fmt.Errorf("sites[%d]: input is required", i))
		}
	}
	return errors.Join(errs...)
}

func validStation(station string) bool {
	for _, r := range station {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return station != ""
}
