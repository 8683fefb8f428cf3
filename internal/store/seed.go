package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sidharthv96/caprover/pkg/logger"
)

// SeedFile is the YAML shape accepted by ImportSeed.
type SeedFile struct {
	Apps []App `yaml:"apps"`
}

// ImportSeed loads app definitions from a YAML file into the store,
// replacing any existing definition with the same name.
func ImportSeed(s Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	for i := range seed.Apps {
		app := seed.Apps[i]
		if app.Name == "" {
			return 0, fmt.Errorf("seed file %s: app at index %d has no name", path, i)
		}
		if err := s.SaveApp(&app); err != nil {
			return 0, err
		}
	}

	logger.Info("App definitions imported", "file", path, "count", len(seed.Apps))
	return len(seed.Apps), nil
}
