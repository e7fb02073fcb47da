// Package questionbank loads statement text for the self-check from YAML so
// the wording can be edited or translated without a rebuild.
package questionbank

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ddll/leadercheck/internal/selfcheck"
)

// File is the on-disk shape:
//
//	reactive:
//	  - "I often defer decisions ..."
//	strategic:
//	  - "I take initiative ..."
type File struct {
	Reactive  []string `yaml:"reactive"`
	Strategic []string `yaml:"strategic"`
}

// Load returns the built-in bank when path is empty.
func Load(path string) (*selfcheck.Bank, error) {
	if path == "" {
		return selfcheck.DefaultBank(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*selfcheck.Bank, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing question bank: %w", err)
	}

	b, err := selfcheck.NewBank(f.Reactive, f.Strategic)
	if err != nil {
		return nil, fmt.Errorf("invalid question bank: %w", err)
	}
	return b, nil
}
