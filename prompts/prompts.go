// Package prompts holds the model prompts. Defaults are embedded; a TOML file can
// override any of them.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed defaults.toml
var defaultsTOML []byte

// Prompt is a template and the sampling temperature it is sent with
type Prompt struct {
	Prompt      string  `toml:"prompt"`
	Temperature float32 `toml:"temperature"`
}

// Prompts groups every prompt the service sends
type Prompts struct {
	Extraction  Prompt `toml:"extraction"`
	Explanation Prompt `toml:"explanation"`
	Translation Prompt `toml:"translation"`
}

// Default returns the embedded prompts
func Default() *Prompts {
	var p Prompts
	if err := toml.Unmarshal(defaultsTOML, &p); err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}
	return &p
}

// Load returns the embedded prompts overlaid with the TOML file at path.
// Keys missing from the file keep their defaults; an empty path returns the defaults.
func Load(path string) (*Prompts, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file '%s': %w", path, err)
	}
	if err := toml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts TOML: %w", err)
	}
	return p, nil
}

// Render substitutes {{key}} placeholders in the prompt
func (p Prompt) Render(values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(p.Prompt))
}
