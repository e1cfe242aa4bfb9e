package persona

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a persona override from a YAML file. Empty fields keep the
// values from Seed.
func Load(path string) (Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, errors.Wrapf(err, "read persona file %s", path)
	}
	return Parse(raw)
}

// Parse decodes a YAML persona and merges it over Seed.
func Parse(raw []byte) (Persona, error) {
	var override Persona
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Persona{}, errors.Wrap(err, "decode persona yaml")
	}

	p := Seed()
	mergeString(&p.ID, override.ID)
	mergeString(&p.Name, override.Name)
	mergeString(&p.Title, override.Title)
	mergeString(&p.Tone, override.Tone)
	mergeString(&p.OpeningLine, override.OpeningLine)
	mergeString(&p.SystemPrompt, override.SystemPrompt)
	mergeString(&p.Description, override.Description)
	if len(override.Traits) > 0 {
		p.Traits = override.Traits
	}
	if len(override.Guidelines) > 0 {
		p.Guidelines = override.Guidelines
	}

	if strings.TrimSpace(p.SystemPrompt) == "" {
		return Persona{}, errors.New("persona system prompt must not be empty")
	}
	return p, nil
}

// Resolve returns the persona at path, or Seed when path is empty.
func Resolve(path string) (Persona, error) {
	if strings.TrimSpace(path) == "" {
		return Seed(), nil
	}
	return Load(path)
}

func mergeString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}
