// Package daydef loads the per-day ritual content (title, intro, prompts) shown with the
// user's current day.
package daydef

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

var ErrNotFound = errors.New("day definition not found")

// Source loads the definition of a single ritual day.
type Source interface {
	Load(ctx context.Context, day int) (*ritual.DayDefinition, error)
}

// ObjectName is the file name a day definition is stored under.
func ObjectName(day int, ext string) string {
	if ext == "" {
		ext = ".json"
	}
	return fmt.Sprintf("day-%d%s", day, ext)
}

// Decode parses a JSON or YAML document and validates it for the expected day.
func Decode(raw []byte, ext string, day int) (*ritual.DayDefinition, error) {
	var def ritual.DayDefinition
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("decode day %d: %w", day, err)
		}
	default:
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("decode day %d: %w", day, err)
		}
	}
	if def.Day == 0 {
		def.Day = day
	}
	if err := Validate(&def, day); err != nil {
		return nil, err
	}
	return &def, nil
}

func Validate(def *ritual.DayDefinition, day int) error {
	if def == nil {
		return fmt.Errorf("day %d: empty definition", day)
	}
	if def.Day != day {
		return fmt.Errorf("day %d: document declares day %d", day, def.Day)
	}
	prompts := make([]string, 0, len(def.Prompts))
	for _, p := range def.Prompts {
		if p = strings.TrimSpace(p); p != "" {
			prompts = append(prompts, p)
		}
	}
	if len(prompts) == 0 {
		return fmt.Errorf("day %d: prompts must not be empty", day)
	}
	def.Prompts = prompts
	return nil
}
