package daydef

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

// Dir reads day-<n>.json, day-<n>.yaml or day-<n>.yml from a local directory.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) Load(ctx context.Context, day int) (*ritual.DayDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		raw, err := os.ReadFile(filepath.Join(d.root, ObjectName(day, ext)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return Decode(raw, ext, day)
	}
	return nil, ErrNotFound
}
