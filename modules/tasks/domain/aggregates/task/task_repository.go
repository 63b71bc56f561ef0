package task

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

type ImportMode string

const (
	// ImportAppend adds the batch to the existing tasks.
	ImportAppend ImportMode = "append"
	// ImportOverwrite replaces every stored task with the batch.
	ImportOverwrite ImportMode = "overwrite"
)

var ErrInvalidImportMode = errors.New("invalid import mode")

func ParseImportMode(v string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(v))) {
	case ImportAppend:
		return ImportAppend, nil
	case ImportOverwrite:
		return ImportOverwrite, nil
	default:
		return "", errors.Wrapf(ErrInvalidImportMode, "%q", v)
	}
}

type Repository interface {
	Count(ctx context.Context) (int64, error)
	// ApplyBatch stores tasks atomically; on error nothing is applied.
	ApplyBatch(ctx context.Context, tasks []Task, mode ImportMode) error
}
