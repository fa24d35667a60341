// Package source provides event sources for the catalog.
package source

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/randommarket/internal/domain/model"
)

// document is the on-disk shape: a top-level "events" list.
type document struct {
	Events []model.Event `koanf:"events"`
}

// File reads events from a YAML or JSON file. The file is read again on
// every call, so edits show up on the next catalog refresh.
type File struct {
	path string
}

// NewFile returns a source reading path.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return &File{path: path}, nil
}

// Path is the file being read.
func (f *File) Path() string { return f.path }

// Events loads and decodes the file. JSON is valid YAML, so one parser
// serves both formats.
func (f *File) Events(ctx context.Context) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(f.path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadEvents, f.path, err)
	}
	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadEvents, f.path, err)
	}
	return doc.Events, nil
}
