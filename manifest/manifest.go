// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

// Package manifest loads redirects and rewrites declared in a YAML or TOML file, and contributes them to the
// router on every rebuild.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/tigerwill90/waypoint"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a manifest file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var ErrUnknownFormat = errors.New("unknown manifest format")

// File is a decoded manifest.
type File struct {
	Redirects []Redirect `yaml:"redirects" toml:"redirects" validate:"dive"`
	Rewrites  []Rewrite  `yaml:"rewrites" toml:"rewrites" validate:"dive"`
}

// Redirect declares a redirect from a route pattern to an URL. Method defaults to GET and Code to 301.
type Redirect struct {
	Method string `yaml:"method" toml:"method" validate:"omitempty,oneof=GET POST PUT DELETE"`
	From   string `yaml:"from" toml:"from" validate:"required,startswith=/"`
	To     string `yaml:"to" toml:"to" validate:"required"`
	Name   string `yaml:"name" toml:"name"`
	Code   int    `yaml:"code" toml:"code" validate:"omitempty,min=300,max=308"`
}

// Rewrite declares a rewrite from a route pattern to a concrete registered path. Method defaults to GET.
type Rewrite struct {
	Method    string `yaml:"method" toml:"method" validate:"omitempty,oneof=GET POST PUT DELETE"`
	From      string `yaml:"from" toml:"from" validate:"required,startswith=/"`
	To        string `yaml:"to" toml:"to" validate:"required,startswith=/"`
	Name      string `yaml:"name" toml:"name"`
	ContentID string `yaml:"contentId" toml:"contentId"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormatOf returns the format matching the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads and parses the manifest at path. The format is chosen by extension.
func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
func Parse(data []byte, format Format) (*File, error) {
	f := new(File)
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), f)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown field %s", undecoded[0])
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	if err := validate.Struct(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Collector returns a [waypoint.CollectorFunc] adding every entry of f. Entries whose route is already registered
// are skipped, so routes contributed earlier (built-in routes and collectors of higher priority) take precedence.
func Collector(f *File, logger *slog.Logger) waypoint.CollectorFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, b *waypoint.Builder) (*waypoint.Builder, error) {
		if err := apply(b, f, logger); err != nil {
			return nil, err
		}
		return b, nil
	}
}

// FileCollector returns a [waypoint.CollectorFunc] reading the manifest at path on every rebuild. A manifest that
// cannot be loaded aborts the rebuild, the live router is kept.
func FileCollector(path string, logger *slog.Logger) waypoint.CollectorFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, b *waypoint.Builder) (*waypoint.Builder, error) {
		f, err := Load(path)
		if err != nil {
			return nil, err
		}
		if err = apply(b, f, logger); err != nil {
			return nil, err
		}
		return b, nil
	}
}

func apply(b *waypoint.Builder, f *File, logger *slog.Logger) error {
	for _, r := range f.Redirects {
		method := methodOrDefault(r.Method)
		if b.Has(method, r.From) {
			logger.Debug("redirect skipped", slog.String("method", method), slog.String("route", r.From))
			continue
		}
		var opts []waypoint.RouteOption
		if r.Code != 0 {
			opts = append(opts, waypoint.WithRedirectCode(r.Code))
		}
		if r.Name != "" {
			opts = append(opts, waypoint.WithName(r.Name))
		}
		if err := b.AddRedirect(method, r.From, r.To, opts...); err != nil {
			return fmt.Errorf("redirect %s: %w", r.From, err)
		}
	}

	for _, r := range f.Rewrites {
		method := methodOrDefault(r.Method)
		if b.Has(method, r.From) {
			logger.Debug("rewrite skipped", slog.String("method", method), slog.String("route", r.From))
			continue
		}
		var opts []waypoint.RouteOption
		if r.Name != "" {
			opts = append(opts, waypoint.WithName(r.Name))
		}
		if r.ContentID != "" {
			opts = append(opts, waypoint.WithContentID(r.ContentID))
		}
		if err := b.AddRewrite(method, r.From, r.To, opts...); err != nil {
			return fmt.Errorf("rewrite %s: %w", r.From, err)
		}
	}
	return nil
}

func methodOrDefault(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return method
}
