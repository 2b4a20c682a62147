// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package segmentation splits text into words for languages that do not
// separate them with spaces. Segmenters are plugins registered by name;
// a Chain applies the loaded ones in order.
package segmentation

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownPlugin       = errors.New("segmentation: unknown plugin")
	ErrPluginDisabled      = errors.New("segmentation: plugin is not functional")
	ErrInvalidSegmentation = errors.New("segmentation: text modified beyond inserting spaces")
)

// Segmenter is implemented by every plugin.
type Segmenter interface {
	// SegmentText segments a post. The result must be src with space
	// characters inserted and nothing else changed.
	SegmentText(src string) (string, error)

	// SegmentQuery segments a search query. Arbitrary rewriting is
	// allowed.
	SegmentQuery(src string) (string, error)
}

// Factory creates a plugin instance from its argument string. A returned
// error marks the plugin as not functional.
type Factory func(args string) (Segmenter, error)

var (
	pluginsMu sync.RWMutex
	plugins   = make(map[string]Factory)
)

// Register makes a plugin available to Load. Registering the same name
// twice panics.
func Register(name string, factory Factory) {
	pluginsMu.Lock()
	defer pluginsMu.Unlock()

	if factory == nil {
		panic("segmentation: nil factory for " + name)
	}
	if _, dup := plugins[name]; dup {
		panic("segmentation: plugin registered twice: " + name)
	}
	plugins[name] = factory
}

// Plugins returns the registered plugin names, sorted.
func Plugins() []string {
	pluginsMu.RLock()
	defer pluginsMu.RUnlock()

	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load creates the plugin registered as name.
func Load(name, args string) (Segmenter, error) {
	pluginsMu.RLock()
	factory, ok := plugins[name]
	pluginsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	s, err := factory(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s(%q): %v", ErrPluginDisabled, name, args, err)
	}
	return s, nil
}

// Spec names a plugin and its arguments.
type Spec struct {
	Name string `yaml:"name" toml:"name"`
	Args string `yaml:"args" toml:"args"`
}

// Chain runs segmenters one after another, each on the previous output.
// An empty chain returns its input unchanged.
type Chain []Segmenter

// LoadChain loads the configured plugins in order. Plugins that fail to
// load are logged and left out.
func LoadChain(specs []Spec, log zerolog.Logger) Chain {
	chain := make(Chain, 0, len(specs))
	for _, spec := range specs {
		s, err := Load(spec.Name, spec.Args)
		if err != nil {
			log.Error().Err(err).Str("plugin", spec.Name).Msg("segmenter disabled")
			continue
		}
		log.Info().Str("plugin", spec.Name).Msg("segmenter loaded")
		chain = append(chain, s)
	}
	return chain
}

// SegmentText runs every segmenter and checks each one only inserted
// spaces.
func (c Chain) SegmentText(src string) (string, error) {
	text := src
	for i, s := range c {
		out, err := s.SegmentText(text)
		if err != nil {
			return "", fmt.Errorf("segmentation: segmenter %d: %w", i, err)
		}
		if err := VerifyTextSegmentation(text, out); err != nil {
			return "", fmt.Errorf("segmentation: segmenter %d: %w", i, err)
		}
		text = out
	}
	return text, nil
}

func (c Chain) SegmentQuery(src string) (string, error) {
	text := src
	for i, s := range c {
		out, err := s.SegmentQuery(text)
		if err != nil {
			return "", fmt.Errorf("segmentation: segmenter %d: %w", i, err)
		}
		text = out
	}
	return text, nil
}

// VerifyTextSegmentation reports whether segmented is src with only
// space characters inserted.
func VerifyTextSegmentation(src, segmented string) error {
	_, err := Positions(src, segmented)
	return err
}

// Positions returns the byte offsets in src where segmented inserts
// spaces, one entry per inserted space. It fails with
// ErrInvalidSegmentation when segmented changes anything else.
func Positions(src, segmented string) ([]int, error) {
	var positions []int
	i := 0
	for j := 0; j < len(segmented); {
		r, size := utf8.DecodeRuneInString(segmented[j:])
		if i < len(src) {
			sr, ssize := utf8.DecodeRuneInString(src[i:])
			if sr == r {
				i += ssize
				j += size
				continue
			}
		}
		if !unicode.IsSpace(r) {
			return nil, fmt.Errorf("%w: unexpected %q at byte %d", ErrInvalidSegmentation, r, j)
		}
		positions = append(positions, i)
		j += size
	}
	if i != len(src) {
		return nil, fmt.Errorf("%w: %d bytes of the source dropped", ErrInvalidSegmentation, len(src)-i)
	}
	return slices.Clip(positions), nil
}
