// Package source defines frame sources and the registry that builds them
// from configuration.
package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/mitchellh/mapstructure"

	"firestige.xyz/arpreflect/internal/config"
	"firestige.xyz/arpreflect/internal/core"
)

// Source yields raw link-layer frames. ReadPacketData returns io.EOF when a
// finite source is exhausted. The returned slice is owned by the caller.
type Source interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
	Close() error
}

// ErrTimeout is returned by live sources when no frame arrived within their
// poll interval. It is not terminal.
var ErrTimeout = errors.New("source: read timeout")

// Constructor builds a source from its free-form options.
type Constructor func(options map[string]interface{}) (Source, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Constructor)
)

// Register makes a source type available to Open.
func Register(name string, constructor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = constructor
}

// Names returns the registered source types.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the source selected by cfg.Type.
func Open(cfg config.SourceConfig) (Source, error) {
	mu.RLock()
	constructor, ok := registry[cfg.Type]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", core.ErrSourceNotFound, cfg.Type, Names())
	}

	s, err := constructor(cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", cfg.Type, err)
	}
	return s, nil
}

// DecodeOptions decodes free-form options into out, accepting strings for
// numbers, booleans and durations.
func DecodeOptions(options map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	return nil
}
