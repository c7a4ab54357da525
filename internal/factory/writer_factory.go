package factory

import (
	"flowtagger/internal/config"
	"flowtagger/internal/model"
	"fmt"
	"io"
	"sort"

	log "github.com/sirupsen/logrus"
)

// WriterFactory builds a writer from its definition. cfg gives access to shared settings
// such as paths.output.
type WriterFactory func(cfg *config.Config, def config.WriterDef) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Types returns the registered writer types in sorted order.
func Types() []string {
	types := make([]string, 0, len(registry))
	for name := range registry {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// Create builds every enabled writer in cfg, in configuration order.
func Create(cfg *config.Config) ([]model.Writer, error) {
	var writers []model.Writer

	for i, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		log.WithField("component", "factory").Debugf("Creating writer of type '%s'", def.Type)

		factory, ok := registry[def.Type]
		if !ok {
			closeAll(writers)
			return nil, fmt.Errorf("writers[%d]: unknown writer type '%s'", i, def.Type)
		}

		writer, err := factory(cfg, def)
		if err != nil {
			closeAll(writers)
			return nil, fmt.Errorf("error creating writer type '%s': %w", def.Type, err)
		}
		writers = append(writers, writer)
	}

	return writers, nil
}

// closeAll releases writers built before a later one failed.
func closeAll(writers []model.Writer) {
	for _, w := range writers {
		c, ok := w.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			log.WithField("component", "factory").WithError(err).Warnf("Failed to close writer '%s'", w.Name())
		}
	}
}
