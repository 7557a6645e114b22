package memconfig

import (
	"github.com/sarchlab/memcfg/mem/hmc"
	"github.com/sarchlab/memcfg/mem/memintf"
	"github.com/sarchlab/memcfg/sim/hooking"
	"github.com/sarchlab/memcfg/sim/id"
)

// Builder can build configurators.
type Builder struct {
	options Options
	catalog *memintf.Catalog
	hmc     hmc.Config
	idGen   id.IDGenerator
	hooks   []hooking.Hook
}

// MakeBuilder creates a builder with default configuration.
func MakeBuilder() Builder {
	return Builder{
		options: DefaultOptions(),
		hmc:     hmc.DefaultConfig(),
	}
}

// WithOptions sets the options that the configurator applies.
func (b Builder) WithOptions(o Options) Builder {
	b.options = o
	return b
}

// WithCatalog sets the catalog that memory type names are looked up in. The
// default catalog is used if not set.
func (b Builder) WithCatalog(c *memintf.Catalog) Builder {
	b.catalog = c
	return b
}

// WithHMCConfig sets the organization of the HMC built for the HMC memory
// type.
func (b Builder) WithHMCConfig(c hmc.Config) Builder {
	b.hmc = c
	return b
}

// WithIDGenerator sets the generator of controller IDs. By default each
// configurator numbers its controllers from 1.
func (b Builder) WithIDGenerator(g id.IDGenerator) Builder {
	b.idGen = g
	return b
}

// WithAdditionalHooks adds a hook to the configurator.
func (b Builder) WithAdditionalHooks(h hooking.Hook) Builder {
	hooks := make([]hooking.Hook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, h)

	return b
}

// Build creates a new Configurator.
func (b Builder) Build(name string) *Configurator {
	c := &Configurator{
		name:    name,
		options: b.options,
		catalog: b.catalog,
		hmc:     b.hmc,
		idGen:   b.idGen,
	}

	if c.catalog == nil {
		c.catalog = memintf.DefaultCatalog()
	}

	if c.idGen == nil {
		c.idGen = id.NewSequentialIDGenerator()
	}

	for _, h := range b.hooks {
		c.AcceptHook(h)
	}

	return c
}
