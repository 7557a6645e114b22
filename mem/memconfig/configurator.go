package memconfig

import (
	"time"

	"github.com/sarchlab/memcfg/mem/hmc"
	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/mem/memintf"
	"github.com/sarchlab/memcfg/sim/hooking"
	"github.com/sarchlab/memcfg/sim/id"
	"github.com/sarchlab/memcfg/sim/naming"
	"github.com/sarchlab/memcfg/system"
)

// elasticTraceLatency is the latency of the simple memory when elastic traces
// are enabled.
const elasticTraceLatency = time.Nanosecond

// Result summarizes what a configuration added to the system.
type Result struct {
	// Subsystem is where the controllers went: the system itself or the HMC
	// device.
	Subsystem *system.Subsystem
	MemCtrls  []*MemCtrl

	// Channels lists every planned channel in creation order.
	Channels []ChannelDescriptor

	// ExternalMemory is set instead of MemCtrls when an external memory is
	// used.
	ExternalMemory *system.ExternalSlave

	PIMProcessors []*system.PIMProcessor
}

// A Configurator creates memory controllers from options and attaches them to
// a system.
type Configurator struct {
	hooking.HookableBase

	name    string
	options Options
	catalog *memintf.Catalog
	hmc     hmc.Config
	idGen   id.IDGenerator
}

// Name returns the name of the configurator.
func (c *Configurator) Name() string {
	return c.name
}

// Options returns the options the configurator applies.
func (c *Configurator) Options() Options {
	return c.options
}

type memType struct {
	name string
	kind memintf.Kind
}

// plan is everything a configuration creates, before any of it is attached to
// the system.
type plan struct {
	sub      *system.Subsystem
	xbars    []*system.Crossbar
	hmcHost  *system.Subsystem
	ctrls    []*MemCtrl
	channels []ChannelDescriptor
	pims     []*system.PIMProcessor
}

// Configure creates the memory controllers and attaches them to the system.
// On error, the system is left untouched.
func (c *Configurator) Configure(sys *system.System) (*Result, error) {
	if sys == nil {
		panic("system must not be nil")
	}

	if err := c.options.Validate(); err != nil {
		return nil, err
	}

	if err := sys.Validate(); err != nil {
		return nil, wrapConfigError("system", err, "invalid system")
	}

	p := &plan{sub: &sys.Subsystem, xbars: []*system.Crossbar{sys.MemBus}}
	if c.options.UsesHMC() {
		p.hmcHost = hmc.ConfigHost(c.hmc, sys)
		p.sub = hmc.ConfigDev(c.hmc, sys, p.hmcHost)
		p.xbars = p.sub.Xbars
	}

	// The TLM slave sits on the memory bus even when an HMC is built.
	if c.options.TLMMemory != "" {
		if err := c.attachHMC(sys, p); err != nil {
			return nil, err
		}

		return c.connectExternal(sys, &sys.Subsystem, sys.MemBus,
			"tlm_slave", c.options.TLMMemory)
	}

	if c.options.ExternalMemorySystem != "" {
		if err := c.attachHMC(sys, p); err != nil {
			return nil, err
		}

		return c.connectExternal(sys, p.sub, p.xbars[0],
			c.options.ExternalMemorySystem, "init_mem0")
	}

	if err := c.createCtrls(sys, p); err != nil {
		return nil, err
	}

	if err := c.placePIMProcessors(sys, p); err != nil {
		return nil, err
	}

	if err := c.commit(sys, p); err != nil {
		return nil, err
	}

	return &Result{
		Subsystem:     p.sub,
		MemCtrls:      p.ctrls,
		Channels:      p.channels,
		PIMProcessors: p.pims,
	}, nil
}

func (c *Configurator) attachHMC(sys *system.System, p *plan) error {
	if p.hmcHost == nil {
		return nil
	}

	if err := hmc.Attach(sys, p.hmcHost, p.sub); err != nil {
		return wrapConfigError("hmc", err, "cannot attach HMC")
	}

	return nil
}

func (c *Configurator) connectExternal(
	sys *system.System,
	sub *system.Subsystem,
	xbar *system.Crossbar,
	portType, portData string,
) (*Result, error) {
	ext := system.NewExternalSlave(
		naming.BuildName(sub.Name, "ExternalMemory"),
		portType, portData, sys.MemRanges)

	if _, err := xbar.ConnectMemSide(ext); err != nil {
		return nil, wrapConfigError("external", err,
			"cannot connect external memory")
	}

	sub.ExternalMemory = ext
	sys.Workload.AddrCheck = false

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosExternalMemory,
		Item:   ext,
		Detail: portType,
	})

	return &Result{Subsystem: sub, ExternalMemory: ext}, nil
}

func (c *Configurator) lookupTypes() (dram, nvm *memType, err error) {
	o := c.options

	if o.MemType != "" {
		k, err := c.catalog.Get(o.MemType)
		if err != nil {
			return nil, nil, wrapConfigError("options", err, "mem-type")
		}

		if o.DRAMAddrMapping != "" {
			k = memintf.WithAddrMapping(k,
				memintf.ParseAddrMapping(o.DRAMAddrMapping))
		}

		dram = &memType{name: o.MemType, kind: k}
	}

	if o.NVMType != "" {
		k, err := c.catalog.Get(o.NVMType)
		if err != nil {
			return nil, nil, wrapConfigError("options", err, "nvm-type")
		}

		if o.NVMAddrMapping != "" {
			k = memintf.WithAddrMapping(k,
				memintf.ParseAddrMapping(o.NVMAddrMapping))
		}

		nvm = &memType{name: o.NVMType, kind: k}
	}

	if o.ElasticTraceEn {
		if dram == nil {
			return nil, nil, configErrorf("options",
				"when elastic trace is enabled, configure mem-type as "+
					"simple-mem")
		}

		if _, ok := dram.kind.(memintf.Simple); !ok {
			return nil, nil, configErrorf("options",
				"when elastic trace is enabled, configure mem-type as "+
					"simple-mem, got %s", dram.name)
		}
	}

	return dram, nvm, nil
}

// intlvSize returns the interleaving granularity. Channels interleave at 128
// bytes by default, or at the cache line if it is larger.
func (c *Configurator) intlvSize(sys *system.System) uint64 {
	return max(c.options.MemChannelsIntlv, sys.CacheLineSize)
}

func (c *Configurator) createCtrls(sys *system.System, p *plan) error {
	dram, nvm, err := c.lookupTypes()
	if err != nil {
		return err
	}

	planner, err := NewPlanner(c.options.MemChannels, c.intlvSize(sys),
		c.options.XORLowBit)
	if err != nil {
		return err
	}

	var nvmIntfs []*Interface

	for k, r := range sys.MemRanges {
		// Ranges alternate between DRAM and NVM when both are
		// configured, starting with DRAM.
		rangeIter := k + 1
		useDRAM := dram != nil && (nvm == nil || rangeIter%2 != 0)

		for i := 0; i < planner.NumChannels(); i++ {
			if useDRAM {
				intf, err := c.createInterface(planner, dram, r, k, i)
				if err != nil {
					return err
				}

				c.applyDRAMOptions(intf)
				p.ctrls = append(p.ctrls,
					c.newCtrl(p, CtrlKindMem, intf, nil))

				continue
			}

			intf, err := c.createInterface(planner, nvm, r, k, i)
			if err != nil {
				return err
			}

			if _, ok := intf.Kind.(memintf.NVM); ok && c.options.NVMRanks > 0 {
				intf.RanksPerChannel = c.options.NVMRanks
			}

			if c.options.HybridChannel {
				nvmIntfs = append(nvmIntfs, intf)
				continue
			}

			p.ctrls = append(p.ctrls, c.newCtrl(p, CtrlKindHetero, nil, intf))
		}
	}

	return c.attachHybridNVM(p, nvmIntfs)
}

func (c *Configurator) createInterface(
	planner *Planner,
	t *memType,
	r mem.AddrRange,
	rangeIndex, channel int,
) (*Interface, error) {
	d, src, err := planner.planChannel(r, channel, t.kind)
	if err != nil {
		return nil, err
	}

	if src == LowBitUnknownMapping && channel == 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosUnknownAddrMapping,
			Item:   t.name,
			Detail: t.kind.Mapping().String(),
		})
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosChannelPlanned,
		Item:   d,
		Detail: ChannelPlannedDetail{
			TypeName:   t.name,
			Tech:       t.kind.Tech(),
			RangeIndex: rangeIndex,
			Source:     src,
		},
	})

	return newInterface(t.name, t.kind, d), nil
}

func (c *Configurator) applyDRAMOptions(intf *Interface) {
	if _, ok := intf.Kind.(memintf.DRAM); ok {
		if c.options.MemRanks > 0 {
			intf.RanksPerChannel = c.options.MemRanks
		}

		intf.EnablePowerdown = c.options.DRAMPowerdown
	}

	if c.options.ElasticTraceEn {
		intf.Latency = elasticTraceLatency
	}
}

func (c *Configurator) newCtrl(
	p *plan,
	kind CtrlKind,
	dram, nvm *Interface,
) *MemCtrl {
	name := naming.BuildNameWithIndex(p.sub.Name, "MemCtrl", len(p.ctrls))
	ctrl := newMemCtrl(name, c.idGen.Generate(), kind)
	ctrl.DRAM = dram
	ctrl.NVM = nvm

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosCtrlCreated,
		Item:   ctrl,
	})

	return ctrl
}

// attachHybridNVM hooks up the NVM interfaces that share a channel with a DRAM
// controller, pairing them by position.
func (c *Configurator) attachHybridNVM(p *plan, nvmIntfs []*Interface) error {
	if len(nvmIntfs) > len(p.ctrls) {
		return configErrorf("hybrid",
			"%d NVM interfaces but only %d controllers to share",
			len(nvmIntfs), len(p.ctrls))
	}

	for i, intf := range nvmIntfs {
		p.ctrls[i].AttachNVM(intf)
	}

	for _, ctrl := range p.ctrls {
		if ctrl.DRAM != nil || ctrl.NVM != nil {
			p.channels = append(p.channels, ctrlChannels(ctrl)...)
		}
	}

	return nil
}

func ctrlChannels(ctrl *MemCtrl) []ChannelDescriptor {
	var ds []ChannelDescriptor

	if ctrl.DRAM != nil {
		ds = append(ds, ctrl.DRAM.Channel)
	}

	if ctrl.NVM != nil {
		ds = append(ds, ctrl.NVM.Channel)
	}

	return ds
}

func (c *Configurator) placePIMProcessors(sys *system.System, p *plan) error {
	if !c.options.EnablePIM || c.options.PIMType == PIMTypeKernel {
		return nil
	}

	for i := 0; i < c.options.NumPIMProcessors; i++ {
		name := naming.BuildNameWithIndex(sys.Name, "PIMCPU", i)
		p.pims = append(p.pims, system.NewPIMProcessor(name, i))
	}

	return nil
}

// commit attaches the planned components to the system. Everything that can
// fail is checked before the system is modified.
func (c *Configurator) commit(sys *system.System, p *plan) error {
	if err := c.checkConnectable(sys, p); err != nil {
		return err
	}

	if err := c.attachHMC(sys, p); err != nil {
		return err
	}

	for i, ctrl := range p.ctrls {
		xbar := p.xbars[0]
		if p.hmcHost != nil {
			xbar = p.xbars[c.hmc.XbarOf(i)]

			if ctrl.DRAM != nil {
				ctrl.DRAM.DeviceSize = c.options.HMCDevVaultSize
			}
		}

		port, err := xbar.ConnectMemSide(ctrl)
		if err != nil {
			return wrapConfigError("connect", err, "%s", ctrl.Name())
		}

		ctrl.Xbar = xbar.Name()
		ctrl.Port = port

		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosCtrlConnected,
			Item:   ctrl,
			Detail: xbar.MemSidePortName(port),
		})
	}

	p.sub.MemCtrls = make([]system.MemSidePeer, 0, len(p.ctrls))
	for _, ctrl := range p.ctrls {
		p.sub.MemCtrls = append(p.sub.MemCtrls, ctrl)
	}

	if len(p.pims) > 0 {
		sys.PIMType = c.options.PIMType
		for _, pim := range p.pims {
			pim.ICachePort = sys.MemBus.ConnectCPUSide(pim)
			pim.DCachePort = sys.MemBus.ConnectCPUSide(pim)

			c.InvokeHook(hooking.HookCtx{
				Domain: c,
				Pos:    HookPosPIMProcessor,
				Item:   pim,
			})
		}

		sys.PIMProcessors = append(sys.PIMProcessors, p.pims...)
	} else if c.options.EnablePIM {
		sys.PIMType = c.options.PIMType
	}

	return nil
}

func (c *Configurator) checkConnectable(sys *system.System, p *plan) error {
	if p.hmcHost != nil && len(p.ctrls) > len(p.xbars)*c.hmc.VaultsPerXbar {
		return configErrorf("hmc", "%d controllers do not fit in %d vaults",
			len(p.ctrls), len(p.xbars)*c.hmc.VaultsPerXbar)
	}

	index := mem.NewRangeIndex[string]()

	for _, r := range sys.MemBus.AddrRanges() {
		if err := index.Insert(r, "existing"); err != nil {
			return wrapConfigError("connect", err, "memory bus")
		}
	}

	for _, ctrl := range p.ctrls {
		for _, r := range ctrl.AddrRanges() {
			if err := index.Insert(r, ctrl.Name()); err != nil {
				return wrapConfigError("connect", err, "%s", ctrl.Name())
			}
		}
	}

	return nil
}
