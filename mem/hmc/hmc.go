// Package hmc builds the host controller and the device of a Hybrid Memory
// Cube. The host talks to the device through serial links; each link ends in
// a crossbar that serves a group of vaults.
package hmc

import (
	"github.com/sarchlab/memcfg/sim/naming"
	"github.com/sarchlab/memcfg/system"
)

// Default HMC organization.
const (
	NumSerialLinks = 4
	VaultsPerXbar  = 4
)

// Config describes the HMC organization.
type Config struct {
	NumSerialLinks int
	VaultsPerXbar  int
}

// DefaultConfig returns the organization of an HMC 2500 1x32 cube.
func DefaultConfig() Config {
	return Config{
		NumSerialLinks: NumSerialLinks,
		VaultsPerXbar:  VaultsPerXbar,
	}
}

// NumVaults returns the number of vaults the cube can hold.
func (c Config) NumVaults() int {
	return c.NumSerialLinks * c.VaultsPerXbar
}

// XbarOf returns the crossbar index that the vault controller i attaches to.
func (c Config) XbarOf(i int) int {
	return i / c.VaultsPerXbar
}

// ConfigHost builds the host controller: one serial link per device crossbar.
// The links are not connected to the system until Attach is called.
func ConfigHost(cfg Config, sys *system.System) *system.Subsystem {
	if cfg.NumSerialLinks <= 0 || cfg.VaultsPerXbar <= 0 {
		panic("HMC must have serial links and vaults")
	}

	host := &system.Subsystem{Name: naming.BuildName(sys.Name, "HMCHost")}

	for i := 0; i < cfg.NumSerialLinks; i++ {
		link := system.NewBridge(
			naming.BuildNameWithIndex(host.Name, "SerialLink", i), nil)
		host.Bridges = append(host.Bridges, link)
	}

	return host
}

// ConfigDev builds the cube: one crossbar per serial link of the host.
func ConfigDev(
	cfg Config,
	sys *system.System,
	host *system.Subsystem,
) *system.Subsystem {
	if len(host.Bridges) != cfg.NumSerialLinks {
		panic("HMC host and device disagree on the number of serial links")
	}

	dev := &system.Subsystem{Name: naming.BuildName(sys.Name, "HMCDev")}

	for i := 0; i < cfg.NumSerialLinks; i++ {
		xbar := system.NewCrossbar(
			naming.BuildNameWithIndex(dev.Name, "Xbar", i))
		dev.Xbars = append(dev.Xbars, xbar)
		host.Bridges[i].Downstream = xbar
	}

	return dev
}

// Attach connects the serial links of the host to the memory bus and makes the
// host and the device part of the system.
func Attach(sys *system.System, host, dev *system.Subsystem) error {
	for _, link := range host.Bridges {
		if _, err := sys.MemBus.ConnectMemSide(link); err != nil {
			return err
		}
	}

	sys.Bridges = append(sys.Bridges, host.Bridges...)
	sys.HMCHost = host
	sys.HMCDev = dev

	return nil
}
