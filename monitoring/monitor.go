// Package monitoring serves a configured system over HTTP so that its
// components, ranges, and routing can be inspected.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/monitoring/web"
	"github.com/sarchlab/memcfg/sim/hooking"
	"github.com/sarchlab/memcfg/system"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns a configured system into a web server.
type Monitor struct {
	sys        *system.System
	components []hooking.Named
	portNumber int

	profileDuration time.Duration
	listener        net.Listener
}

// NewMonitor creates a Monitor for a configured system and registers all the
// components of the system.
func NewMonitor(sys *system.System) *Monitor {
	if sys == nil {
		panic("system must not be nil")
	}

	m := &Monitor{
		sys:             sys,
		profileDuration: time.Second,
	}

	m.registerSystem()

	return m
}

// WithPortNumber sets the port number of the monitor. Privileged ports are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		slog.Warn("port number is not allowed for the monitoring server, "+
			"using a random port instead", "port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterComponent registers a component to be listed.
func (m *Monitor) RegisterComponent(c hooking.Named) {
	m.components = append(m.components, c)
}

func (m *Monitor) registerSystem() {
	subsystems := []*system.Subsystem{&m.sys.Subsystem}
	if m.sys.HMCHost != nil {
		subsystems = append(subsystems, m.sys.HMCHost)
	}

	if m.sys.HMCDev != nil {
		subsystems = append(subsystems, m.sys.HMCDev)
	}

	for _, sub := range subsystems {
		for _, x := range sub.Xbars {
			m.RegisterComponent(x)
		}

		for _, b := range sub.Bridges {
			if !m.registered(b.Name()) {
				m.RegisterComponent(b)
			}
		}

		for _, c := range sub.MemCtrls {
			m.RegisterComponent(c)
		}

		if sub.ExternalMemory != nil {
			m.RegisterComponent(sub.ExternalMemory)
		}
	}

	for _, p := range m.sys.PIMProcessors {
		m.RegisterComponent(p)
	}
}

func (m *Monitor) registered(name string) bool {
	for _, c := range m.components {
		if c.Name() == name {
			return true
		}
	}

	return false
}

// Handler returns the router that serves the API and the pages.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/ranges", m.listRanges)
	r.HandleFunc("/api/route/{addr}", m.route)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// server.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	m.listener = listener

	go func() {
		err := http.Serve(listener, m.Handler())
		if err != nil {
			slog.Error("monitoring server stopped", "error", err)
		}
	}()

	return m.URL(), nil
}

// URL returns the address of the running server.
func (m *Monitor) URL() string {
	if m.listener == nil {
		return ""
	}

	return fmt.Sprintf("http://localhost:%d",
		m.listener.Addr().(*net.TCPAddr).Port)
}

// OpenBrowser opens the page of the running server.
func (m *Monitor) OpenBrowser() error {
	if m.listener == nil {
		return fmt.Errorf("monitoring server is not started")
	}

	return browser.OpenURL(m.URL())
}

// Close stops the server.
func (m *Monitor) Close() error {
	if m.listener == nil {
		return nil
	}

	return m.listener.Close()
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	buf := bytes.NewBuffer(nil)
	if err := serializer.Serialize(buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) hooking.Named {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	http.Error(w, "Component not found", http.StatusNotFound)

	return nil
}

type rangeRsp struct {
	Component string `json:"component"`
	Range     string `json:"range"`
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
	Size      string `json:"size"`
}

func (m *Monitor) listRanges(w http.ResponseWriter, _ *http.Request) {
	rsp := []rangeRsp{}

	peers := m.sys.AllMemCtrls()
	for _, ext := range []*system.ExternalSlave{
		m.sys.ExternalMemory, m.hmcExternalMemory(),
	} {
		if ext != nil {
			peers = append(peers, ext)
		}
	}

	for _, p := range peers {
		for _, r := range p.AddrRanges() {
			rsp = append(rsp, rangeRsp{
				Component: p.Name(),
				Range:     r.String(),
				Start:     r.Start,
				End:       r.End(),
				Size:      mem.FormatSize(r.Size / r.NumStripes()),
			})
		}
	}

	writeJSON(w, rsp)
}

func (m *Monitor) hmcExternalMemory() *system.ExternalSlave {
	if m.sys.HMCDev == nil {
		return nil
	}

	return m.sys.HMCDev.ExternalMemory
}

type routeRsp struct {
	Addr      string `json:"addr"`
	Target    string `json:"target"`
	Port      string `json:"port"`
	Range     string `json:"range"`
	LocalAddr string `json:"local_addr"`
}

func (m *Monitor) route(w http.ResponseWriter, r *http.Request) {
	addr, err := strconv.ParseUint(mux.Vars(r)["addr"], 0, 64)
	if err != nil {
		http.Error(w, "Invalid address: "+err.Error(), http.StatusBadRequest)
		return
	}

	target, err := m.sys.MemBus.Route(addr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	rsp := routeRsp{
		Addr:   fmt.Sprintf("%#x", addr),
		Target: target.Name(),
	}

	if mapper, err := m.sys.MemBus.PortMapper(); err == nil {
		port, _ := mapper.Find(addr)
		rsp.Port = string(port)
	}

	for _, ar := range target.AddrRanges() {
		if ar.Contains(addr) {
			rsp.Range = ar.String()
			rsp.LocalAddr = fmt.Sprintf("%#x", ar.RemoveIntlvBits(addr))

			break
		}
	}

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
