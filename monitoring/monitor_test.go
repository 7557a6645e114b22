package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/mem/memconfig"
	"github.com/sarchlab/memcfg/system"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Monitor", func() {
	var (
		sys    *system.System
		m      *Monitor
		server *httptest.Server
	)

	get := func(path string) *http.Response {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(rsp.Body.Close)

		return rsp
	}

	decode := func(rsp *http.Response, v any) {
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(json.NewDecoder(rsp.Body).Decode(v)).To(Succeed())
	}

	BeforeEach(func() {
		opts := memconfig.DefaultOptions()
		opts.MemType = "DDR3_1600_8x8"
		opts.MemChannels = 2
		opts.EnablePIM = true
		opts.NumPIMProcessors = 1

		sys = system.New("System", 64, mem.NewAddrRange(0, 2*mem.GB))
		_, err := memconfig.MakeBuilder().
			WithOptions(opts).
			Build("MemConfig").
			Configure(sys)
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor(sys)
		m.profileDuration = 10 * time.Millisecond
		server = httptest.NewServer(m.Handler())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should panic without a system", func() {
		Expect(func() { NewMonitor(nil) }).To(Panic())
	})

	It("should list components", func() {
		var names []string
		decode(get("/api/list_components"), &names)

		Expect(names).To(Equal([]string{
			"System.MemBus",
			"System.MemCtrl[0]",
			"System.MemCtrl[1]",
			"System.PIMCPU[0]",
		}))
	})

	It("should serialize a component", func() {
		rsp := get("/api/component/" + url.PathEscape("System.MemCtrl[1]"))

		var v map[string]any
		decode(rsp, &v)
		Expect(v).NotTo(BeEmpty())
	})

	It("should report unknown components", func() {
		rsp := get("/api/component/Nothing")
		Expect(rsp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should list the ranges of the controllers", func() {
		var ranges []rangeRsp
		decode(get("/api/ranges"), &ranges)

		Expect(ranges).To(HaveLen(2))
		Expect(ranges[1].Component).To(Equal("System.MemCtrl[1]"))
		Expect(ranges[1].Range).To(Equal("[0x0:0x80000000] i1:13 m1"))
		Expect(ranges[1].End).To(Equal(2 * mem.GB))
		Expect(ranges[1].Size).To(Equal("1.0 GiB"))
	})

	It("should route addresses", func() {
		var r routeRsp
		decode(get("/api/route/0x3010"), &r)

		Expect(r.Target).To(Equal("System.MemCtrl[1]"))
		Expect(r.Port).To(Equal("System.MemBus.MemSidePort[1]"))
		Expect(r.Addr).To(Equal("0x3010"))
		Expect(r.LocalAddr).To(Equal("0x1010"))
	})

	It("should reject invalid addresses", func() {
		Expect(get("/api/route/xyz").StatusCode).
			To(Equal(http.StatusBadRequest))
	})

	It("should report unserved addresses", func() {
		Expect(get("/api/route/0x100000000").StatusCode).
			To(Equal(http.StatusNotFound))
	})

	It("should report resources", func() {
		var r resourceRsp
		decode(get("/api/resource"), &r)
		Expect(r.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a profile", func() {
		var v map[string]any
		decode(get("/api/profile"), &v)
		Expect(v).To(HaveKey("SampleType"))
	})

	It("should serve the page", func() {
		rsp := get("/")
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})

	It("should start a server on a random port", func() {
		Expect(m.URL()).To(BeEmpty())
		Expect(m.OpenBrowser()).NotTo(Succeed())

		u, err := m.WithPortNumber(80).StartServer()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(m.Close)

		Expect(u).To(HavePrefix("http://localhost:"))
		Expect(m.URL()).To(Equal(u))
	})
})
