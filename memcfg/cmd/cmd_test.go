package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sarchlab/memcfg/mem/mem"
	"github.com/sarchlab/memcfg/mem/memconfig"
	"gopkg.in/yaml.v3"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("memcfg", func() {
	var stdout, stderr *bytes.Buffer

	run := func(args ...string) error {
		rootCmd := NewRootCmd()
		rootCmd.SetArgs(args)
		rootCmd.SetOut(stdout)
		rootCmd.SetErr(stderr)

		return rootCmd.Execute()
	}

	setenv := func(key, value string) {
		old, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())

		DeferCleanup(func() {
			if had {
				os.Setenv(key, old)
			} else {
				os.Unsetenv(key)
			}
		})
	}

	BeforeEach(func() {
		stdout = bytes.NewBuffer(nil)
		stderr = bytes.NewBuffer(nil)
	})

	Context("plan", func() {
		It("should print the controllers", func() {
			err := run("plan",
				"--mem-type", "DDR3_1600_8x8",
				"--mem-channels", "2",
				"--mem-size", "2GB")

			Expect(err).NotTo(HaveOccurred())
			Expect(stdout.String()).To(ContainSubstring("2.0 GiB"))
			Expect(stdout.String()).To(ContainSubstring("System.MemCtrl[1]"))
			Expect(stdout.String()).
				To(ContainSubstring("[0x0:0x80000000] i1:13 m1"))
			Expect(stdout.String()).
				To(ContainSubstring("System.MemBus[1]"))
		})

		It("should read a configuration file and let flags override it", func() {
			path := filepath.Join(GinkgoT().TempDir(), "memcfg.yaml")
			Expect(os.WriteFile(path, []byte(`
mem_type: DDR4_2400_8x8
mem_channels: 4
mem_size: 4GB
xor_low_bit: 20
`), 0o644)).To(Succeed())

			err := run("plan", "--config", path,
				"--mem-channels", "2", "-o", "yaml")

			Expect(err).NotTo(HaveOccurred())

			var s planSummary
			Expect(yaml.Unmarshal(stdout.Bytes(), &s)).To(Succeed())
			Expect(s.TotalSize).To(Equal("4.0 GiB"))
			Expect(s.Controllers).To(HaveLen(2))
			Expect(s.Controllers[0].DRAM).To(Equal("DDR4_2400_8x8"))
			Expect(s.Channels[1].XorHighBit).To(Equal(uint(20)))
		})

		It("should read options from the environment", func() {
			setenv("MEMCFG_MEM_TYPE", "SimpleMemory")
			setenv("MEMCFG_MEM_CHANNELS", "4")

			err := run("plan", "-o", "json")

			Expect(err).NotTo(HaveOccurred())

			var s planSummary
			Expect(json.Unmarshal(stdout.Bytes(), &s)).To(Succeed())
			Expect(s.Controllers).To(HaveLen(4))
			Expect(s.Controllers[3].DRAM).To(Equal("SimpleMemory"))
			Expect(s.TotalSize).To(Equal("512 MiB"))
		})

		It("should prefer flags over the environment", func() {
			setenv("MEMCFG_MEM_TYPE", "SimpleMemory")
			setenv("MEMCFG_MEM_CHANNELS", "4")

			err := run("plan", "-o", "json", "--mem-channels", "1")

			Expect(err).NotTo(HaveOccurred())

			var s planSummary
			Expect(json.Unmarshal(stdout.Bytes(), &s)).To(Succeed())
			Expect(s.Controllers).To(HaveLen(1))
		})

		It("should load a .env file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "test.env")
			Expect(os.WriteFile(path,
				[]byte("MEMCFG_TEST_ONLY_NVM_TYPE=x\n"), 0o644)).To(Succeed())
			DeferCleanup(os.Unsetenv, "MEMCFG_TEST_ONLY_NVM_TYPE")

			err := run("types", "--env-file", path)

			Expect(err).NotTo(HaveOccurred())
			Expect(os.Getenv("MEMCFG_TEST_ONLY_NVM_TYPE")).To(Equal("x"))
		})

		It("should alternate explicit ranges between DRAM and NVM", func() {
			err := run("plan",
				"--mem-type", "DDR4_2400_16x4",
				"--nvm-type", "NVM_2400_1x64",
				"--mem-ranges", "0:2GB,0x100000000:2GB",
				"-o", "json")

			Expect(err).NotTo(HaveOccurred())

			var s planSummary
			Expect(json.Unmarshal(stdout.Bytes(), &s)).To(Succeed())
			Expect(s.Ranges).To(HaveLen(2))
			Expect(s.Controllers).To(HaveLen(2))
			Expect(s.Controllers[1].Kind).To(Equal("HeteroMemCtrl"))
			Expect(s.Controllers[1].NVM).To(Equal("NVM_2400_1x64"))
		})

		It("should print the external memory", func() {
			err := run("plan",
				"--mem-type", "DDR3_1600_8x8",
				"--external-memory-system", "dramsim3")

			Expect(err).NotTo(HaveOccurred())
			Expect(stdout.String()).
				To(ContainSubstring("External memory System.ExternalMemory"))
		})

		It("should report configuration errors", func() {
			err := run("plan", "--mem-type", "DDR3_1600_8x8",
				"--mem-channels", "3")

			Expect(memconfig.IsConfigurationError(err)).To(BeTrue())
		})

		It("should reject malformed flags", func() {
			Expect(run("plan", "--mem-channels", "two")).
				To(MatchError(ContainSubstring("--mem-channels")))
			Expect(run("plan", "--mem-type", "DDR3_1600_8x8",
				"--mem-ranges", "2GB")).
				To(MatchError(ContainSubstring("START:SIZE")))
			Expect(run("plan", "--mem-type", "DDR3_1600_8x8",
				"-o", "xml")).
				To(MatchError(ContainSubstring("unknown output format")))
			Expect(run("plan", "--log-level", "loud")).
				To(MatchError(ContainSubstring("invalid log level")))
			Expect(run("plan", "--mem-type", "DDR3_1600_8x8",
				"--system-name", "my_system")).
				To(MatchError(ContainSubstring("invalid system name")))
		})

		It("should log at the requested level", func() {
			err := run("plan", "--mem-type", "DDR3_1600_8x8",
				"--log-level", "info")

			Expect(err).NotTo(HaveOccurred())
			Expect(stderr.String()).
				To(ContainSubstring("memory controller connected"))
		})
	})

	Context("show", func() {
		It("should print a recorded plan", func() {
			path := filepath.Join(GinkgoT().TempDir(), "plan")

			err := run("plan",
				"--mem-type", "DDR3_1600_8x8",
				"--mem-channels", "2",
				"--record", path)
			Expect(err).NotTo(HaveOccurred())

			stdout.Reset()
			err = run("show", path)

			Expect(err).NotTo(HaveOccurred())
			Expect(stdout.String()).To(ContainSubstring("row-buffer"))
			Expect(stdout.String()).To(ContainSubstring("System.MemCtrl[1]"))
			Expect(stdout.String()).To(ContainSubstring("System.MemBus[0]"))
		})

		It("should not keep the plan of a failed configuration", func() {
			path := filepath.Join(GinkgoT().TempDir(), "plan")

			err := run("plan",
				"--mem-type", "HMC_2500_1x32",
				"--mem-channels", "32",
				"--record", path)
			Expect(memconfig.IsConfigurationError(err)).To(BeTrue())

			Expect(path + ".sqlite3").NotTo(BeAnExistingFile())
			Expect(run("show", path)).NotTo(Succeed())
		})

		It("should fail on missing databases", func() {
			err := run("show", filepath.Join(GinkgoT().TempDir(), "none"))
			Expect(err).To(HaveOccurred())
		})
	})

	Context("types", func() {
		It("should list the catalog", func() {
			Expect(run("types")).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("DDR3_1600_8x8"))
			Expect(stdout.String()).To(ContainSubstring("HMC_2500_1x32"))
			Expect(stdout.String()).To(ContainSubstring("RoRaChCoBaCo"))
			Expect(stdout.String()).To(ContainSubstring("latency 30ns"))
		})
	})
})

var _ = Describe("parseRange", func() {
	It("should parse sizes and hex numbers", func() {
		r, err := parseRange("4GB:0x80000000")
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(mem.NewAddrRange(4*mem.GB, 2*mem.GB)))

		r, err = parseRange(" 0 : 512MiB ")
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(mem.NewAddrRange(0, 512*mem.MB)))
	})

	It("should reject bad ranges", func() {
		_, err := parseRange("0-1GB")
		Expect(err).To(HaveOccurred())

		_, err = parseRange("0:lots")
		Expect(err).To(HaveOccurred())
	})
})
