package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvpipe/timing/cache"
	"github.com/sarchlab/rvpipe/timing/config"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("DefaultConfig", func() {
		It("should cap runs at 15 cycles per word", func() {
			Expect(config.DefaultConfig().CycleCapFactor).To(Equal(15))
		})

		It("should enable the default data cache", func() {
			Expect(config.DefaultConfig().DataCache).To(Equal(cache.DefaultDataCacheConfig()))
		})

		It("should be valid", func() {
			Expect(config.DefaultConfig().Validate()).To(Succeed())
		})
	})

	Describe("Save and Load", func() {
		It("should round-trip the initial state", func() {
			path := filepath.Join(tempDir, "cfg.json")
			original := config.DefaultConfig()
			original.CycleCapFactor = 20
			original.InitialRegisters = map[uint8]uint32{2: 0x100, 31: 7}
			original.InitialMemory = map[uint32]uint32{0x100: 42}

			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"initial_registers": {"5": 3}}`), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.CycleCapFactor).To(Equal(config.DefaultCycleCapFactor))
			Expect(loaded.InitialRegisters).To(HaveKeyWithValue(uint8(5), uint32(3)))
		})

		It("should allow disabling the cache", func() {
			path := filepath.Join(tempDir, "nocache.json")
			Expect(os.WriteFile(path, []byte(`{"data_cache": {"size": 0}}`), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.DataCache.Enabled()).To(BeFalse())
		})

		It("should fail for a missing file", func() {
			_, err := config.LoadConfig(filepath.Join(tempDir, "missing.json"))
			Expect(err).To(HaveOccurred())
		})

		It("should fail for malformed JSON", func() {
			path := filepath.Join(tempDir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{"cycle_cap_factor": `), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse config")))
		})

		It("should reject an invalid file", func() {
			path := filepath.Join(tempDir, "zero.json")
			Expect(os.WriteFile(path, []byte(`{"cycle_cap_factor": 0}`), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("cycle_cap_factor")))
		})
	})

	Describe("Validate", func() {
		DescribeTable("rejects",
			func(mutate func(*config.Config), fragment string) {
				c := config.DefaultConfig()
				mutate(c)
				Expect(c.Validate()).To(MatchError(ContainSubstring(fragment)))
			},
			Entry("negative cap factor", func(c *config.Config) { c.CycleCapFactor = -1 }, "cycle_cap_factor"),
			Entry("seeding x0", func(c *config.Config) { c.InitialRegisters = map[uint8]uint32{0: 1} }, "x0"),
			Entry("register out of range", func(c *config.Config) { c.InitialRegisters = map[uint8]uint32{32: 1} }, "x32"),
			Entry("unaligned memory", func(c *config.Config) { c.InitialMemory = map[uint32]uint32{2: 1} }, "aligned"),
			Entry("bad cache geometry", func(c *config.Config) { c.DataCache.BlockSize = 3 }, "data_cache"),
		)
	})

	Describe("Clone", func() {
		It("should deep copy the initial state maps", func() {
			original := config.DefaultConfig()
			original.InitialRegisters = map[uint8]uint32{1: 1}
			original.InitialMemory = map[uint32]uint32{0: 1}

			clone := original.Clone()
			clone.InitialRegisters[1] = 2
			clone.InitialMemory[0] = 2
			clone.DataCache.Size = 0

			Expect(original.InitialRegisters[1]).To(Equal(uint32(1)))
			Expect(original.InitialMemory[0]).To(Equal(uint32(1)))
			Expect(original.DataCache.Enabled()).To(BeTrue())
		})
	})
})
