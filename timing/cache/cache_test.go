package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvpipe/emu"
	"github.com/sarchlab/rvpipe/insts"
	"github.com/sarchlab/rvpipe/timing/cache"
)

var _ = Describe("Cache", func() {
	var (
		c       *cache.Cache
		memory  *emu.Memory
		backing *cache.MemoryBacking
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		backing = cache.NewMemoryBacking(memory)
		// 256B, 4-way, 16B lines: 4 sets, set stride 0x40
		config := cache.Config{
			Size:          256,
			Associativity: 4,
			BlockSize:     16,
		}
		c = cache.New(config, backing)
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			memory.Write32(0x100, 0xDEADBEEF)

			result := c.Read(0x100, 4)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Data).To(Equal(uint32(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(BeZero())
		})

		It("should hit on cached data", func() {
			memory.Write32(0x100, 0xCAFEBABE)

			c.Read(0x100, 4)

			result := c.Read(0x100, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0xCAFEBABE)))
			Expect(c.Stats().HitRate()).To(BeNumerically("~", 0.5))
		})

		It("should hit on different addresses in same cache line", func() {
			memory.Write32(0x100, 0x11111111)
			memory.Write32(0x104, 0x22222222)

			c.Read(0x100, 4)

			result := c.Read(0x104, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0x22222222)))
		})

		It("should split accesses that straddle two lines", func() {
			memory.Write32(0x10C, 0x44332211)
			memory.Write32(0x110, 0x88776655)

			result := c.Read(0x10E, 4)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Data).To(Equal(uint32(0x66554433)))
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss", func() {
			result := c.Write(0x100, 4, 0x12345678)
			Expect(result.Hit).To(BeFalse())

			readResult := c.Read(0x100, 4)
			Expect(readResult.Hit).To(BeTrue())
			Expect(readResult.Data).To(Equal(uint32(0x12345678)))
		})

		It("should merge narrow writes into the line", func() {
			memory.Write32(0x100, 0xAABBCCDD)

			c.Write(0x101, 1, 0xEE)
			Expect(c.Read(0x100, 4).Data).To(Equal(uint32(0xAABBEEDD)))
		})
	})

	Describe("Eviction", func() {
		It("should evict when a set is full", func() {
			c.Write(0x000, 4, 1)
			c.Write(0x040, 4, 2)
			c.Write(0x080, 4, 3)
			c.Write(0x0C0, 4, 4)

			Expect(c.Read(0x000, 4).Hit).To(BeTrue())
			Expect(c.Read(0x040, 4).Hit).To(BeTrue())
			Expect(c.Read(0x080, 4).Hit).To(BeTrue())
			Expect(c.Read(0x0C0, 4).Hit).To(BeTrue())

			result := c.Write(0x100, 4, 5)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint32(0x000)))

			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should write back dirty evicted blocks", func() {
			c.Write(0x000, 4, 0x11111111)
			c.Write(0x040, 4, 0x22222222)
			c.Write(0x080, 4, 0x33333333)
			c.Write(0x0C0, 4, 0x44444444)

			c.Read(0x040, 4)
			c.Read(0x080, 4)
			c.Read(0x0C0, 4)

			c.Write(0x100, 4, 0x55555555)

			Expect(memory.Read32(0x000)).To(Equal(uint32(0x11111111)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush", func() {
		It("should write back all dirty blocks", func() {
			c.Write(0x000, 4, 0x11111111)
			c.Write(0x100, 4, 0x22222222)

			Expect(memory.Read32(0x000)).To(BeZero())
			Expect(memory.Read32(0x100)).To(BeZero())

			c.Flush()

			Expect(memory.Read32(0x000)).To(Equal(uint32(0x11111111)))
			Expect(memory.Read32(0x100)).To(Equal(uint32(0x22222222)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
		})

		It("should leave clean lines untouched in memory", func() {
			memory.Write32(0x000, 7)
			c.Read(0x000, 4)
			c.Flush()

			Expect(memory.Read32(0x000)).To(Equal(uint32(7)))
			Expect(c.Stats().Writebacks).To(BeZero())
		})
	})

	Describe("as a data port", func() {
		It("should serve sign-extending loads", func() {
			memory.Write32(0x40, 0x000080FF)

			Expect(emu.Load(c, insts.OpLH, 0x40)).To(Equal(uint32(0xFFFF80FF)))
			Expect(c.Read16(0x40)).To(Equal(uint16(0x80FF)))
			Expect(c.Read8(0x41)).To(Equal(byte(0x80)))
		})

		It("should serve stores", func() {
			c.Write16(0x42, 0xBEEF)
			c.Write8(0x40, 0x01)
			c.Flush()

			Expect(memory.Read32(0x40)).To(Equal(uint32(0xBEEF0001)))
		})
	})

	Describe("Config", func() {
		It("should validate the default data cache", func() {
			config := cache.DefaultDataCacheConfig()
			Expect(config.Enabled()).To(BeTrue())
			Expect(config.Validate()).To(Succeed())
		})

		DescribeTable("rejecting bad geometry",
			func(config cache.Config) {
				Expect(config.Validate()).NotTo(Succeed())
			},
			Entry("zero ways", cache.Config{Size: 64, Associativity: 0, BlockSize: 16}),
			Entry("non power of two line", cache.Config{Size: 96, Associativity: 1, BlockSize: 24}),
			Entry("ragged size", cache.Config{Size: 100, Associativity: 2, BlockSize: 16}),
		)

		It("should treat a zero size as disabled", func() {
			Expect(cache.Config{}.Enabled()).To(BeFalse())
		})
	})
})
