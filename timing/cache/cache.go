// Package cache provides a data-cache model built on Akita cache components.
//
// The cache sits between the memory stage and data memory. It keeps real
// tags, data and dirty state so hit/miss behaviour is exact, but it never
// delays an access: the pipeline's memory model is single-cycle, so the cache
// is an observer that only accumulates statistics.
package cache

import (
	"github.com/pkg/errors"
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache geometry.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
}

// DefaultDataCacheConfig returns a small 2-way data cache, sized for the
// short programs the pipeline model runs.
func DefaultDataCacheConfig() Config {
	return Config{
		Size:          1024, // 1KB
		Associativity: 2,    // 2-way
		BlockSize:     16,   // 16B line
	}
}

// Enabled reports whether the configuration describes a cache at all.
func (c Config) Enabled() bool {
	return c.Size > 0
}

// Validate checks that the geometry is consistent.
func (c Config) Validate() error {
	if c.Associativity <= 0 {
		return errors.New("associativity must be > 0")
	}
	if c.BlockSize < 4 || c.BlockSize&(c.BlockSize-1) != 0 {
		return errors.Errorf("block_size %d must be a power of two >= 4", c.BlockSize)
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return errors.Errorf("size %d is not a multiple of associativity*block_size", c.Size)
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Data is the data read (for load operations).
	Data uint32
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint32
}

// Cache represents a set-associative write-back, write-allocate data cache.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	stats Statistics

	backing BackingStore
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns hits / (hits + misses), or 0 before any access.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// BackingStore interface for the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint32, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint32, data []byte)
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint32 {
	return addr &^ uint32(c.config.BlockSize-1)
}

func (c *Cache) crossesBlock(addr uint32, size int) bool {
	offset := int(addr - c.blockAddr(addr))
	return offset+size > c.config.BlockSize
}

// Read performs a cache read of size bytes (1, 2 or 4).
func (c *Cache) Read(addr uint32, size int) AccessResult {
	if c.crossesBlock(addr, size) {
		return c.splitRead(addr, size)
	}

	c.stats.Reads++

	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr - c.blockAddr(addr)
		return AccessResult{
			Hit:  true,
			Data: extractData(c.dataStore[c.blockIndex(block)], offset, size),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, false, 0)
}

// Write performs a cache write of size bytes (1, 2 or 4).
// Uses write-allocate policy: on miss, fetch the block first, then write.
func (c *Cache) Write(addr uint32, size int, data uint32) AccessResult {
	if c.crossesBlock(addr, size) {
		return c.splitWrite(addr, size, data)
	}

	c.stats.Writes++

	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr - c.blockAddr(addr)
		storeData(c.dataStore[c.blockIndex(block)], offset, size, data)
		block.IsDirty = true

		return AccessResult{Hit: true}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, true, data)
}

// splitRead serves a misaligned access spanning two lines byte by byte.
func (c *Cache) splitRead(addr uint32, size int) AccessResult {
	result := AccessResult{Hit: true}
	for i := 0; i < size; i++ {
		part := c.Read(addr+uint32(i), 1)
		result.Hit = result.Hit && part.Hit
		result.Data |= part.Data << (8 * i)
	}
	return result
}

func (c *Cache) splitWrite(addr uint32, size int, data uint32) AccessResult {
	result := AccessResult{Hit: true}
	for i := 0; i < size; i++ {
		part := c.Write(addr+uint32(i), 1, data>>(8*i))
		result.Hit = result.Hit && part.Hit
	}
	return result
}

// handleMiss handles a cache miss by fetching from backing store.
func (c *Cache) handleMiss(addr uint32, size int, isWrite bool, writeData uint32) AccessResult {
	result := AccessResult{}
	blockAddr := c.blockAddr(addr)

	victim := c.directory.FindVictim(uint64(blockAddr))
	if victim == nil {
		panic("cache: directory returned no victim")
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag) // Tag stores block-aligned address

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(uint32(victim.Tag), victimData)
		}
	}

	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		clear(victimData)
	}

	victim.Tag = uint64(blockAddr)
	victim.IsValid = true
	victim.IsDirty = false

	offset := addr - blockAddr
	if isWrite {
		storeData(victimData, offset, size, writeData)
		victim.IsDirty = true
	} else {
		result.Data = extractData(victimData, offset, size)
	}

	c.directory.Visit(victim)

	return result
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				c.backing.Write(uint32(block.Tag), c.dataStore[c.blockIndex(block)])
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// The methods below let the cache stand in for data memory as an
// emu.DataPort.

// Read8 reads one byte through the cache.
func (c *Cache) Read8(addr uint32) byte { return byte(c.Read(addr, 1).Data) }

// Read16 reads a halfword through the cache.
func (c *Cache) Read16(addr uint32) uint16 { return uint16(c.Read(addr, 2).Data) }

// Read32 reads a word through the cache.
func (c *Cache) Read32(addr uint32) uint32 { return c.Read(addr, 4).Data }

// Write8 writes one byte through the cache.
func (c *Cache) Write8(addr uint32, value byte) { c.Write(addr, 1, uint32(value)) }

// Write16 writes a halfword through the cache.
func (c *Cache) Write16(addr uint32, value uint16) { c.Write(addr, 2, uint32(value)) }

// Write32 writes a word through the cache.
func (c *Cache) Write32(addr uint32, value uint32) { c.Write(addr, 4, value) }

func extractData(data []byte, offset uint32, size int) uint32 {
	var result uint32
	for i := 0; i < size; i++ {
		result |= uint32(data[int(offset)+i]) << (i * 8)
	}
	return result
}

func storeData(data []byte, offset uint32, size int, value uint32) {
	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
