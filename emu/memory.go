package emu

import "sort"

// Memory is a sparse, byte-addressed, little-endian data memory.
// Unwritten bytes read as zero.
type Memory struct {
	bytes map[uint32]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{bytes: make(map[uint32]byte)}
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint32) byte {
	return m.bytes[addr]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint32, value byte) {
	if value == 0 {
		delete(m.bytes, addr)
		return
	}
	m.bytes[addr] = value
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) {
	m.Write8(addr, byte(value))
	m.Write8(addr+1, byte(value>>8))
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) uint32 {
	return uint32(m.Read16(addr)) | uint32(m.Read16(addr+2))<<16
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.Write16(addr, uint16(value))
	m.Write16(addr+2, uint16(value>>16))
}

// Words returns every non-zero aligned word, keyed by address.
func (m *Memory) Words() map[uint32]uint32 {
	words := make(map[uint32]uint32)
	for addr := range m.bytes {
		aligned := addr &^ 3
		if _, seen := words[aligned]; seen {
			continue
		}
		words[aligned] = m.Read32(aligned)
	}
	return words
}

// Addresses returns the sorted addresses of all non-zero aligned words.
func (m *Memory) Addresses() []uint32 {
	words := m.Words()
	addrs := make([]uint32, 0, len(words))
	for addr := range words {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Clone returns an independent copy of the memory.
func (m *Memory) Clone() *Memory {
	c := NewMemory()
	for addr, b := range m.bytes {
		c.bytes[addr] = b
	}
	return c
}
