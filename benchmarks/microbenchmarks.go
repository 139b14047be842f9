package benchmarks

import (
	"github.com/sarchlab/rvpipe/insts"
	"github.com/sarchlab/rvpipe/timing/config"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// isolates a single pipeline behaviour and leaves a checksum in x10.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUseChain(),
		memorySequential(),
		branchTaken(),
		countedLoop(),
		cacheConflict(),
	}
}

func enc(op insts.Op, rd, rs1, rs2 uint8, imm int32) uint32 {
	return insts.MustEncode(insts.New(op, rd, rs1, rs2, imm))
}

// 1. Arithmetic Sequential - independent ALU operations, no hazards
func arithmeticSequential() Benchmark {
	program := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		reg := uint8(1 + i%5)
		program = append(program, enc(insts.OpADDI, reg, reg, 0, 1))
	}
	program = append(program, enc(insts.OpADD, 10, 1, 2, 0))

	return Benchmark{
		Name:             "arithmetic_sequential",
		Description:      "20 independent ADDIs over 5 registers - measures ideal CPI",
		Program:          program,
		ExpectedChecksum: 8,
	}
}

// 2. Dependency Chain - every instruction consumes the previous result
func dependencyChain() Benchmark {
	program := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		program = append(program, enc(insts.OpADDI, 10, 10, 0, 1))
	}

	return Benchmark{
		Name:             "dependency_chain",
		Description:      "20 dependent ADDIs (x10 = x10 + 1) - measures EX forwarding",
		Program:          program,
		ExpectedChecksum: 20,
	}
}

// 3. Load-Use Chain - each load feeds the next instruction
func loadUseChain() Benchmark {
	program := make([]uint32, 0, 20)
	for i := 0; i < 10; i++ {
		program = append(program,
			enc(insts.OpLW, 5, 2, 0, int32(4*i)),
			enc(insts.OpADD, 10, 10, 5, 0),
		)
	}

	return Benchmark{
		Name:        "load_use_chain",
		Description: "10 load/add pairs - one stall per pair",
		Setup: func(cfg *config.Config) {
			cfg.InitialRegisters[2] = 0x100
			for i := uint32(0); i < 10; i++ {
				cfg.InitialMemory[0x100+4*i] = i + 1
			}
		},
		Program:          program,
		ExpectedChecksum: 55,
	}
}

// 4. Memory Sequential - store/load pairs to sequential addresses
func memorySequential() Benchmark {
	program := make([]uint32, 0, 20)
	for i := 0; i < 10; i++ {
		program = append(program,
			enc(insts.OpSW, 0, 1, 10, int32(4*i)),
			enc(insts.OpLW, 10, 1, 0, int32(4*i)),
		)
	}

	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 store/load pairs - the reload feeds the next store",
		Setup: func(cfg *config.Config) {
			cfg.InitialRegisters[1] = 0x200
			cfg.InitialRegisters[10] = 42
		},
		Program:          program,
		ExpectedChecksum: 42,
	}
}

// 5. Branch Taken - every branch skips one instruction
func branchTaken() Benchmark {
	program := make([]uint32, 0, 30)
	for i := 0; i < 10; i++ {
		program = append(program,
			enc(insts.OpBEQ, 0, 0, 0, 8),
			enc(insts.OpADDI, 10, 10, 0, 100), // skipped
			enc(insts.OpADDI, 10, 10, 0, 1),
		)
	}

	return Benchmark{
		Name:             "branch_taken",
		Description:      "10 always-taken forward branches - one flush each",
		Program:          program,
		ExpectedChecksum: 10,
	}
}

// 6. Counted Loop - backward branch taken nine times
func countedLoop() Benchmark {
	return Benchmark{
		Name:        "counted_loop",
		Description: "10-iteration loop adding 2 - measures loop-carried flush cost",
		Setup: func(cfg *config.Config) {
			cfg.CycleCapFactor = 50
		},
		Program: []uint32{
			enc(insts.OpADDI, 5, 0, 0, 10),  // addi x5, x0, 10
			enc(insts.OpADDI, 10, 10, 0, 2), // loop: addi x10, x10, 2
			enc(insts.OpADDI, 5, 5, 0, -1),  // addi x5, x5, -1
			enc(insts.OpBNE, 0, 5, 0, -8),   // bne x5, x0, loop
		},
		ExpectedChecksum: 20,
	}
}

// 7. Cache Conflict - three lines fighting over one 2-way set
func cacheConflict() Benchmark {
	program := make([]uint32, 0, 10)
	for i := 0; i < 3; i++ {
		program = append(program,
			enc(insts.OpLW, 5, 1, 0, 0x000),
			enc(insts.OpLW, 6, 1, 0, 0x200),
			enc(insts.OpLW, 7, 1, 0, 0x400),
		)
	}
	program = append(program, enc(insts.OpADD, 10, 5, 6, 0))

	return Benchmark{
		Name:        "cache_conflict",
		Description: "loads cycling through 3 lines of one set - every access misses under LRU",
		Setup: func(cfg *config.Config) {
			cfg.InitialRegisters[1] = 0x1000
			cfg.InitialMemory[0x1000] = 1
			cfg.InitialMemory[0x1200] = 2
			cfg.InitialMemory[0x1400] = 3
		},
		Program:          program,
		ExpectedChecksum: 3,
	}
}
