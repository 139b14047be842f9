package programs_test

import (
	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/rvpipe/programs"
	"github.com/sarchlab/rvpipe/timing/core"
	"github.com/sarchlab/rvpipe/timing/pipeline"
)

func run(name string) *core.Core {
	words, err := programs.Assemble(name)
	Expect(err).NotTo(HaveOccurred())

	logger, _ := logrustest.NewNullLogger()
	c := core.NewCore(words, nil, pipeline.WithLogger(logger))
	Expect(c.Run()).To(Equal(pipeline.OutcomeHalted))

	return c
}

var _ = Describe("Programs", func() {
	It("should list every embedded source", func() {
		Expect(programs.Names()).To(Equal([]string{
			"branch", "countdown", "dynamic", "hazards", "unrolled",
		}))
	})

	It("should return the source text of each program", func() {
		for _, name := range programs.Names() {
			source, err := programs.Source(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(source).To(HavePrefix(";"))
		}
	})

	It("should reject an unknown name", func() {
		_, err := programs.Source("nope")
		Expect(errors.Cause(err)).To(Equal(programs.ErrUnknownProgram))
	})

	for _, name := range programs.Names() {
		It("should match the reference emulator: "+name, func() {
			mismatches, err := run(name).Compare()
			Expect(err).NotTo(HaveOccurred())
			Expect(mismatches).To(BeEmpty())
		})
	}

	It("should stall twice in the pointer chase", func() {
		c := run("hazards")
		base := uint32(0x200)

		Expect(c.Stats().Stalls).To(Equal(uint64(2)))
		Expect(c.RegFile().ReadReg(9)).To(Equal(42 - base))
		Expect(c.Memory().Read32(0x208)).To(Equal(42 - base))
	})

	It("should stall less once the loads are hoisted", func() {
		unrolled := run("unrolled")
		dynamic := run("dynamic")

		Expect(unrolled.Stats().Stalls).To(Equal(uint64(4)))
		Expect(dynamic.Stats().Stalls).To(Equal(uint64(1)))
		Expect(dynamic.Stats().Cycles).To(BeNumerically("<", unrolled.Stats().Cycles))

		for _, c := range []*core.Core{unrolled, dynamic} {
			Expect(c.Memory().Read32(0x200)).To(Equal(uint32(11)))
			Expect(c.Memory().Read32(0x204)).To(Equal(uint32(21)))
			Expect(c.Memory().Read32(0x208)).To(Equal(uint32(31)))
		}
	})

	It("should flush on each taken loop branch", func() {
		c := run("branch")

		Expect(c.Stats().Flushes).To(Equal(uint64(2)))
		Expect(c.Stats().Stalls).To(Equal(uint64(3)))
		Expect(c.RegFile().ReadReg(5)).To(BeZero())
		Expect(c.Memory().Read32(0x208)).To(Equal(uint32(6)))
	})

	It("should count down to zero", func() {
		c := run("countdown")

		// The entry beq at 0x04 flushes once; the loop bne at 0x0c flushes
		// three times. The CSV therefore shows four FLUSH cycles.
		Expect(c.Stats().Flushes).To(Equal(uint64(4)))
		flushPCs := map[uint32]int{}
		for _, r := range c.Trace() {
			if r.Control == pipeline.ControlFlush && r.Stage == pipeline.StageEX {
				flushPCs[r.PC]++
			}
		}
		Expect(flushPCs).To(Equal(map[uint32]int{0x04: 1, 0x0c: 3}))
		Expect(c.Stats().Retired).To(Equal(uint64(9)))
		Expect(c.RegFile().ReadReg(5)).To(BeZero())
	})
})
