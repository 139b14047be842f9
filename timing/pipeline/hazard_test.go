package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvpipe/insts"
	"github.com/sarchlab/rvpipe/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		hazardUnit *pipeline.HazardUnit
		bubble     *pipeline.StageRegister
	)

	BeforeEach(func() {
		hazardUnit = pipeline.NewHazardUnit()
		bubble = &pipeline.StageRegister{}
	})

	Describe("DetectForwarding", func() {
		var consumer *pipeline.StageRegister

		BeforeEach(func() {
			consumer = decoded(0x10, insts.OpADD, 3, 1, 2, 0) // add x3, x1, x2
		})

		Context("when no forwarding is needed", func() {
			It("should return ForwardNone for both operands", func() {
				exmem := decoded(0x0C, insts.OpADDI, 4, 0, 0, 1)

				fwdA, fwdB := hazardUnit.DetectForwarding(consumer, exmem, bubble)

				Expect(fwdA).To(Equal(pipeline.ForwardNone))
				Expect(fwdB).To(Equal(pipeline.ForwardNone))
			})
		})

		Context("when forwarding from EX/MEM is needed", func() {
			It("should forward rs1 from EX/MEM", func() {
				exmem := decoded(0x0C, insts.OpADDI, 1, 0, 0, 1)

				fwdA, fwdB := hazardUnit.DetectForwarding(consumer, exmem, bubble)

				Expect(fwdA).To(Equal(pipeline.ForwardFromEXMEM))
				Expect(fwdB).To(Equal(pipeline.ForwardNone))
			})

			It("should forward both operands from EX/MEM", func() {
				consumer = decoded(0x10, insts.OpADD, 3, 1, 1, 0)
				exmem := decoded(0x0C, insts.OpADDI, 1, 0, 0, 1)

				fwdA, fwdB := hazardUnit.DetectForwarding(consumer, exmem, bubble)

				Expect(fwdA).To(Equal(pipeline.ForwardFromEXMEM))
				Expect(fwdB).To(Equal(pipeline.ForwardFromEXMEM))
			})
		})

		Context("when forwarding from MEM/WB is needed", func() {
			It("should forward rs2 from MEM/WB", func() {
				memwb := decoded(0x08, insts.OpLW, 2, 0, 0, 0x100)

				fwdA, fwdB := hazardUnit.DetectForwarding(consumer, bubble, memwb)

				Expect(fwdA).To(Equal(pipeline.ForwardNone))
				Expect(fwdB).To(Equal(pipeline.ForwardFromMEMWB))
			})
		})

		Context("priority: EX/MEM over MEM/WB", func() {
			It("should prioritize EX/MEM when both match", func() {
				exmem := decoded(0x0C, insts.OpADDI, 1, 0, 0, 1)
				memwb := decoded(0x08, insts.OpADDI, 1, 0, 0, 2)

				fwdA, _ := hazardUnit.DetectForwarding(consumer, exmem, memwb)

				Expect(fwdA).To(Equal(pipeline.ForwardFromEXMEM))
			})
		})

		Context("register x0", func() {
			It("should never forward x0", func() {
				consumer = decoded(0x10, insts.OpADD, 3, 0, 0, 0)
				exmem := decoded(0x0C, insts.OpADDI, 0, 0, 0, 1)

				fwdA, fwdB := hazardUnit.DetectForwarding(consumer, exmem, exmem)

				Expect(fwdA).To(Equal(pipeline.ForwardNone))
				Expect(fwdB).To(Equal(pipeline.ForwardNone))
			})
		})

		Context("producers that do not write registers", func() {
			It("should not forward from a store or a branch", func() {
				exmem := decoded(0x0C, insts.OpSW, 0, 1, 1, 0)
				memwb := decoded(0x08, insts.OpBEQ, 0, 1, 2, 8)

				fwdA, fwdB := hazardUnit.DetectForwarding(consumer, exmem, memwb)

				Expect(fwdA).To(Equal(pipeline.ForwardNone))
				Expect(fwdB).To(Equal(pipeline.ForwardNone))
			})
		})

		Context("source 2 usage by format", func() {
			exmem := decoded(0x0C, insts.OpADDI, 2, 0, 0, 1) // writes x2

			DescribeTable("rs2 tag",
				func(consumer *pipeline.StageRegister, expected pipeline.ForwardSource) {
					_, fwdB := hazardUnit.DetectForwarding(consumer, exmem, bubble)
					Expect(fwdB).To(Equal(expected))
				},
				Entry("register-register", decoded(0x10, insts.OpSUB, 3, 1, 2, 0), pipeline.ForwardFromEXMEM),
				Entry("store data", decoded(0x10, insts.OpSW, 0, 1, 2, 0), pipeline.ForwardFromEXMEM),
				Entry("branch", decoded(0x10, insts.OpBNE, 0, 1, 2, 8), pipeline.ForwardFromEXMEM),
				Entry("immediate ignores rs2 field", decoded(0x10, insts.OpSRAI, 3, 1, 0, 2), pipeline.ForwardNone),
			)
		})

		It("should not tag a bubble", func() {
			exmem := decoded(0x0C, insts.OpADDI, 1, 0, 0, 1)

			fwdA, fwdB := hazardUnit.DetectForwarding(bubble, exmem, exmem)

			Expect(fwdA).To(Equal(pipeline.ForwardNone))
			Expect(fwdB).To(Equal(pipeline.ForwardNone))
		})
	})

	Describe("DetectLoadUseHazard", func() {
		var (
			load    *pipeline.StageRegister
			decoder *insts.Decoder
		)

		BeforeEach(func() {
			load = decoded(0x00, insts.OpLW, 1, 2, 0, 0) // lw x1, 0(x2)
			decoder = insts.NewDecoder()
		})

		DescribeTable("next instruction",
			func(word uint32, expected bool) {
				Expect(hazardUnit.DetectLoadUseHazard(load, decoder.Decode(word))).To(Equal(expected))
			},
			Entry("reads the load result as rs1", encode(insts.OpADDI, 3, 1, 0, 1), true),
			Entry("reads the load result as rs2", encode(insts.OpADD, 3, 4, 1, 0), true),
			Entry("stores the load result", encode(insts.OpSW, 0, 4, 1, 0), true),
			Entry("compares the load result", encode(insts.OpBEQ, 0, 4, 1, 8), true),
			Entry("is independent", encode(insts.OpADDI, 3, 4, 0, 1), false),
			Entry("is a shift whose shamt aliases rs2", encode(insts.OpSLLI, 3, 4, 0, 1), false),
			Entry("is an upper immediate", encode(insts.OpLUI, 1, 0, 0, 0x1000), false),
			Entry("is a bubble", uint32(0), false),
		)

		It("should not stall for a load into x0", func() {
			load = decoded(0x00, insts.OpLW, 0, 2, 0, 0)
			Expect(hazardUnit.DetectLoadUseHazard(load, decoder.Decode(encode(insts.OpADD, 3, 0, 0, 0)))).To(BeFalse())
		})

		It("should not stall behind a non-load", func() {
			load = decoded(0x00, insts.OpADDI, 1, 2, 0, 0)
			Expect(hazardUnit.DetectLoadUseHazard(load, decoder.Decode(encode(insts.OpADDI, 3, 1, 0, 1)))).To(BeFalse())
		})
	})

	Describe("GetForwardedValue", func() {
		It("should return the original value without forwarding", func() {
			Expect(hazardUnit.GetForwardedValue(pipeline.ForwardNone, 7, bubble, bubble)).To(Equal(uint32(7)))
		})

		It("should return the EX/MEM ALU result", func() {
			exmem := decoded(0x0C, insts.OpADDI, 1, 0, 0, 1)
			exmem.ALUResult = 99

			Expect(hazardUnit.GetForwardedValue(pipeline.ForwardFromEXMEM, 7, exmem, bubble)).To(Equal(uint32(99)))
		})

		It("should return loaded data from MEM/WB", func() {
			memwb := decoded(0x08, insts.OpLW, 1, 0, 0, 0x100)
			memwb.ALUResult = 0x100
			memwb.MemData = 42

			Expect(hazardUnit.GetForwardedValue(pipeline.ForwardFromMEMWB, 7, bubble, memwb)).To(Equal(uint32(42)))
		})

		It("should return the ALU result from MEM/WB for ALU producers", func() {
			memwb := decoded(0x08, insts.OpADDI, 1, 0, 0, 5)
			memwb.ALUResult = 5

			Expect(hazardUnit.GetForwardedValue(pipeline.ForwardFromMEMWB, 7, bubble, memwb)).To(Equal(uint32(5)))
		})

		It("should refuse to forward a load from EX/MEM", func() {
			exmem := decoded(0x0C, insts.OpLW, 1, 0, 0, 0)

			Expect(func() {
				hazardUnit.GetForwardedValue(pipeline.ForwardFromEXMEM, 7, exmem, bubble)
			}).To(Panic())
		})
	})

	Describe("ForwardSource", func() {
		It("should print trace tags", func() {
			Expect(pipeline.ForwardNone.String()).To(BeEmpty())
			Expect(pipeline.ForwardFromEXMEM.String()).To(Equal("EX"))
			Expect(pipeline.ForwardFromMEMWB.String()).To(Equal("MEM"))
		})
	})
})
