package loader_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvpipe/loader"
)

var _ = Describe("Flat binary loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Read", func() {
		It("should decode little-endian words in order", func() {
			prog, err := loader.Read(bytes.NewReader([]byte{
				0x83, 0x20, 0x01, 0x00, // lw x1, 0(x2)
				0x93, 0x81, 0x10, 0x00, // addi x3, x1, 1
			}))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Words).To(Equal([]uint32{0x00012083, 0x00108193}))
			Expect(prog.Len()).To(Equal(2))
			Expect(prog.End()).To(Equal(uint32(8)))
			Expect(prog.TrailingBytes).To(BeZero())
		})

		It("should drop a trailing partial word", func() {
			prog, err := loader.Read(bytes.NewReader([]byte{
				0x93, 0x81, 0x10, 0x00,
				0xAA, 0xBB,
			}))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Words).To(Equal([]uint32{0x00108193}))
			Expect(prog.TrailingBytes).To(Equal(2))
		})

		It("should reject an empty input", func() {
			_, err := loader.Read(bytes.NewReader(nil))
			Expect(errors.Is(err, loader.ErrEmptyProgram)).To(BeTrue())
		})

		It("should reject an input shorter than one word", func() {
			_, err := loader.Read(bytes.NewReader([]byte{0x13, 0x00}))
			Expect(errors.Is(err, loader.ErrEmptyProgram)).To(BeTrue())
		})
	})

	Describe("Load", func() {
		It("should fail for a missing file", func() {
			_, err := loader.Load(filepath.Join(tempDir, "missing.bin"))
			Expect(err).To(HaveOccurred())
		})

		It("should round-trip through Save", func() {
			path := filepath.Join(tempDir, "prog.bin")
			words := []uint32{0x00012083, 0x00108193, 0xFE0296E3}

			Expect(loader.Save(path, words)).To(Succeed())

			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Words).To(Equal(words))
		})

		It("should wrap the cause of an empty file", func() {
			path := filepath.Join(tempDir, "empty.bin")
			Expect(os.WriteFile(path, nil, 0o644)).To(Succeed())

			_, err := loader.Load(path)
			Expect(errors.Cause(err)).To(Equal(loader.ErrEmptyProgram))
		})
	})
})
