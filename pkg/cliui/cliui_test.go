package cliui_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/shelf/pkg/cliui"
)

func TestCliui(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cliui Suite")
}

var _ = Describe("cliui", func() {
	Describe("RenderMarkdown", func() {
		It("renders markdown content for the terminal", func() {
			rendered, err := cliui.RenderMarkdown("# Resetting\n\nHold the button for *5 seconds*.")
			Expect(err).NotTo(HaveOccurred())
			Expect(rendered).To(ContainSubstring("Resetting"))
			Expect(rendered).To(ContainSubstring("5 seconds"))
		})

		It("returns plain text unchanged in substance", func() {
			rendered, err := cliui.RenderMarkdown("just an answer")
			Expect(err).NotTo(HaveOccurred())
			Expect(rendered).To(ContainSubstring("just an answer"))
		})
	})

	Describe("Step", func() {
		It("reports success and returns nil", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "doing work", func() error { return nil })
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("doing work"))
		})

		It("propagates the function error", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")
			err := cliui.Step(&buf, "doing work", func() error { return boom })
			Expect(err).To(MatchError(boom))
		})
	})

	Describe("FormatDuration", func() {
		It("formats sub-second durations as milliseconds", func() {
			Expect(cliui.FormatDuration(250 * time.Millisecond)).To(Equal("250ms"))
		})

		It("formats longer durations as seconds", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})
})
