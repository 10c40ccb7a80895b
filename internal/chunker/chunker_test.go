package chunker_test

import (
	"math/rand"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/steveluke1457/Mr-Bot/internal/chunker"
)

var _ = Describe("Split", func() {
	It("returns nothing for empty text", func() {
		Expect(chunker.Split("", 10)).To(BeEmpty())
	})

	It("keeps short text in one segment", func() {
		Expect(chunker.Split("hello\nworld", 100)).To(Equal([]string{"hello\nworld"}))
	})

	It("starts a new segment when the next line would overflow", func() {
		Expect(chunker.Split("aaaa\nbbbb\ncc", 9)).To(Equal([]string{"aaaa\nbbbb", "cc"}))
	})

	It("counts the separating newline", func() {
		Expect(chunker.Split("aaaa\nbbbb", 8)).To(Equal([]string{"aaaa", "bbbb"}))
		Expect(chunker.Split("aaaa\nbbbb", 9)).To(Equal([]string{"aaaa\nbbbb"}))
	})

	It("does not emit an empty segment before an oversized first line", func() {
		Expect(chunker.Split("abcdefghij\nxy", 5)).To(Equal([]string{"abcdefghij", "xy"}))
	})

	It("measures characters rather than bytes", func() {
		Expect(chunker.Split("éééé\néé", 7)).To(Equal([]string{"éééé\néé"}))
	})

	It("disables splitting for a non-positive limit", func() {
		Expect(chunker.Split("a\nb", 0)).To(Equal([]string{"a\nb"}))
	})

	It("trims and drops blank segments with WithTrim", func() {
		Expect(chunker.Split("  hi  \n\n\n   \nthere ", 4, chunker.WithTrim())).
			To(Equal([]string{"hi", "there"}))
	})

	It("round-trips random text when no line exceeds the limit", func() {
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 200; i++ {
			maxLen := 5 + rng.Intn(60)
			lines := make([]string, rng.Intn(40))
			for j := range lines {
				lines[j] = strings.Repeat("x", rng.Intn(maxLen+1))
			}
			text := strings.Join(lines, "\n")

			segments := chunker.Split(text, maxLen)
			Expect(strings.Join(segments, "\n")).To(Equal(text))
			for _, s := range segments {
				Expect(utf8.RuneCountInString(s)).To(BeNumerically("<=", maxLen))
			}
		}
	})
})
