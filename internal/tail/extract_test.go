package tail

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantLines    []string
		wantConsumed int
	}{
		{"empty buffer", "", nil, 0},
		{"no terminator", "partial", nil, 0},
		{"single line", "line1\n", []string{"line1"}, 6},
		{"many lines", "line1\nline2\nline3\n", []string{"line1", "line2", "line3"}, 18},
		{"trailing fragment", "line1\nline2", []string{"line1"}, 6},
		{"CRLF endings", "line1\r\nline2\r\n", []string{"line1", "line2"}, 14},
		{"mixed endings", "line1\nline2\r\nline3\n", []string{"line1", "line2", "line3"}, 19},
		{"empty lines", "line1\n\nline3\n", []string{"line1", "", "line3"}, 13},
		{"only newlines", "\n\n\n", []string{"", "", ""}, 3},
		{"lone CR is kept as fragment", "line1\r", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			lines, consumed := Extract([]byte(tt.input))
			g.Expect(lines).To(Equal(tt.wantLines))
			g.Expect(consumed).To(Equal(tt.wantConsumed))
		})
	}
}

func TestExtract_ChunkedInputReassembles(t *testing.T) {
	g := NewWithT(t)
	content := "[12:00:00] [Server thread/INFO]: Alice joined the game\r\n" +
		"[12:00:05] [Server thread/INFO]: <Alice> hi\n" +
		"[12:01:00] [Server thread/INFO]: Alice left the game\n"

	// Feed the content in every possible two-way split and check the
	// pending fragment carries over.
	for cut := 0; cut <= len(content); cut++ {
		var got []string
		pending := []byte(content[:cut])
		lines, consumed := Extract(pending)
		got = append(got, lines...)
		pending = append(pending[consumed:], content[cut:]...)
		lines, consumed = Extract(pending)
		got = append(got, lines...)

		g.Expect(consumed).To(Equal(len(pending)), "cut at %d", cut)
		g.Expect(got).To(Equal([]string{
			"[12:00:00] [Server thread/INFO]: Alice joined the game",
			"[12:00:05] [Server thread/INFO]: <Alice> hi",
			"[12:01:00] [Server thread/INFO]: Alice left the game",
		}), "cut at %d", cut)
	}
}
