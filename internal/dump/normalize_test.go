package dump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(t *testing.T, in string, unescape bool, chunk int) string {
	t.Helper()
	var out bytes.Buffer
	n := NewNormalizer(&out, unescape)
	if chunk <= 0 {
		chunk = len(in) + 1
	}
	for len(in) > 0 {
		size := chunk
		if size > len(in) {
			size = len(in)
		}
		written, err := n.WriteString(in[:size])
		require.NoError(t, err)
		require.Equal(t, size, written)
		in = in[size:]
	}
	require.NoError(t, n.Flush())
	return out.String()
}

func TestNormalizeLineEndings(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		unescape bool
		want     string
	}{
		{"bare lf", "CREATE TABLE t (\n  id NUMBER\n)", false, "CREATE TABLE t (\r\n  id NUMBER\r\n)"},
		{"crlf kept", "a\r\nb\r\n", false, "a\r\nb\r\n"},
		{"lone cr kept", "a\rb", false, "a\rb"},
		{"mixed", "a\nb\r\nc\rd\n", false, "a\r\nb\r\nc\rd\r\n"},
		{"blank lines", "\n\n", false, "\r\n\r\n"},
		{"escapes untouched without unescape", `a\nb`, false, `a\nb`},
		{"literal lf escape", `BEGIN\nNULL;\nEND;`, true, "BEGIN\r\nNULL;\r\nEND;"},
		{"literal crlf escape", `a\r\nb`, true, "a\r\nb"},
		{"literal cr escape", `a\rb`, true, "a\rb"},
		{"literal cr escape at end", `a\r`, true, "a\r"},
		{"literal cr escape then raw lf", "a\\r\nb", true, "a\r\nb"},
		{"path segment starting with r", `C:\reports`, true, "C:\reports"},
		{"other escapes kept", `C:\temp\x`, true, `C:\temp\x`},
		{"double backslash", `a\\b`, true, `a\\b`},
		{"trailing backslash", `path\`, true, `path\`},
		{"escape and raw lf", "a\\nb\nc", true, "a\r\nb\r\nc"},
		{"empty", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, chunk := range []int{0, 1, 2, 3} {
				got := normalize(t, tt.in, tt.unescape, chunk)
				assert.Equalf(t, tt.want, got, "chunk size %d", chunk)
			}
		})
	}
}

func TestNormalizeNeverLeavesBareLF(t *testing.T) {
	in := strings.Repeat("line\n", 1000) + "\r\n\r\r\n\n"
	out := normalize(t, in, false, 7)
	for i := 0; i < len(out); i++ {
		if out[i] == '\n' {
			require.Greaterf(t, i, 0, "leading LF")
			require.Equalf(t, byte('\r'), out[i-1], "bare LF at %d", i)
		}
	}
}

func TestNormalizeNeverLeavesLiteralEscape(t *testing.T) {
	in := strings.Repeat(`X NUMBER;\r\n`, 50)
	out := normalize(t, in, true, 5)
	assert.NotContains(t, out, `\r\n`)
	assert.Equal(t, strings.Repeat("X NUMBER;\r\n", 50), out)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}

func TestNormalizePropagatesWriteError(t *testing.T) {
	n := NewNormalizer(failingWriter{}, false)
	_, err := n.Write([]byte("x"))
	assert.ErrorIs(t, err, assert.AnError)
}
