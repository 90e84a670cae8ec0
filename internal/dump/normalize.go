package dump

import "io"

// Normalizer rewrites line endings to CRLF while streaming to an underlying
// writer. Bare LF becomes CRLF, an existing CRLF is kept as is and a lone CR
// is preserved. With unescape enabled, the two-character escapes \n and \r
// are first expanded to LF and CR, so a literal \r\n also ends up as CRLF.
//
// State is carried across Write calls, so a definition may be fed in chunks of
// any size. Flush must be called once the input is complete.
type Normalizer struct {
	w        io.Writer
	unescape bool

	backslash bool // unescape: previous input byte was an unconsumed '\'
	prevCR    bool // previous output byte was CR
	buf       []byte
}

// NewNormalizer returns a Normalizer writing to w.
func NewNormalizer(w io.Writer, unescape bool) *Normalizer {
	return &Normalizer{w: w, unescape: unescape}
}

// Write normalizes p. It reports len(p) on success; the number of bytes
// written to the underlying writer may differ.
func (n *Normalizer) Write(p []byte) (int, error) {
	n.buf = n.buf[:0]
	for _, b := range p {
		if !n.unescape {
			n.emit(b)
			continue
		}
		if n.backslash {
			n.backslash = false
			switch b {
			case 'n':
				n.emit('\n')
				continue
			case 'r':
				n.emit('\r')
				continue
			default:
				n.emit('\\')
			}
		}
		if b == '\\' {
			n.backslash = true
			continue
		}
		n.emit(b)
	}
	if len(n.buf) > 0 {
		if _, err := n.w.Write(n.buf); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// WriteString normalizes s.
func (n *Normalizer) WriteString(s string) (int, error) {
	return n.Write([]byte(s))
}

// Flush emits a trailing backslash held back while waiting for an escape.
func (n *Normalizer) Flush() error {
	if !n.backslash {
		return nil
	}
	n.backslash = false
	n.buf = append(n.buf[:0], '\\')
	n.prevCR = false
	_, err := n.w.Write(n.buf)
	return err
}

func (n *Normalizer) emit(b byte) {
	switch b {
	case '\n':
		if !n.prevCR {
			n.buf = append(n.buf, '\r')
		}
		n.buf = append(n.buf, '\n')
		n.prevCR = false
	case '\r':
		n.buf = append(n.buf, '\r')
		n.prevCR = true
	default:
		n.buf = append(n.buf, b)
		n.prevCR = false
	}
}
