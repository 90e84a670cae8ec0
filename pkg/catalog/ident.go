package catalog

import (
	"regexp"
	"strings"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// maxIdentifierLength covers Oracle (128), PostgreSQL (63) and MySQL (64).
const maxIdentifierLength = 128

// identifierPattern is the allowlist for identifiers inlined into SQL text.
// Quote characters, statement separators and comment markers never match.
var identifierPattern = regexp.MustCompile(`^[\p{L}\p{N}_$#@ .-]+$`)

// ValidateIdentifier reports whether ident may be inlined into a statement.
func ValidateIdentifier(ident string) error {
	switch {
	case ident == "":
		return errors.New(errors.ErrorTypeValidation, "identifier is empty")
	case len(ident) > maxIdentifierLength:
		return errors.Newf(errors.ErrorTypeValidation, "identifier %.32q... exceeds %d bytes", ident, maxIdentifierLength)
	case strings.Contains(ident, "--"), !identifierPattern.MatchString(ident):
		return errors.Newf(errors.ErrorTypeValidation, "identifier %q contains characters that cannot be inlined", ident)
	}
	return nil
}

// QuoteBacktick quotes a validated identifier the MySQL way.
func QuoteBacktick(ident string) string {
	return "`" + ident + "`"
}

// QuoteDouble quotes a validated identifier the ANSI way.
func QuoteDouble(ident string) string {
	return `"` + ident + `"`
}
