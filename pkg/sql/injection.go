package sql

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/pg-discover/pkg/apperrors"
)

// MaxIdentifierLength is PostgreSQL's NAMEDATALEN - 1.
const MaxIdentifierLength = 63

// InjectionCheckResult contains the result of an injection check on an identifier.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Kind        string // "schema", "table", ...
	Value       string
}

// CheckForInjection runs libinjection over value and returns nil when it is clean.
//
// Example:
//
//	result := CheckForInjection("table", "users")
//	// result == nil
//
//	result = CheckForInjection("table", "users; DROP TABLE users--")
//	// result.IsSQLi == true
func CheckForInjection(kind, value string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Kind:        kind,
		Value:       value,
	}
}

// CheckIdentifier validates a schema or table name that is about to be
// interpolated into query text. Quoting still happens afterwards; this is a
// screen that rejects names no catalog lookup should ever have produced.
// It errs toward rejection: legal but SQL-looking names such as a/*b*/
// fail the screen and cannot be sampled.
func CheckIdentifier(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty %s name", apperrors.ErrInvalidIdentifier, kind)
	}
	if len(name) > MaxIdentifierLength {
		return fmt.Errorf("%w: %s name longer than %d bytes", apperrors.ErrInvalidIdentifier, kind, MaxIdentifierLength)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %s name contains NUL", apperrors.ErrInvalidIdentifier, kind)
	}
	if result := CheckForInjection(kind, name); result != nil {
		return fmt.Errorf("%w: %s name matches injection pattern %q", apperrors.ErrInvalidIdentifier, kind, result.Fingerprint)
	}
	return nil
}
