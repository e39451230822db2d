package sqlsafe

import (
	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
)

// InjectionCheckResult contains the result of an injection check on a
// parameter value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamValue  string // The value that was checked
}

// CheckValueForInjection uses libinjection to detect SQL injection patterns
// in a literal value that is about to become a bind parameter.
//
// Returns nil if no injection is detected.
func CheckValueForInjection(value string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: fingerprint,
			ParamValue:  value,
		}
	}

	return nil
}

// ScreenValues checks all literal values and returns an unsafe-statement
// error if any of them carry an injection pattern.
func ScreenValues(values []string) error {
	for _, v := range values {
		if result := CheckValueForInjection(v); result != nil {
			return apperrors.Newf(apperrors.KindUnsafeStatement,
				"value %q matched SQL injection fingerprint %s", v, result.Fingerprint)
		}
	}
	return nil
}
