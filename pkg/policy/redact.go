package policy

// genericRedactionMarker replaces matches of arbitrary policy patterns.
const genericRedactionMarker = "[REDACTED]"

// piiRedactionMarkers maps each detector to its replacement marker.
var piiRedactionMarkers = map[string]string{
	"ssn":         "[SSN REDACTED]",
	"email":       "[EMAIL REDACTED]",
	"phone":       "[PHONE REDACTED]",
	"credit_card": "[CARD REDACTED]",
	"ip_address":  "[IP REDACTED]",
}

// RedactPII replaces every match of every catalogue detector with its
// type-specific marker. Detectors run in a fixed order so overlapping
// matches resolve deterministically.
func RedactPII(text string) string {
	for _, name := range piiCatalogueOrder {
		text = piiDetectors[name].ReplaceAllString(text, piiRedactionMarkers[name])
	}
	return text
}

// RedactPattern replaces every case-insensitive match of pattern with
// the generic marker. An uncompilable pattern leaves the text unchanged;
// validation rejects those at policy load.
func RedactPattern(text, pattern string) string {
	re, err := compilePattern(pattern, false)
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, genericRedactionMarker)
}
