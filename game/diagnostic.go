package game

import "fmt"

type DiagnosticKind string

const (
	DiagUsed           DiagnosticKind = "used"
	DiagPrefixMismatch DiagnosticKind = "prefix-mismatch"
	DiagUnknownWord    DiagnosticKind = "unknown-word"
	DiagEmpty          DiagnosticKind = "empty"
	DiagPlayerFault    DiagnosticKind = "player-fault"
)

// Diagnostic tells an attacker why its last attempt was rejected.
type Diagnostic struct {
	Kind   DiagnosticKind
	Word   string
	Prefix string
	Cause  string
}

func (d *Diagnostic) Error() string {
	switch d.Kind {
	case DiagUsed:
		return fmt.Sprintf("%q was already played in this game; pick another word", d.Word)
	case DiagPrefixMismatch:
		return fmt.Sprintf("%q does not start with the prefix %q", d.Word, d.Prefix)
	case DiagUnknownWord:
		return fmt.Sprintf("%q is not in the dictionary", d.Word)
	case DiagEmpty:
		return fmt.Sprintf("no word given; answer with a word starting with %q", d.Prefix)
	case DiagPlayerFault:
		return fmt.Sprintf("your last answer could not be used (%s); answer with a word starting with %q", d.Cause, d.Prefix)
	}
	return string(d.Kind)
}
