package patch

import "errors"

var (
	// ErrNotFound is returned when a locator rule matches nothing.
	ErrNotFound = errors.New("patch rule matched nothing")
	// ErrAmbiguous is returned when a rule that must be unique matches
	// more than one place.
	ErrAmbiguous = errors.New("patch rule matched more than once")
	// ErrGuardMismatch is returned when the text under a located span no
	// longer matches the expected content.
	ErrGuardMismatch = errors.New("existing text does not match expected content")
	// ErrNotIdempotent is returned when a rule still matches after its own
	// edit was applied, meaning a second run would patch the file again.
	ErrNotIdempotent = errors.New("rule still matches after applying its edit")
)
