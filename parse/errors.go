package parse

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var ErrUnsupportedInstitution = eris.New("unsupported institution")

// ParseError describes a title match that could not be turned into a record.
// It is never fatal; the extractor collects it in Result.Skipped.
type ParseError struct {
	Institution string
	Page        int
	Match       string // the matched title text, or the profile URL
	Reason      string
	Err         error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s page %d: %s (%q)", e.Institution, e.Page, e.Reason, e.Match)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }
