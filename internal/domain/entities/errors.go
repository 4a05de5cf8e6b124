package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes the session handler converts into
// user-facing error messages. None of them terminate a connection.
var (
	// ErrUnsupportedFormat means the file extension is not recognized
	// for text extraction.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyContent means the normalized text is too short or
	// meaningless to index.
	ErrEmptyContent = errors.New("no extractable content")

	// ErrIndexEmpty means a question was asked before any content was
	// ingested.
	ErrIndexEmpty = errors.New("index is empty")

	// ErrMalformedGeneratorResponse means the generation backend returned
	// none of the expected answer fields.
	ErrMalformedGeneratorResponse = errors.New("malformed generator response")

	// ErrSynthesis means speech synthesis failed after a text answer was
	// already produced.
	ErrSynthesis = errors.New("speech synthesis failed")
)

// FetchError reports a non-200 response while fetching a web page.
type FetchError struct {
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch returned status %d", e.Status)
}
