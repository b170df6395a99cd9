package parser

import "errors"

var (
	// ErrUnknownFormat is returned when a format identifier is not registered.
	ErrUnknownFormat = errors.New("unknown statement format")
	// ErrFormatNotDetected is returned when no format signature matches a document.
	ErrFormatNotDetected = errors.New("could not detect statement format")
	// ErrMissingYear is returned when a format needs a synthesized year and
	// neither the file name, a statement date line nor document metadata supplies one.
	ErrMissingYear = errors.New("statement year could not be determined")
	// ErrInvalidFormatSpec is returned when a format definition cannot be compiled.
	ErrInvalidFormatSpec = errors.New("invalid format definition")
)
