package provenance

import "errors"

var (
	// ErrWrongPassword indicates the password failed to open a
	// protected document.
	ErrWrongPassword = errors.New("wrong password")
	// ErrNotProtected indicates an unprotect call on a plain PDF.
	ErrNotProtected = errors.New("document is not protected")
	// ErrAlreadyProtected indicates a protect call on an already
	// protected document; the caller must unprotect first.
	ErrAlreadyProtected = errors.New("document is already protected")
	// ErrUnsupportedDocument indicates input the codec cannot operate
	// on: not a PDF, or a PDF whose structure cannot be located.
	ErrUnsupportedDocument = errors.New("unsupported document")
	// ErrInvalidToken indicates a recipient token with characters that
	// cannot survive the embedding channels.
	ErrInvalidToken = errors.New("invalid recipient token")
)
