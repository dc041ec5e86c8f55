package engine

// Kind classifies engine failures so callers can branch without parsing
// message text.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindInvalidRequest Kind = "invalid_request"
)

// Error carries a machine-readable kind plus optional structured detail
// (offending item, requested delta, and so on).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string { return e.Message }

func notFound(message string, details map[string]any) *Error {
	return &Error{Kind: KindNotFound, Message: message, Details: details}
}

func conflict(message string, details map[string]any) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

func invalidRequest(message string, details map[string]any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message, Details: details}
}
