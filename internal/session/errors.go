package session

// FormatError reports a document that is not valid JSON or does not have
// the minimal session shape.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
