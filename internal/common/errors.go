package common

// AppError is the error shape gateway services hand to handlers. Code and
// HTTPStatus drive the rendered payload; Err keeps the underlying cause
// reachable for errors.Is checks against sentinel values.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
