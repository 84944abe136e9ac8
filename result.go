package dashboard

// ResultStatus discriminates an ActionResult
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

// ActionResult is returned by every auth action
type ActionResult struct {
	Status   ResultStatus `json:"status"`
	Message  string       `json:"message"`
	Redirect string       `json:"redirect,omitempty"`
	// Session is set by actions that open a session. It is consumed by the
	// HTTP layer to set the cookie and never rendered.
	Session *AuthSession `json:"-"`
	// Err keeps the underlying error for logging.
	Err error `json:"-"`
}

// OK reports a success result
func (r ActionResult) OK() bool {
	return r.Status == ResultSuccess
}

// HasRedirect reports whether the caller should navigate
func (r ActionResult) HasRedirect() bool {
	return r.Redirect != ""
}

func success(message, redirect string) ActionResult {
	return ActionResult{
		Status:   ResultSuccess,
		Message:  message,
		Redirect: redirect,
	}
}

func failure(err error, redirect string) ActionResult {
	return ActionResult{
		Status:   ResultError,
		Message:  BackendMessage(err),
		Redirect: redirect,
		Err:      err,
	}
}
