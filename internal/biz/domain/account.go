package domain

// AccountContext is the business data handed to the support chain, keyed by
// descriptive field name.
type AccountContext map[string]string

// LookupError is a user-facing account-lookup failure. UserMessage is sent to
// the end user as-is; a non-empty AgentNote marks an upstream-caused failure
// that must additionally be escalated to a human agent.
type LookupError struct {
	UserMessage string
	AgentNote   string
}

func (e *LookupError) Error() string {
	return "account lookup: " + e.UserMessage
}

// Escalate reports whether the failure requires an agent hand-over.
func (e *LookupError) Escalate() bool {
	return e.AgentNote != ""
}
