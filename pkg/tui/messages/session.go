package messages

// TranscriptChangedMsg reports that the transcript database changed behind
// our back and the loaded sequence should be refreshed.
type TranscriptChangedMsg struct{}

// OpenSessionMsg asks the app to open a session by id.
type OpenSessionMsg struct {
	SessionID string
}

// CloseSessionMsg returns from the session view to the session list.
type CloseSessionMsg struct{}

// StatusMsg shows a transient status line (copy confirmations and the like).
type StatusMsg struct {
	Text string
}
