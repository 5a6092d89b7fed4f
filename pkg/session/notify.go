package session

// Notifier receives user-facing notifications about connection and command
// outcomes. The session reports failures here instead of letting them
// escape into whatever layer renders state; implementations decide how to
// present them (status line, toast, log).
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Warn(msg string)
	Error(msg string)
}

// NopNotifier discards all notifications. It is the default when no
// Notifier is configured.
type NopNotifier struct{}

func (NopNotifier) Info(string)    {}
func (NopNotifier) Success(string) {}
func (NopNotifier) Warn(string)    {}
func (NopNotifier) Error(string)   {}
