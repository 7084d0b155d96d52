// Package notify is the fire-and-forget notification collaborator. Nothing
// in the core waits on a notification or treats its failure as fatal.
package notify

import "log"

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

type Notifier interface {
	Notify(kind Kind, message string)
}

// Func adapts a function to the Notifier interface; the gateway uses this to
// push notices down a client's websocket.
type Func func(kind Kind, message string)

func (f Func) Notify(kind Kind, message string) { f(kind, message) }

// Log writes notices to the process log.
type Log struct {
	Prefix string
}

func (l Log) Notify(kind Kind, message string) {
	log.Printf("%s[%s] %s", l.Prefix, kind, message)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(Kind, string) {}
