// Package notify is the boundary between the sync worker and whatever
// presents notifications to the user. The worker fires and forgets; the
// presentation side (tray, toasts) stays out of this repository.
package notify

import "github.com/gen2brain/beeep"

// Sink receives one-way status notifications from the worker.
type Sink interface {
	Notify(title, message string, urgent bool) error
}

// Desktop shows native desktop notifications.
type Desktop struct{}

func (Desktop) Notify(title, message string, urgent bool) error {
	if urgent {
		return beeep.Alert(title, message, "")
	}
	return beeep.Notify(title, message, "")
}

// Func adapts a function to the Sink interface; handy in tests.
type Func func(title, message string, urgent bool) error

func (f Func) Notify(title, message string, urgent bool) error {
	return f(title, message, urgent)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(string, string, bool) error { return nil }
