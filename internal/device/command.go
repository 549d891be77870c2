// Package device speaks the room controllers' textual line protocol.
//
// Each room controller exposes a newline-delimited command channel (a serial
// bridge on host:port). Discrete commands switch climate and lighting; "HR"
// asks for a status line in the format the telemetry package parses.
package device

import (
	"context"
	"errors"
)

// Command is a discrete instruction to a room controller.
type Command string

const (
	ClimateOn     Command = "EN 1"
	ClimateOff    Command = "EN 0"
	ClimateAuto   Command = "EN A"
	LightOn       Command = "EL 1"
	LightOff      Command = "EL 0"
	LightAuto     Command = "EL A"
	StatusRequest Command = "HR"
)

// ErrUnreachable wraps every transport failure. Callers log it as a warning;
// a dead controller must never fail the lifecycle operation that triggered
// the command.
var ErrUnreachable = errors.New("room controller unreachable")

// Commander sends commands to a room's controller. Send is best-effort and
// fire-and-forget; Request performs a one-line round trip.
type Commander interface {
	Send(ctx context.Context, controller string, cmd Command) error
	Request(ctx context.Context, controller string, cmd Command) (string, error)
}
