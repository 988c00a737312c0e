package transport

import (
	"io"

	"go.bug.st/serial"
)

// Port is the minimal surface the Manager needs from an open serial
// endpoint. go.bug.st/serial.Port satisfies it directly; tests inject
// fakes (typically one half of a net.Pipe).
type Port interface {
	io.ReadWriteCloser
}

// Opener opens an endpoint by address. Separated from the Manager so
// tests can substitute an in-memory pair instead of a real device
// file.
type Opener interface {
	Open(address string) (Port, error)
}

// serialOpener opens real serial device files at 115200 8N1, the rate
// and framing every endpoint on this bus is wired for.
type serialOpener struct{}

// NewSerialOpener returns the Opener used outside of tests.
func NewSerialOpener() Opener { return serialOpener{} }

func (serialOpener) Open(address string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(address, mode)
}

// Compile-time interface satisfaction check.
var _ Opener = serialOpener{}
