// Package srs drives the Stanford Research Systems DG645 delay generator.
package srs

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
)

const (
	vendor = "Stanford Research Systems"
	model  = "DG645"

	DefaultPort    = 5025
	defaultTimeout = time.Second

	// A delay setting takes effect about 100 ms after it was sent.
	delaySettle = 100 * time.Millisecond
)

var tcpTerm = transport.Terminators{Tx: "\n", Rx: "\r\n"}

// Channel is a delay channel.
type Channel int

const (
	T0 Channel = iota
	T1
	A
	B
	C
	D
	E
	F
	G
	H
)

var channelNames = []string{"T0", "T1", "A", "B", "C", "D", "E", "F", "G", "H"}

func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelNames) {
		return fmt.Sprintf("Channel(%d)", int(c))
	}
	return channelNames[c]
}

// ParseChannel accepts a channel name such as "A" or "T0".
func ParseChannel(name string) (Channel, error) {
	for i, n := range channelNames {
		if strings.EqualFold(n, name) {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("%w: channel %q", device.ErrUnknownCode, name)
}

// Output is a front panel BNC output.
type Output int

const (
	OutT0 Output = iota
	OutAB
	OutCD
	OutEF
	OutGH
)

var outputNames = []string{"T0", "AB", "CD", "EF", "GH"}

func (o Output) String() string {
	if o < 0 || int(o) >= len(outputNames) {
		return fmt.Sprintf("Output(%d)", int(o))
	}
	return outputNames[o]
}

// ParseOutput accepts an output name such as "AB".
func ParseOutput(name string) (Output, error) {
	for i, n := range outputNames {
		if strings.EqualFold(n, name) {
			return Output(i), nil
		}
	}
	return 0, fmt.Errorf("%w: output %q", device.ErrUnknownCode, name)
}

// DG645 is a four channel digital delay generator.
type DG645 struct {
	*instrument.Base
}

var _ device.Instrument = (*DG645)(nil)

// NewDG645 connects to the Ethernet interface of the generator. A zero port
// means DefaultPort.
func NewDG645(name, host string, port int, timeout time.Duration, logger log.FieldLogger) *DG645 {
	if port == 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	open := func() (transport.Conn, error) {
		return transport.DialTCP(addr, timeout)
	}
	return newDG645(name, addr, open, timeout, logger)
}

func newDG645(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *DG645 {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, model, address),
		Open:    open,
		Term:    tcpTerm,
		Timeout: timeout,
	}
	return &DG645{Base: instrument.New(cfg, logger)}
}

// SetDelay delays channel by seconds relative to reference.
func (d *DG645) SetDelay(channel Channel, seconds float64, reference Channel) error {
	if err := d.Writef("DLAY %d, %d, %s", channel, reference, strconv.FormatFloat(seconds, 'g', -1, 64)); err != nil {
		return err
	}
	time.Sleep(delaySettle)
	return nil
}

// Delay returns the reference channel and the delay in seconds.
func (d *DG645) Delay(channel Channel) (Channel, float64, error) {
	resp, err := d.Query(fmt.Sprintf("DLAY? %d", channel))
	if err != nil {
		return 0, 0, err
	}
	ref, delay, ok := strings.Cut(resp, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%w: delay %q", device.ErrUnexpectedResponse, resp)
	}

	r, err := device.ParseInt("reference", ref)
	if err != nil {
		return 0, 0, err
	}
	seconds, err := device.ParseFloat("delay", delay)
	if err != nil {
		return 0, 0, err
	}
	return Channel(r), seconds, nil
}

// OutputLevel returns the amplitude of an output in V.
func (d *DG645) OutputLevel(output Output) (float64, error) {
	return d.QueryFloat(fmt.Sprintf("LAMP? %d", output))
}
