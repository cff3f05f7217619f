package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DiscoveryPort    = 32227
	discoveryRequest = "labdevicesdiscovery1"
)

// DiscoveryReply is the JSON answer to a discovery request.
type DiscoveryReply struct {
	Port       int      `json:"LabDevicesPort"`
	ServerName string   `json:"ServerName"`
	Location   string   `json:"Location,omitempty"`
	Devices    []string `json:"Devices"`
}

// DiscoveryResponder answers UDP discovery broadcasts so clients can find
// the API without knowing the host in advance.
type DiscoveryResponder struct {
	addr   string
	port   int
	info   func() DiscoveryReply
	logger log.FieldLogger
}

// NewDiscoveryResponder creates a responder listening on addr:port. info is
// called for every request, so the reply follows the current device list.
func NewDiscoveryResponder(addr string, port int, info func() DiscoveryReply, logger log.FieldLogger) *DiscoveryResponder {
	return &DiscoveryResponder{
		addr:   addr,
		port:   port,
		info:   info,
		logger: logger,
	}
}

// Run answers requests until ctx is done.
func (d *DiscoveryResponder) Run(ctx context.Context) error {
	laddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(d.addr, strconv.Itoa(d.port)))
	if err != nil {
		return fmt.Errorf("cannot resolve discovery address: %w", err)
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("cannot bind discovery socket: %w", err)
	}
	defer conn.Close()

	d.logger.Debugf("Discovery responder started on %s", conn.LocalAddr())
	d.serve(ctx, conn)
	return nil
}

func (d *DiscoveryResponder) serve(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, 1024)

	for ctx.Err() == nil {
		// Wake up periodically to notice cancellation.
		conn.SetReadDeadline(time.Now().Add(time.Second))

		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if !errors.As(err, &netErr) || !netErr.Timeout() {
				d.logger.Debugf("Discovery read failed: %v", err)
			}
			continue
		}

		resp, ok := d.reply(buf[:n])
		if !ok {
			d.logger.Debugf("Ignoring %q from %s", buf[:n], from)
			continue
		}
		d.logger.Debugf("Discovery request from %s", from)
		if _, err := conn.WriteToUDP(resp, from); err != nil {
			d.logger.Errorf("Discovery reply to %s failed: %v", from, err)
		}
	}
}

// reply returns the answer to a datagram, or false when the datagram is not
// a discovery request.
func (d *DiscoveryResponder) reply(data []byte) ([]byte, bool) {
	req := strings.ToLower(strings.TrimSpace(string(data)))
	if req != discoveryRequest {
		return nil, false
	}

	info := d.info()
	if info.Devices == nil {
		info.Devices = []string{}
	}
	resp, err := json.Marshal(info)
	if err != nil {
		d.logger.Errorf("Cannot encode discovery reply: %v", err)
		return nil, false
	}
	return resp, true
}
