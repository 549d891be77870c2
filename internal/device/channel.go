package device

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"meeting-room-backend/config"
)

// LineChannel is the production Commander. It dials the controller for each
// exchange; the controllers hold no session state and the command rate is a
// handful of lines per minute.
type LineChannel struct {
	dialTimeout time.Duration
	cmdTimeout  time.Duration
}

// NewLineChannel creates a Commander from the device configuration.
func NewLineChannel(cfg *config.DeviceConfig) *LineChannel {
	return &LineChannel{
		dialTimeout: cfg.DialTimeout,
		cmdTimeout:  cfg.CommandTimeout,
	}
}

// Send writes one command line and discards any reply.
func (c *LineChannel) Send(ctx context.Context, controller string, cmd Command) error {
	_, err := c.exchange(ctx, controller, cmd, false)
	return err
}

// Request writes one command line and returns the controller's reply line.
func (c *LineChannel) Request(ctx context.Context, controller string, cmd Command) (string, error) {
	return c.exchange(ctx, controller, cmd, true)
}

func (c *LineChannel) exchange(ctx context.Context, controller string, cmd Command, wantReply bool) (string, error) {
	if controller == "" {
		return "", fmt.Errorf("%w: no controller address configured", ErrUnreachable)
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", controller)
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %v", ErrUnreachable, controller, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.cmdTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", fmt.Errorf("%w: set deadline: %v", ErrUnreachable, err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", cmd); err != nil {
		return "", fmt.Errorf("%w: write %q to %s: %v", ErrUnreachable, cmd, controller, err)
	}
	if !wantReply {
		return "", nil
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("%w: read reply from %s: %v", ErrUnreachable, controller, err)
	}
	return strings.TrimSpace(line), nil
}
