package rcon

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	packetTypeResponseValue = 0
	packetTypeExecCommand   = 2
	packetTypeAuth          = 3

	// Minecraft splits long answers into bodies of at most 4096 bytes.
	maxPacketLength = 4096 + 14

	listCommand = "list"
)

var (
	ErrAuthFailed      = errors.New("rcon auth failed")
	ErrCommandRejected = errors.New("rcon command rejected")
)

type Client struct {
	host    string
	port    int
	pass    string
	timeout time.Duration
	limiter *rate.Limiter
}

// New returns a client that opens one connection per command. qps caps how often
// the game server is queried; zero or less disables the cap.
func New(host string, port int, pass string, timeout time.Duration, qps float64) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limit := rate.Inf
	if qps > 0 {
		limit = rate.Limit(qps)
	}
	return &Client{
		host:    host,
		port:    port,
		pass:    pass,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// ListPlayers runs "list" and wraps the answer as a Response. A reply whose
// first packet is not a response value comes back as NonText.
func (c *Client) ListPlayers(ctx context.Context) (Response, error) {
	body, isText, err := c.execute(ctx, listCommand)
	if err != nil {
		return Absent(), err
	}
	if !isText {
		return NonText(), nil
	}
	return Text(body), nil
}

// Execute runs an arbitrary console command and returns its text output.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	body, _, err := c.execute(ctx, command)
	return body, err
}

func (c *Client) execute(ctx context.Context, command string) (string, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, fmt.Errorf("wait for rcon slot: %w", err)
	}

	addr := c.Addr()
	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", false, fmt.Errorf("dial rcon %s: %w", addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", false, fmt.Errorf("set deadline: %w", err)
	}

	return roundTrip(conn, c.pass, command)
}

// roundTrip authenticates on an open connection and runs one command.
func roundTrip(conn net.Conn, pass, command string) (string, bool, error) {
	if err := writePacket(conn, 1, packetTypeAuth, pass); err != nil {
		return "", false, fmt.Errorf("send auth packet: %w", err)
	}
	if err := readAuthResponse(conn); err != nil {
		return "", false, err
	}

	if err := writePacket(conn, 2, packetTypeExecCommand, command); err != nil {
		return "", false, fmt.Errorf("send command packet: %w", err)
	}

	first, err := readPacket(conn)
	if err != nil {
		return "", false, fmt.Errorf("read command response: %w", err)
	}
	if first.ID == -1 {
		return "", false, ErrCommandRejected
	}
	if first.Type != packetTypeResponseValue {
		return "", false, nil
	}

	var out strings.Builder
	out.WriteString(first.Body)

	// Fragments of a long answer follow immediately; a short read timeout ends the reply.
	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	for {
		next, err := readPacket(conn)
		if err != nil {
			if isTimeout(err) || errors.Is(err, io.EOF) {
				break
			}
			return "", false, fmt.Errorf("read additional response packet: %w", err)
		}
		if next.Type == packetTypeResponseValue {
			out.WriteString(next.Body)
		}
	}

	return out.String(), true, nil
}

func readAuthResponse(conn net.Conn) error {
	for i := 0; i < 3; i++ {
		pkt, err := readPacket(conn)
		if err != nil {
			return fmt.Errorf("read auth response: %w", err)
		}
		// Some servers send an empty response value ahead of the auth answer.
		if pkt.Type != packetTypeExecCommand {
			continue
		}
		if pkt.ID == -1 {
			return ErrAuthFailed
		}
		return nil
	}
	return fmt.Errorf("%w: no auth response packet", ErrAuthFailed)
}

type packet struct {
	ID   int32
	Type int32
	Body string
}

func writePacket(w io.Writer, id int32, typ int32, body string) error {
	payloadLen := 4 + 4 + len(body) + 2
	buf := make([]byte, 4+payloadLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(payloadLen))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(id))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(typ))
	copy(buf[12:], body)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

func readPacket(r io.Reader) (packet, error) {
	var length int32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return packet{}, err
	}
	if length < 10 || length > maxPacketLength {
		return packet{}, fmt.Errorf("invalid packet length %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return packet{}, err
	}
	return packet{
		ID:   int32(binary.LittleEndian.Uint32(buf[0:4])),
		Type: int32(binary.LittleEndian.Uint32(buf[4:8])),
		Body: strings.TrimRight(string(buf[8:len(buf)-2]), "\x00"),
	}, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
