package rcon

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"
)

// fakeServer answers one connection: it checks the password and replies to the
// command with the given packets.
func fakeServer(t *testing.T, password string, replies ...packet) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		auth, err := readPacket(conn)
		if err != nil {
			return
		}
		authID := auth.ID
		if auth.Body != password {
			authID = -1
		}
		if err := writePacket(conn, authID, packetTypeExecCommand, ""); err != nil || authID == -1 {
			return
		}

		cmd, err := readPacket(conn)
		if err != nil {
			return
		}
		for _, reply := range replies {
			if reply.ID == 0 {
				reply.ID = cmd.ID
			}
			if err := writePacket(conn, reply.ID, reply.Type, reply.Body); err != nil {
				return
			}
		}
		// Keep the connection open so the client ends on its read timeout.
		time.Sleep(300 * time.Millisecond)
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func TestClientListPlayers(t *testing.T) {
	body := "There are 1 of a max of 20 players online: Celes"
	host, port := fakeServer(t, "secret", packet{Type: packetTypeResponseValue, Body: body})

	client := New(host, port, "secret", 2*time.Second, 0)
	got, err := client.ListPlayers(context.Background())
	if err != nil {
		t.Fatalf("ListPlayers() error: %v", err)
	}
	text, ok := got.Body()
	if !ok || text != body {
		t.Fatalf("ListPlayers() got %q (text=%v) want %q", text, ok, body)
	}
}

func TestClientJoinsFragments(t *testing.T) {
	host, port := fakeServer(t, "secret",
		packet{Type: packetTypeResponseValue, Body: "There are 2 of a max of 20 players online: "},
		packet{Type: packetTypeResponseValue, Body: "Celes, Silnogard"},
	)

	client := New(host, port, "secret", 2*time.Second, 0)
	got, err := client.ListPlayers(context.Background())
	if err != nil {
		t.Fatalf("ListPlayers() error: %v", err)
	}
	outcome := ParseList(got)
	if len(outcome.Players) != 2 {
		t.Fatalf("ParseList() got %v want 2 players", outcome.Players)
	}
}

func TestClientNonTextReply(t *testing.T) {
	host, port := fakeServer(t, "secret", packet{Type: packetTypeExecCommand, Body: "?"})

	client := New(host, port, "secret", 2*time.Second, 0)
	got, err := client.ListPlayers(context.Background())
	if err != nil {
		t.Fatalf("ListPlayers() error: %v", err)
	}
	if got.Kind() != KindNonText {
		t.Fatalf("ListPlayers() kind got %v want %v", got.Kind(), KindNonText)
	}
}

func TestClientAuthFailure(t *testing.T) {
	host, port := fakeServer(t, "secret")

	client := New(host, port, "wrong", 2*time.Second, 0)
	got, err := client.ListPlayers(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("ListPlayers() error got %v want %v", err, ErrAuthFailed)
	}
	if got.Kind() != KindAbsent {
		t.Fatalf("ListPlayers() kind got %v want %v", got.Kind(), KindAbsent)
	}
}

func TestClientDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	client := New("127.0.0.1", addr.Port, "secret", time.Second, 0)
	if _, err := client.ListPlayers(context.Background()); err == nil {
		t.Fatalf("ListPlayers() expected dial error")
	}
}

func TestClientRateLimitHonoursContext(t *testing.T) {
	client := New("127.0.0.1", 1, "secret", time.Second, 0.001)
	client.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Execute(ctx, "list"); err == nil {
		t.Fatalf("Execute() expected rate limit error")
	}
}
