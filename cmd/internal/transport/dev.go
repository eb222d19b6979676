package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// DevDialer simulates the messaging network for local development, the same
// way the credential store falls back to memory when no DB is configured.
// An unregistered session gets a pairing code and then connects; sends
// succeed with generated ids and inbound traffic never arrives.
type DevDialer struct{}

// Open returns a simulated connection. Events are emitted from a goroutine
// so delivery starts only after Open returns.
func (DevDialer) Open(_ context.Context, in OpenInput) (Conn, error) {
	if in.Handler == nil {
		return nil, errors.New("transport: nil handler")
	}

	c := &devConn{handler: in.Handler}

	go func() {
		time.Sleep(10 * time.Millisecond)

		if !in.Auth.Registered {
			c.handler.HandlePairingCode("dev-" + randomHex(8))
			c.handler.HandleCredentials(AuthState{
				SessionID:  in.SessionID,
				Blob:       []byte(randomHex(16)),
				Registered: true,
			})
			time.Sleep(10 * time.Millisecond)
		}

		c.handler.HandleConnected(Identity{
			NetworkID:   in.SessionID + ":dev",
			DisplayName: "dev session",
		})
	}()

	return c, nil
}

type devConn struct {
	handler EventHandler

	mu     sync.Mutex
	closed bool
}

func (c *devConn) SendText(ctx context.Context, to, text string) (SendResult, error) {
	return c.send(ctx, to)
}

func (c *devConn) SendMedia(ctx context.Context, in MediaInput) (SendResult, error) {
	return c.send(ctx, in.To)
}

func (c *devConn) send(ctx context.Context, to string) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}
	if to == "" {
		return SendResult{}, errors.New("transport: empty target")
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return SendResult{}, errors.New("transport: connection closed")
	}

	return SendResult{MessageID: randomHex(12), Timestamp: time.Now().UTC()}, nil
}

func (c *devConn) Logout(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b) // zero bytes on failure still yield a valid id
	return hex.EncodeToString(b)
}
