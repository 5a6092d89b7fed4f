// Package obsws implements a client for the obs-websocket v5 control
// protocol: connection and authentication handshake, request/response
// correlation, and delivery of server-pushed events. It knows nothing about
// session state; higher layers build their remote mirror on top of Call and
// Events.
package obsws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by Call when no connection is established.
var ErrNotConnected = errors.New("obsws: not connected")

const (
	defaultPort             = "4455"
	defaultEventBuffer      = 64
	defaultHandshakeTimeout = 10 * time.Second
	readLimit               = 1 << 20
)

// Options configures a Client. The zero value is usable.
type Options struct {
	Logger             zerolog.Logger
	EventBuffer        int           // Event channel capacity (default 64).
	HandshakeTimeout   time.Duration // Dial + Hello/Identify deadline (default 10s).
	EventSubscriptions int           // Identify subscription mask (default SubscriptionAll).
	HTTPClient         *http.Client  // Optional HTTP client for the websocket dial.
}

// Client is a reusable handle to an obs-websocket endpoint. A single Client
// survives repeated Connect/Close cycles; each successful Connect yields a
// fresh event channel from Events, which is closed when that connection
// drops. Client is safe for concurrent use.
type Client struct {
	log  zerolog.Logger
	opts Options

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan replyData
	events  chan Event
}

// New creates a Client. No I/O is performed until Connect.
func New(opts Options) *Client {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.EventSubscriptions == 0 {
		opts.EventSubscriptions = SubscriptionAll
	}

	return &Client{
		log:  opts.Logger,
		opts: opts,
	}
}

// Connect dials the endpoint and performs the Hello/Identify handshake.
// The address may omit the scheme (ws:// is assumed) and the port (4455 is
// assumed). An http or https scheme is rewritten to ws or wss.
func (c *Client) Connect(ctx context.Context, address, password string) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return errors.New("obsws: already connected")
	}
	c.mu.Unlock()

	u, err := normalizeAddress(address)
	if err != nil {
		return fmt.Errorf("obsws: invalid address %q: %w", address, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{
		HTTPClient: c.opts.HTTPClient,
	})
	if err != nil {
		return fmt.Errorf("obsws: dial %s: %w", u, err)
	}
	conn.SetReadLimit(readLimit)

	if err := c.handshake(ctx, conn, password); err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "handshake failed")
		return err
	}

	events := make(chan Event, c.opts.EventBuffer)

	c.mu.Lock()
	c.conn = conn
	c.pending = make(map[string]chan replyData)
	c.events = events
	c.mu.Unlock()

	go c.readLoop(conn, events)

	c.log.Debug().Str("address", u).Msg("obsws: identified")
	return nil
}

// handshake consumes Hello, answers with Identify, and waits for Identified.
func (c *Client) handshake(ctx context.Context, conn *websocket.Conn, password string) error {
	var env envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		return fmt.Errorf("obsws: read hello: %w", err)
	}
	if env.Op != opHello {
		return fmt.Errorf("obsws: expected hello (op %d), got op %d", opHello, env.Op)
	}

	var hello helloData
	if err := json.Unmarshal(env.D, &hello); err != nil {
		return fmt.Errorf("obsws: parse hello: %w", err)
	}

	identify := identifyData{
		RPCVersion:         hello.RPCVersion,
		EventSubscriptions: c.opts.EventSubscriptions,
	}
	if hello.Authentication != nil {
		identify.Authentication = authResponse(password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}

	if err := writeEnvelope(ctx, conn, opIdentify, identify); err != nil {
		return fmt.Errorf("obsws: send identify: %w", err)
	}

	if err := wsjson.Read(ctx, conn, &env); err != nil {
		if websocket.CloseStatus(err) == 4009 {
			return errors.New("obsws: authentication failed")
		}
		return fmt.Errorf("obsws: read identified: %w", err)
	}
	if env.Op != opIdentified {
		return fmt.Errorf("obsws: expected identified (op %d), got op %d", opIdentified, env.Op)
	}

	return nil
}

// Close shuts down the current connection. It is a no-op when already
// disconnected. Cleanup (failing pending calls, closing the event channel)
// happens in the read loop's teardown path, so Close never races event
// delivery.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	return conn.Close(websocket.StatusNormalClosure, "client closed")
}

// Events returns the event channel of the current connection. The channel is
// closed when the connection drops; that closure is the connection-closed
// signal. Returns nil when Connect has never succeeded.
func (c *Client) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Call sends a request and waits for its correlated response. A non-success
// status is returned as *RequestError. When dest is non-nil the response
// data is unmarshaled into it.
func (c *Client) Call(ctx context.Context, requestType string, params, dest any) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	id := uuid.NewString()
	ch := make(chan replyData, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := requestData{
		RequestType: requestType,
		RequestID:   id,
		RequestData: params,
	}

	c.writeMu.Lock()
	err := writeEnvelope(ctx, conn, opRequest, req)
	c.writeMu.Unlock()
	if err != nil {
		c.forgetPending(id)
		return fmt.Errorf("obsws: send %s: %w", requestType, err)
	}

	select {
	case <-ctx.Done():
		c.forgetPending(id)
		return fmt.Errorf("obsws: %s: %w", requestType, ctx.Err())
	case reply, ok := <-ch:
		if !ok {
			return fmt.Errorf("obsws: %s: connection closed: %w", requestType, ErrNotConnected)
		}
		if !reply.RequestStatus.Result {
			return &RequestError{
				Type:    requestType,
				Code:    reply.RequestStatus.Code,
				Comment: reply.RequestStatus.Comment,
			}
		}
		if dest != nil && len(reply.ResponseData) > 0 {
			if err := json.Unmarshal(reply.ResponseData, dest); err != nil {
				return fmt.Errorf("obsws: decode %s response: %w", requestType, err)
			}
		}
		return nil
	}
}

// forgetPending removes a pending entry without delivering to it.
func (c *Client) forgetPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// readLoop demultiplexes inbound frames into pending-call channels and the
// event channel until the connection fails, then tears the connection down.
func (c *Client) readLoop(conn *websocket.Conn, events chan Event) {
	for {
		var env envelope
		if err := wsjson.Read(context.Background(), conn, &env); err != nil {
			c.teardown(conn, err)
			return
		}

		switch env.Op {
		case opEvent:
			var ev eventData
			if err := json.Unmarshal(env.D, &ev); err != nil {
				c.log.Warn().Err(err).Msg("obsws: malformed event")
				continue
			}
			select {
			case events <- Event{Type: ev.EventType, Data: ev.EventData}:
			default:
				c.log.Warn().Str("event", ev.EventType).Msg("obsws: event buffer full, dropping")
			}
		case opRequestReply:
			var reply replyData
			if err := json.Unmarshal(env.D, &reply); err != nil {
				c.log.Warn().Err(err).Msg("obsws: malformed request reply")
				continue
			}
			c.mu.Lock()
			ch, ok := c.pending[reply.RequestID]
			if ok {
				delete(c.pending, reply.RequestID)
			}
			c.mu.Unlock()
			if ok {
				ch <- reply
			}
		default:
			// Opcodes this client never receives (e.g. reidentify replies).
		}
	}
}

// teardown releases connection resources exactly once per connection: fails
// outstanding calls and closes the event channel of that connection.
func (c *Client) teardown(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	pending := c.pending
	c.pending = nil
	events := c.events
	c.mu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")

	for _, ch := range pending {
		close(ch)
	}
	close(events)

	if status := websocket.CloseStatus(cause); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
		c.log.Debug().Err(cause).Msg("obsws: connection closed")
	}
}

// writeEnvelope marshals payload and writes it wrapped in the given opcode.
func writeEnvelope(ctx context.Context, conn *websocket.Conn, op int, payload any) error {
	d, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return wsjson.Write(ctx, conn, envelope{Op: op, D: d})
}

// normalizeAddress turns a user-supplied address into a dialable websocket
// URL: a bare host gets the ws scheme, http/https schemes are rewritten to
// ws/wss, and a missing port defaults to 4455.
func normalizeAddress(address string) (string, error) {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return "", errors.New("empty address")
	}

	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}

	switch {
	case strings.HasPrefix(addr, "https://"):
		addr = "wss://" + addr[len("https://"):]
	case strings.HasPrefix(addr, "http://"):
		addr = "ws://" + addr[len("http://"):]
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), defaultPort)
	}

	return u.String(), nil
}
