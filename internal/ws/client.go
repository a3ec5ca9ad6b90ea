package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/crewchat-hq/crewchat/internal/chat"
	"github.com/crewchat-hq/crewchat/internal/member"
	"github.com/crewchat-hq/crewchat/internal/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer. A peer that
	// stops answering pings is reaped here, which bounds how long a dead
	// connection can sit in the presence registry.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound command size in bytes.
	maxCommandSize = 4096

	// Outbound queue depth per connection.
	sendQueueSize = 64

	commandTimeout = 10 * time.Second
)

var (
	errConnClosed = errors.New("connection closed")
	errQueueFull  = errors.New("send queue full")
)

// Command is an inbound client message.
type Command struct {
	Type       string `json:"type"` // "join", "send_broadcast", "send_direct"
	ProjectID  int64  `json:"project_id"`
	ToUserID   int64  `json:"to_user_id,omitempty"`
	ToUsername string `json:"to_username,omitempty"`
	Text       string `json:"text,omitempty"`
}

// frame is an outbound server message: either a feed event or a structured
// command error.
type frame struct {
	Event *models.Event `json:"event,omitempty"`
	Error *frameError   `json:"error,omitempty"`
}

type frameError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Client is one WebSocket connection. It implements presence.Conn: the
// registry and the feeds hold it as the push handle for its user.
type Client struct {
	id        uuid.UUID
	conn      *websocket.Conn
	router    *chat.Router
	directory member.Directory
	logger    zerolog.Logger

	userID   int64
	username string

	send      chan frame
	done      chan struct{}
	closeOnce sync.Once

	// join state, owned by the read pump
	joined    bool
	projectID int64
}

func newClient(conn *websocket.Conn, router *chat.Router, directory member.Directory, userID int64, username string, logger zerolog.Logger) *Client {
	id := uuid.New()
	return &Client{
		id:        id,
		conn:      conn,
		router:    router,
		directory: directory,
		userID:    userID,
		username:  username,
		send:      make(chan frame, sendQueueSize),
		done:      make(chan struct{}),
		logger: logger.With().
			Str("conn_id", id.String()).
			Int64("user_id", userID).
			Logger(),
	}
}

// ID returns the connection id used for registry entry ownership.
func (c *Client) ID() uuid.UUID { return c.id }

// Push enqueues an event for delivery. It never blocks: a closed connection
// or a full queue is an error, and for direct messages the caller leaves the
// row pending so reconciliation picks it up later.
func (c *Client) Push(ev models.Event) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- frame{Event: &ev}:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errQueueFull
	}
}

// Close tears the connection down. Safe to call more than once and from any
// goroutine; the router uses it to force-close a displaced session.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// pushError reports a command failure to this connection.
func (c *Client) pushError(kind, message string) {
	select {
	case c.send <- frame{Error: &frameError{Kind: kind, Message: message}}:
	case <-c.done:
	default:
	}
}

// readPump reads commands until the connection dies, then runs the
// disconnect path exactly once. The raw conn is closed by writePump after it
// has drained the queue, so frames enqueued just before teardown still go out.
func (c *Client) readPump() {
	defer func() {
		if c.joined {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			c.router.Disconnect(ctx, c.projectID, c.userID, c)
			cancel()
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxCommandSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("read failed")
			}
			return
		}
		if closed := c.handleCommand(data); closed {
			return
		}
	}
}

// handleCommand dispatches one inbound command. It returns true when the
// connection must be torn down (rejected join).
func (c *Client) handleCommand(data []byte) bool {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.pushError("BAD_REQUEST", "invalid JSON command")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Type {
	case "join":
		return c.handleJoin(ctx, cmd)
	case "send_broadcast":
		c.handleSendBroadcast(ctx, cmd)
	case "send_direct":
		c.handleSendDirect(ctx, cmd)
	default:
		c.pushError("BAD_REQUEST", "unknown command type")
	}
	return false
}

func (c *Client) handleJoin(ctx context.Context, cmd Command) bool {
	if c.joined {
		c.pushError("BAD_REQUEST", "already joined")
		return false
	}
	if cmd.ProjectID == 0 {
		c.pushError("BAD_REQUEST", "project_id is required")
		return false
	}

	if err := c.router.Join(ctx, cmd.ProjectID, c.userID, c); err != nil {
		c.reportError(err)
		// A connection that fails to join holds no state; drop it.
		return true
	}

	c.joined = true
	c.projectID = cmd.ProjectID
	c.logger.Info().Int64("project_id", cmd.ProjectID).Msg("joined project")
	return false
}

func (c *Client) handleSendBroadcast(ctx context.Context, cmd Command) {
	if !c.requireJoined() || !c.requireText(cmd.Text) {
		return
	}
	projectID := cmd.ProjectID
	if projectID == 0 {
		projectID = c.projectID
	}

	if err := c.router.SendBroadcast(ctx, projectID, c.userID, cmd.Text); err != nil {
		c.reportError(err)
	}
}

func (c *Client) handleSendDirect(ctx context.Context, cmd Command) {
	if !c.requireJoined() || !c.requireText(cmd.Text) {
		return
	}
	projectID := cmd.ProjectID
	if projectID == 0 {
		projectID = c.projectID
	}

	toUserID := cmd.ToUserID
	if toUserID == 0 {
		if cmd.ToUsername == "" {
			c.pushError("BAD_REQUEST", "to_user_id or to_username is required")
			return
		}
		id, err := c.directory.UserIDForUsername(ctx, cmd.ToUsername)
		if err != nil {
			if errors.Is(err, member.ErrUserNotFound) {
				c.pushError(string(chat.KindUnknownUser), "no such user: "+cmd.ToUsername)
			} else {
				c.pushError("INTERNAL", "lookup failed")
			}
			return
		}
		toUserID = id
	}

	if err := c.router.SendDirect(ctx, projectID, c.userID, toUserID, cmd.Text); err != nil {
		c.reportError(err)
	}
}

func (c *Client) requireJoined() bool {
	if !c.joined {
		c.pushError("BAD_REQUEST", "join a project first")
		return false
	}
	return true
}

func (c *Client) requireText(text string) bool {
	if text == "" {
		c.pushError("BAD_REQUEST", "text is required")
		return false
	}
	return true
}

// reportError translates a router failure into a structured error frame.
func (c *Client) reportError(err error) {
	if kind, ok := chat.KindOf(err); ok {
		var ce *chat.Error
		errors.As(err, &ce)
		c.pushError(string(kind), ce.Message)
		return
	}
	c.logger.Error().Err(err).Msg("command failed")
	c.pushError("INTERNAL", "internal error")
}

// writePump drains the send queue, keeps the connection alive with pings,
// and writes the close frame when the client is shut down.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case fr := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(fr); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			// Flush anything already queued, then say goodbye.
			for {
				select {
				case fr := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteJSON(fr); err != nil {
						return
					}
				default:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = c.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}
