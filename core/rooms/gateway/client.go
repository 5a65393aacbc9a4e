// Package gateway implements the rooms contract over a websocket room
// gateway: JSON envelopes on text messages, raw audio on binary messages,
// credentials from the gateway's token endpoint.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dkrizanic/frontdesk-core/core/rooms"
)

var _ rooms.Client = (*Client)(nil)

type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer

	conn   *websocket.Conn
	connMu sync.Mutex
	closed bool
}

type Option func(*Client)

// WithHTTPClient overrides the client used for the token endpoint.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithDialer overrides the websocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = dialer }
}

// NewClient creates a gateway client for the service at baseURL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		dialer:     websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Join(ctx context.Context, roomName, identity string, opts ...rooms.JoinOption) error {
	ctx, span := tracer.Start(ctx, "join room")
	defer span.End()

	options := rooms.JoinOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	token, err := fetchToken(ctx, c.httpClient, c.baseURL, roomName, identity)
	if err != nil {
		return fmt.Errorf("failed to fetch room token: %w", err)
	}

	roomURL, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid gateway base url: %w", err)
	}
	switch roomURL.Scheme {
	case "https":
		roomURL.Scheme = "wss"
	default:
		roomURL.Scheme = "ws"
	}
	roomURL.Path = "/rooms/" + roomName
	queryParams := roomURL.Query()
	queryParams.Set("token", token)
	queryParams.Set("identity", identity)
	roomURL.RawQuery = queryParams.Encode()

	conn, _, err := c.dialer.DialContext(ctx, roomURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to open socket connection to room gateway: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.closed = false
	c.connMu.Unlock()

	go c.readAndProcessMessages(ctx, conn, options)

	return nil
}

func (c *Client) PublishData(ctx context.Context, payload []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not joined to a room")
	}
	if err := c.conn.WriteJSON(frame{Type: frameTypeData, Payload: json.RawMessage(payload)}); err != nil {
		return fmt.Errorf("failed to write to room gateway: %w", err)
	}
	return nil
}

func (c *Client) SendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not joined to a room")
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write audio to room gateway: %w", err)
	}
	return nil
}

func (c *Client) Leave(_ context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}

	c.closed = true
	err := c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	if closeErr := c.conn.Close(); err == nil {
		err = closeErr
	}
	c.conn = nil

	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}
	return nil
}

func (c *Client) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, options rooms.JoinOptions) {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			c.connMu.Lock()
			deliberate := c.closed
			c.conn = nil
			c.connMu.Unlock()

			if !deliberate {
				if err.Error() != "websocket: close 1000 (normal)" {
					log.Println("Failed to read room gateway message", "error", err)
				}
				if options.DisconnectedCallback != nil {
					options.DisconnectedCallback(err.Error())
				}
			}
			conn.Close()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if options.AudioCallback != nil {
				options.AudioCallback(msg)
			}
		case websocket.TextMessage:
			c.processMessage(ctx, msg, options)
		}
	}
}

func (c *Client) processMessage(_ context.Context, msg []byte, options rooms.JoinOptions) {
	var parsedMsg frame
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		log.Println("Failed to unmarshal room gateway message", "error", err)
		return
	}

	switch parsedMsg.Type {
	case frameTypeData:
		if options.DataCallback != nil {
			options.DataCallback(parsedMsg.Payload)
		}
	case frameTypeTranscription:
		if options.TranscriptionCallback == nil {
			return
		}
		segments := make([]rooms.TranscriptionSegment, 0, len(parsedMsg.Segments))
		for _, segment := range parsedMsg.Segments {
			segments = append(segments, rooms.TranscriptionSegment{Text: segment.Text})
		}
		participant := rooms.Participant{}
		if parsedMsg.Participant != nil {
			participant.Identity = parsedMsg.Participant.Identity
			participant.IsAgent = parsedMsg.Participant.IsAgent
		}
		options.TranscriptionCallback(segments, participant)
	case frameTypeDisconnect:
		if options.DisconnectedCallback != nil {
			options.DisconnectedCallback(parsedMsg.Reason)
		}
	}
}
