package cargoflow

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10
)

// TrackingHandler receives pushed tracking payloads
type TrackingHandler func(payload *TrackingPayload)

// TrackingWebSocket receives real-time tracking events pushed by Cargoes
// Flow, as a lower-latency complement to the periodic REST sync. Push events
// go through the same handler path as polled payloads, so a dropped
// connection degrades to polling rather than losing updates.
type TrackingWebSocket struct {
	url        string
	apiKey     string
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex

	handler TrackingHandler
	log     zerolog.Logger

	connected bool
	stopChan  chan struct{}
	stopped   bool
}

// NewTrackingWebSocket creates a new tracking websocket client
func NewTrackingWebSocket(url, apiKey string, handler TrackingHandler, log zerolog.Logger) *TrackingWebSocket {
	return &TrackingWebSocket{
		url:      url,
		apiKey:   apiKey,
		handler:  handler,
		log:      log.With().Str("component", "tracking_websocket").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start initializes the websocket connection and starts the read loop
func (ws *TrackingWebSocket) Start() error {
	ws.log.Info().Msg("Starting tracking websocket client")

	if err := ws.Connect(); err != nil {
		ws.log.Warn().Err(err).Msg("Initial websocket connection failed, will retry in background")
		go ws.reconnectLoop()
		return err
	}

	ws.mu.RLock()
	ctx := ws.connCtx
	ws.mu.RUnlock()
	go ws.readMessages(ctx)

	return nil
}

// Stop gracefully shuts down the websocket connection
func (ws *TrackingWebSocket) Stop() error {
	ws.mu.Lock()
	if ws.stopped {
		ws.mu.Unlock()
		return nil
	}
	ws.stopped = true
	ws.mu.Unlock()

	ws.log.Info().Msg("Stopping tracking websocket client")
	close(ws.stopChan)

	return ws.Disconnect()
}

// Connect establishes the websocket connection and subscribes to the
// tracking channel
func (ws *TrackingWebSocket) Connect() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.log.Info().Str("url", ws.url).Msg("Connecting to Cargoes Flow websocket")

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, ws.url+"?apiKey="+ws.apiKey, nil)
	if err != nil {
		return fmt.Errorf("failed to dial websocket: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	ws.conn = conn
	ws.connCtx = connCtx
	ws.cancelFunc = connCancel
	ws.connected = true

	if err := ws.subscribe(connCtx); err != nil {
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		ws.conn = nil
		ws.connCtx = nil
		ws.cancelFunc = nil
		ws.connected = false
		return fmt.Errorf("failed to subscribe to tracking channel: %w", err)
	}

	ws.log.Info().Msg("Connected to Cargoes Flow websocket")
	return nil
}

// Disconnect closes the websocket connection
func (ws *TrackingWebSocket) Disconnect() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.conn == nil {
		return nil
	}

	if ws.cancelFunc != nil {
		ws.cancelFunc()
		ws.cancelFunc = nil
	}

	err := ws.conn.Close(websocket.StatusNormalClosure, "")
	ws.conn = nil
	ws.connCtx = nil
	ws.connected = false

	if err != nil {
		return fmt.Errorf("error closing websocket: %w", err)
	}
	return nil
}

// IsConnected reports the current connection state
func (ws *TrackingWebSocket) IsConnected() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.connected
}

// subscribe sends the subscription message for the tracking channel
func (ws *TrackingWebSocket) subscribe(ctx context.Context) error {
	// Cargoes Flow websocket protocol: ["subscribe", "tracking"]
	data, err := json.Marshal([]string{"subscribe", "tracking"})
	if err != nil {
		return fmt.Errorf("failed to marshal subscription message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := ws.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send subscription message: %w", err)
	}

	return nil
}

// readMessages continuously reads messages from the websocket
func (ws *TrackingWebSocket) readMessages(ctx context.Context) {
	defer func() {
		ws.log.Info().Msg("Read loop stopped")
		ws.mu.RLock()
		stopped := ws.stopped
		ws.mu.RUnlock()
		if !stopped {
			go ws.reconnectLoop()
		}
	}()

	for {
		select {
		case <-ws.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		ws.mu.RLock()
		conn := ws.conn
		ws.mu.RUnlock()

		if conn == nil {
			ws.log.Warn().Msg("Connection is nil, stopping read loop")
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				ws.log.Info().Int("status", int(closeStatus)).Msg("Websocket closed normally")
			} else if ctx.Err() != nil {
				ws.log.Debug().Msg("Read cancelled by context")
			} else {
				ws.log.Error().Err(err).Msg("Unexpected websocket read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if err := ws.handleMessage(message); err != nil {
			ws.log.Error().Err(err).Str("message", string(message)).Msg("Failed to handle websocket message")
			// Continue reading despite parse errors
		}
	}
}

// handleMessage parses one pushed message and hands the payload to the handler
func (ws *TrackingWebSocket) handleMessage(message []byte) error {
	// Protocol: ["tracking", payload]
	var rawMessage []json.RawMessage
	if err := json.Unmarshal(message, &rawMessage); err != nil {
		return fmt.Errorf("failed to parse message array: %w", err)
	}
	if len(rawMessage) < 2 {
		return fmt.Errorf("message array too short: expected 2 elements, got %d", len(rawMessage))
	}

	var channel string
	if err := json.Unmarshal(rawMessage[0], &channel); err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}
	if channel != "tracking" {
		return nil
	}

	var payload TrackingPayload
	if err := json.Unmarshal(rawMessage[1], &payload); err != nil {
		return fmt.Errorf("failed to parse tracking payload: %w", err)
	}
	if payload.ContainerNumber == "" {
		return fmt.Errorf("tracking payload missing container number")
	}

	if ws.handler != nil {
		ws.handler(&payload)
	}

	return nil
}

// reconnectLoop attempts reconnection with exponential backoff
func (ws *TrackingWebSocket) reconnectLoop() {
	ws.mu.Lock()
	if ws.stopped {
		ws.mu.Unlock()
		return
	}
	ws.mu.Unlock()

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		delay := time.Duration(math.Min(
			float64(baseReconnectDelay)*math.Pow(2, float64(attempt-1)),
			float64(maxReconnectDelay),
		))

		ws.log.Info().
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Scheduling websocket reconnect")

		select {
		case <-ws.stopChan:
			return
		case <-time.After(delay):
		}

		if err := ws.Connect(); err != nil {
			ws.log.Warn().Err(err).Int("attempt", attempt).Msg("Websocket reconnect failed")
			continue
		}

		ws.mu.RLock()
		ctx := ws.connCtx
		ws.mu.RUnlock()
		go ws.readMessages(ctx)
		return
	}

	ws.log.Error().
		Int("attempts", maxReconnectAttempts).
		Msg("Websocket reconnection abandoned; falling back to periodic sync only")
}
