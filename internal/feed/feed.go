// Package feed streams trade executions from the Lightning realtime API
// (JSON-RPC 2.0 over websocket).
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

var log = logrus.WithField("component", "feed")

const readTimeout = 90 * time.Second

type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type channelMessage struct {
	Method string `json:"method"`
	Params struct {
		Channel string          `json:"channel"`
		Message json.RawMessage `json:"message"`
	} `json:"params"`
}

// Executions subscribes to lightning_executions_<product> and delivers
// execution batches until the context is cancelled.
type Executions struct {
	endpoint      string
	channel       string
	reconnectWait time.Duration
	out           chan []bitflyer.Execution
}

func NewExecutions(endpoint, productCode string, reconnectWait time.Duration) *Executions {
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	return &Executions{
		endpoint:      endpoint,
		channel:       "lightning_executions_" + productCode,
		reconnectWait: reconnectWait,
		out:           make(chan []bitflyer.Execution, 16),
	}
}

// C returns the batch channel. It is closed when Run returns.
func (f *Executions) C() <-chan []bitflyer.Execution { return f.out }

// Run maintains the subscription, reconnecting with a fixed wait on any
// failure, until the context is cancelled.
func (f *Executions) Run(ctx context.Context) error {
	defer close(f.out)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.stream(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Warnf("stream interrupted, reconnecting in %s", f.reconnectWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.reconnectWait):
		}
	}
}

func (f *Executions) stream(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock the read loop on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	sub := subscribeRequest{
		JSONRPC: "2.0",
		Method:  "subscribe",
		Params:  map[string]string{"channel": f.channel},
		ID:      1,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	log.WithField("channel", f.channel).Info("subscribed")

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg channelMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Debug("skipping unparseable frame")
			continue
		}
		if msg.Method != "channelMessage" || msg.Params.Channel != f.channel {
			continue
		}

		var execs []bitflyer.Execution
		if err := json.Unmarshal(msg.Params.Message, &execs); err != nil {
			log.WithError(err).Warn("malformed execution batch")
			continue
		}
		if len(execs) == 0 {
			continue
		}

		select {
		case f.out <- execs:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
