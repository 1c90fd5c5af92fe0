package bus

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	gatewayInitialBackoff = time.Second
	gatewayMaxBackoff     = 30 * time.Second
)

// Gateway bridges a remote hub's websocket event feed onto a local bus,
// for deployments where the hub runs in another process. It reconnects
// with capped exponential backoff until its context is cancelled.
type Gateway struct {
	url    string
	bus    Bus
	logger zerolog.Logger
}

// NewGateway builds a gateway that republishes events from the hub
// socket at wsURL onto dst.
func NewGateway(wsURL string, dst Bus, logger zerolog.Logger) *Gateway {
	return &Gateway{url: wsURL, bus: dst, logger: logger}
}

// Run dials the hub and pumps events until ctx is cancelled. It blocks;
// callers run it in a goroutine.
func (g *Gateway) Run(ctx context.Context) {
	backoff := gatewayInitialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, nil)
		if err != nil {
			g.logger.Warn().Err(err).Str("url", g.url).Msg("hub gateway dial failed")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff *= 2; backoff > gatewayMaxBackoff {
				backoff = gatewayMaxBackoff
			}
			continue
		}

		g.logger.Info().Str("url", g.url).Msg("hub gateway connected")
		backoff = gatewayInitialBackoff
		g.pump(ctx, conn)
	}
}

// pump reads envelopes until the connection drops or ctx is cancelled.
func (g *Gateway) pump(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				g.logger.Warn().Err(err).Msg("hub gateway read failed, reconnecting")
			}
			return
		}

		ev, err := Decode(data)
		if err != nil {
			g.logger.Warn().Err(err).Msg("dropping undecodable gateway event")
			continue
		}
		if err := g.bus.Publish(ctx, ev); err != nil {
			g.logger.Warn().Err(err).Msg("republishing gateway event")
		}
	}
}
