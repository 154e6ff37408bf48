package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/logger"
)

const SubjectPrefix = "flappyjet.rooms."

// NATS publishes room messages on flappyjet.rooms.<room> so every instance
// (and any external socket gateway) sees them.
type NATS struct {
	conn *nats.Conn
	log  *zap.SugaredLogger
}

func NewNATS(url string, log *zap.SugaredLogger) (*NATS, error) {
	log = logger.OrNop(log)
	nc, err := nats.Connect(url,
		nats.Name("flappyjet-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warnw("[REALTIME] NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infow("[REALTIME] NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATS{conn: nc, log: log}, nil
}

func (n *NATS) Broadcast(_ context.Context, room string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return n.conn.Publish(SubjectPrefix+room, data)
}

// Relay feeds every room message received from NATS into the local hub.
// The returned func unsubscribes.
func (n *NATS) Relay(hub *Hub) (func(), error) {
	sub, err := n.conn.Subscribe(SubjectPrefix+">", func(m *nats.Msg) {
		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			n.log.Warnw("[REALTIME] undecodable NATS message", "subject", m.Subject, "error", err)
			return
		}
		_ = hub.Broadcast(context.Background(), strings.TrimPrefix(m.Subject, SubjectPrefix), msg)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s>: %w", SubjectPrefix, err)
	}
	if err := n.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
