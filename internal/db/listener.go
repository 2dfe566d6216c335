package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Channels notified by the insert triggers in migrations/0001_init.up.sql.
const (
	ChannelCallRecords       = "call_records"
	ChannelRemediationEvents = "remediation_events"
	ChannelEvents            = "events"
)

// Notification is one NOTIFY delivered on a subscribed channel.
type Notification struct {
	Channel string
	Payload string
}

// Listener holds one pooled connection in LISTEN mode and forwards
// notifications to a handler.
type Listener struct {
	pool     *Pool
	channels []string
	log      zerolog.Logger

	// reconnectDelay is the pause after losing the connection.
	reconnectDelay time.Duration
}

func NewListener(pool *Pool, log zerolog.Logger, channels ...string) *Listener {
	return &Listener{
		pool:           pool,
		channels:       channels,
		log:            log,
		reconnectDelay: 5 * time.Second,
	}
}

// Run blocks until ctx is done, calling handle for every notification. A lost
// connection is re-acquired after a fixed pause.
func (l *Listener) Run(ctx context.Context, handle func(Notification)) error {
	if l.pool == nil || l.pool.pool == nil {
		return errors.New("listener requires a database pool")
	}
	for {
		err := l.listen(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		l.log.Warn().Err(err).Dur("retry_in", l.reconnectDelay).Msg("notification listener disconnected")

		t := time.NewTimer(l.reconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (l *Listener) listen(ctx context.Context, handle func(Notification)) error {
	pooled, err := l.pool.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	// LISTEN state must not leak back into the pool.
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	for _, ch := range l.channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	l.log.Info().Strs("channels", l.channels).Msg("listening for database notifications")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		handle(Notification{Channel: n.Channel, Payload: n.Payload})
	}
}
