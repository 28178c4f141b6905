package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/shenikar/speedbump_logger/internal/service"
	"github.com/sirupsen/logrus"
)

const reconnectDelay = 2 * time.Second

// ChangeFeed слушает NOTIFY, которые шлет триггер на вставку в speed_bumps
type ChangeFeed struct {
	db      *pgxpool.Pool
	channel string
	logger  *logrus.Logger
}

func NewChangeFeed(db *pgxpool.Pool, channel string, logger *logrus.Logger) service.ChangeFeed {
	return &ChangeFeed{
		db:      db,
		channel: channel,
		logger:  logger,
	}
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

// Subscribe выполняет LISTEN синхронно, дальше слушает в фоне до Close или отмены ctx.
// При обрыве соединения переподключается.
func (f *ChangeFeed) Subscribe(ctx context.Context, handler func(*models.SpeedBump)) (io.Closer, error) {
	conn, err := f.listen(ctx)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go f.loop(subCtx, conn, handler, sub.done)
	return sub, nil
}

func (f *ChangeFeed) listen(ctx context.Context) (*pgx.Conn, error) {
	pooled, err := f.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for listen: %w", err)
	}
	conn := pooled.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("failed to listen on %s: %w", f.channel, err)
	}
	return conn, nil
}

func (f *ChangeFeed) loop(ctx context.Context, conn *pgx.Conn, handler func(*models.SpeedBump), done chan struct{}) {
	defer close(done)
	log := f.logger.WithFields(logrus.Fields{
		"service": "realtime",
		"channel": f.channel,
	})
	log.Info("Realtime feed subscribed")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			conn.Close(context.Background())
			if ctx.Err() != nil {
				log.Info("Realtime feed closed")
				return
			}
			log.WithError(err).Warn("Realtime connection lost, reconnecting")
			if conn = f.reconnect(ctx, log); conn == nil {
				return
			}
			continue
		}

		var bump models.SpeedBump
		if err := json.Unmarshal([]byte(n.Payload), &bump); err != nil {
			log.WithError(err).Warn("Failed to decode realtime payload")
			continue
		}
		handler(&bump)
	}
}

// reconnect возвращает nil, только если ctx отменен
func (f *ChangeFeed) reconnect(ctx context.Context, log *logrus.Entry) *pgx.Conn {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
		conn, err := f.listen(ctx)
		if err == nil {
			log.Info("Realtime feed resubscribed")
			return conn
		}
		log.WithError(err).Warn("Realtime resubscribe failed")
	}
}
