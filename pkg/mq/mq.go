package mq

import (
	"context"
	"errors"
	"sync"

	"github.com/daehee87/fuzzing-bot/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type RabbitMQ interface {
	GetChannel() (*amqp.Channel, error)
}

// rabbitMQImpl keeps one connection open and redials on demand after the
// broker closes it.
type rabbitMQImpl struct {
	logger      *zap.Logger
	rabbitmqUrl string
	context     context.Context

	conn   *amqp.Connection
	closed bool
	mu     sync.Mutex
}

type RabbitMQParams struct {
	fx.In

	Config    *config.AppConfig
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// NewRabbitMQ returns nil when RABBITMQ_URL is not set.
func NewRabbitMQ(p RabbitMQParams) RabbitMQ {
	if p.Config.RabbitMQURL == "" {
		p.Logger.Debug("RABBITMQ_URL not set, report events disabled")
		return nil
	}

	mqCtx, cancel := context.WithCancel(context.Background())
	svc := &rabbitMQImpl{
		logger:      p.Logger.Named("mq"),
		rabbitmqUrl: p.Config.RabbitMQURL,
		context:     mqCtx,
		closed:      true,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := svc.activeConnection(); err != nil {
				// the broker is optional, keep running and retry on publish
				svc.logger.Warn("RabbitMQ unavailable at startup", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			svc.mu.Lock()
			defer svc.mu.Unlock()
			if svc.conn != nil && !svc.conn.IsClosed() {
				return svc.conn.Close()
			}
			return nil
		},
	})
	return svc
}

func (r *rabbitMQImpl) activeConnection() (*amqp.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.context.Err() != nil {
		return nil, errors.New("rabbitmq client stopped")
	}
	if r.conn != nil && !r.closed {
		return r.conn, nil
	}

	conn, err := amqp.Dial(r.rabbitmqUrl)
	if err != nil {
		return nil, err
	}
	r.conn = conn
	r.closed = false
	go r.monitor(conn)

	return conn, nil
}

// monitor the connection. This function is blocking and is intended to be called in a go routine.
func (r *rabbitMQImpl) monitor(conn *amqp.Connection) {
	closeChan := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case err := <-closeChan:
		r.logger.Warn("RabbitMQ connection closed", zap.Error(err))
		r.mu.Lock()
		if r.conn == conn {
			r.closed = true
		}
		r.mu.Unlock()
	case <-r.context.Done():
	}
}

func (r *rabbitMQImpl) GetChannel() (*amqp.Channel, error) {
	conn, err := r.activeConnection()
	if err != nil {
		return nil, err
	}
	return conn.Channel()
}
