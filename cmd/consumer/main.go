// Command consumer relays room notifications from Kafka to Redis pub/sub,
// where every API instance's hub picks them up.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/transfer-booking/internal/config"
	"github.com/example/transfer-booking/internal/dispatch"
	"github.com/example/transfer-booking/internal/events"
	"github.com/example/transfer-booking/internal/logging"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_consumed_total",
		Help: "Total event messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_invalid_total",
		Help: "Total undecodable messages received",
	})
	msgsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_skipped_total",
		Help: "Total events without a room",
	})
	redisPublishes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_redis_publishes_total",
		Help: "Total successful redis publishes",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_redis_errors_total",
		Help: "Total redis publishes that exhausted their retries",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, msgsSkipped, redisPublishes, redisErrors)
}

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConsumerConfig()
	logger := logging.NewLogger("notification-relay", cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	publisher := &redisAdapter{c: rc}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroupID, MinBytes: 1, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("relay listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroupID)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down relay")
				return
			}
			logger.Warn("kafka read error", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		msgsConsumed.Inc()

		if err := relay(ctx, publisher, m.Value, cfg.MaxRetries, cfg.RetryBackoff); err != nil {
			switch {
			case errors.Is(err, errNoRoom):
				msgsSkipped.Inc()
			case errors.Is(err, errInvalid):
				msgsInvalid.Inc()
				logger.Warn("invalid message", "offset", m.Offset, "err", err)
			default:
				redisErrors.Inc()
				logger.Error("redis publish failed", "offset", m.Offset, "err", err)
			}
			continue
		}
		redisPublishes.Inc()
	}
}

var (
	errNoRoom  = errors.New("event has no room")
	errInvalid = errors.New("invalid event")
)

// relay decodes one topic message and forwards its notification, if any.
func relay(ctx context.Context, p RedisPublisher, value []byte, attempts int, delay time.Duration) error {
	var env events.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return errors.Join(errInvalid, err)
	}
	if env.Room == "" {
		return errNoRoom
	}
	return publishWithRetry(ctx, p, dispatch.Channel(env.Room), env.Message, attempts, delay)
}

// RedisPublisher is the subset of redis operations the relay needs.
type RedisPublisher interface {
	Publish(ctx context.Context, channel, message string) error
}

type redisAdapter struct{ c *redis.Client }

func (r *redisAdapter) Publish(ctx context.Context, channel, message string) error {
	return r.c.Publish(ctx, channel, message).Err()
}

// publishWithRetry retries with doubling delay. It gives up early when ctx ends.
func publishWithRetry(ctx context.Context, p RedisPublisher, channel, message string, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = p.Publish(ctx, channel, message); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
