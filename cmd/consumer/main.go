// The consumer feeds the candidate pool: it reads service-request
// templates from Kafka and keeps them in the redis set the dispatcher
// samples offers from.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/roadside-dispatch/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_templates_consumed_total",
		Help: "Total request template messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_templates_invalid_total",
		Help: "Total invalid template messages received",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total successful redis updates",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisUpdates, redisErrors)
}

func main() {
	// allow some flags for local runs
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	brokersEnv := os.Getenv("KAFKA_BROKERS")
	brokers := []string{}
	if brokersEnv != "" {
		for _, b := range strings.Split(brokersEnv, ",") {
			if s := strings.TrimSpace(b); s != "" {
				brokers = append(brokers, s)
			}
		}
	} else {
		brokers = []string{"localhost:9092"}
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "request-templates"
	}
	group := os.Getenv("KAFKA_GROUP")
	if group == "" {
		group = "roadside-dispatch-consumer"
	}
	poolKey := os.Getenv("REDIS_POOL_KEY")
	if poolKey == "" {
		poolKey = "request_templates"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rc := redis.NewClient(&redis.Options{Addr: redisAddr})
	sink := &redisSink{c: rc}

	// start metrics and health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			// readiness: check redis connectivity
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		log.Printf("metrics/health listening on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, GroupID: group, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	log.Printf("consumer listening topic=%s brokers=%v group=%s pool=%s", topic, brokers, group, poolKey)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("shutting down consumer")
				return
			}
			log.Printf("kafka read error: %v; backing off %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		// reset backoff on success
		backoff = time.Second

		msgsConsumed.Inc()

		tmpl, err := validateTemplate(m.Value)
		if err != nil {
			msgsInvalid.Inc()
			log.Printf("invalid template: %v", err)
			continue
		}

		if err := addTemplateWithRetry(ctx, sink, poolKey, tmpl, 3, 200*time.Millisecond); err != nil {
			redisErrors.Inc()
			log.Printf("redis update failed for template type=%s: %v", tmpl.ServiceTypeID, err)
			continue
		}
		redisUpdates.Inc()
	}
}

// validateTemplate rejects messages the dispatcher could not turn into
// a sensible offer.
func validateTemplate(raw []byte) (models.RequestTemplate, error) {
	var t models.RequestTemplate
	if err := json.Unmarshal(raw, &t); err != nil {
		return t, err
	}
	if t.ServiceTypeID == "" {
		return t, errors.New("missing service_type_id")
	}
	if t.OriginAddress == "" {
		return t, errors.New("missing origin_address")
	}
	if t.Origin == (models.Coord{}) && t.Destination == (models.Coord{}) {
		return t, errors.New("missing coordinates")
	}
	return t, nil
}

// TemplateSink defines the small subset of redis operations we need
// for tests and production.
type TemplateSink interface {
	AddTemplate(ctx context.Context, key string, raw []byte) error
}

type redisSink struct{ c *redis.Client }

func (r *redisSink) AddTemplate(ctx context.Context, key string, raw []byte) error {
	return r.c.SAdd(ctx, key, raw).Err()
}

// addTemplateWithRetry writes the template through the TemplateSink
// with retry/backoff.
func addTemplateWithRetry(ctx context.Context, sink TemplateSink, key string, t models.RequestTemplate, attempts int, delay time.Duration) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	for i := 0; i < attempts; i++ {
		if err := sink.AddTemplate(ctx, key, raw); err != nil {
			if i == attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		return nil
	}
	return nil
}
