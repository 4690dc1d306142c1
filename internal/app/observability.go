package app

import (
	"context"
	"sync"

	"github.com/Egor213/JewelCRM/internal/broker"
	kafkabroker "github.com/Egor213/JewelCRM/internal/broker/kafka"
	"github.com/Egor213/JewelCRM/internal/config"
	"github.com/Egor213/JewelCRM/internal/controller/http/middleware"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/repo"
	log "github.com/sirupsen/logrus"
)

// newEventSink builds the sink named in the config. The returned producer is
// nil unless Kafka is involved.
func newEventSink(cfg config.Log, kafkaCfg config.Kafka, repos *repo.Repositories) (eventlog.Sink, broker.Producer) {
	newProducer := func() *kafkabroker.Producer {
		return kafkabroker.NewProducer(kafkabroker.ProducerConfig{
			Brokers: kafkaCfg.Brokers,
			Topic:   kafkaCfg.Topic,
		})
	}

	switch cfg.Sink {
	case config.LogSinkKafka:
		producer := newProducer()
		return eventlog.NewKafkaSink(producer), producer
	case config.LogSinkPostgres:
		return eventlog.NewRepoSink(repos.EventLogs), nil
	case config.LogSinkAll:
		producer := newProducer()
		return eventlog.MultiSink{eventlog.NewKafkaSink(producer), eventlog.NewRepoSink(repos.EventLogs)}, producer
	case config.LogSinkNone, "":
		return nil, nil
	default:
		log.WithField("sink", cfg.Sink).Warn("Unknown log sink, flushed entries will be dropped")
		return nil, nil
	}
}

func newRateLimiter(ctx context.Context, cfg config.RateLimit, redisCfg config.Redis) middleware.RateLimiter {
	if cfg.Backend == config.RateLimitRedis {
		rl, err := middleware.NewRedisRateLimiter(ctx, redisCfg.Addr, redisCfg.Password, redisCfg.DB)
		if err == nil {
			log.WithField("addr", redisCfg.Addr).Info("Using Redis rate limiter")
			return rl
		}
		log.WithError(err).Warn("Redis unavailable, falling back to in-memory rate limiter")
	}
	return middleware.NewMemoryRateLimiter()
}

// loop runs a flush loop until stopped. Stop cancels it and waits for the
// final flush.
type loop struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func startLoop(run func(ctx context.Context)) *loop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{cancel: cancel}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		run(ctx)
	}()
	return l
}

func (l *loop) Stop() {
	l.cancel()
	l.wg.Wait()
}
