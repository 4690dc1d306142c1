package eventlog

import (
	"context"
	"errors"

	"github.com/Egor213/JewelCRM/internal/broker"
	"github.com/Egor213/JewelCRM/internal/domain"
	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// KafkaSink publishes each entry as a JSON message keyed by request id, so
// one request's entries stay ordered on a single partition.
type KafkaSink struct {
	producer broker.Producer
}

func NewKafkaSink(p broker.Producer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (s *KafkaSink) Write(ctx context.Context, entries []domain.LogEntry) error {
	msgs := make([]broker.Message, 0, len(entries))
	for _, e := range entries {
		value, err := jsonAPI.Marshal(e)
		if err != nil {
			return errorsUtils.WrapPathErr(err)
		}
		var key []byte
		if e.RequestID != "" {
			key = []byte(e.RequestID)
		}
		msgs = append(msgs, broker.Message{Key: key, Value: value})
	}
	return s.producer.SendMessages(ctx, msgs...)
}

type EntryWriter interface {
	InsertLogEntries(ctx context.Context, entries []domain.LogEntry) (int64, error)
}

// RepoSink stores batches in the database.
type RepoSink struct {
	repo EntryWriter
}

func NewRepoSink(w EntryWriter) *RepoSink {
	return &RepoSink{repo: w}
}

func (s *RepoSink) Write(ctx context.Context, entries []domain.LogEntry) error {
	_, err := s.repo.InsertLogEntries(ctx, entries)
	return err
}

// MultiSink writes to every sink and joins the failures.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, entries []domain.LogEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
