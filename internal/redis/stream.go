package redisclient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/testcenter-scheduler/internal/appointment"
)

// StreamAdder is the part of *redis.Client the sink uses.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamSink appends scheduler events to a Redis stream, trimming it to
// roughly maxLen entries.
type StreamSink struct {
	rdb    StreamAdder
	stream string
	maxLen int64
}

func NewStreamSink(rdb StreamAdder, stream string, maxLen int64) *StreamSink {
	return &StreamSink{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *StreamSink) Name() string {
	return "redis"
}

func (s *StreamSink) Deliver(ctx context.Context, ev appointment.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"id":      ev.ID.String(),
			"type":    ev.Type,
			"slot_id": strconv.FormatInt(int64(ev.SlotID), 10),
			"payload": string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
