// Package worker consumes queued play events and applies them to the
// listening ledger.
package worker

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/audio-platform/services/listening/internal/store"
)

const (
	// StreamName holds every listening.* subject.
	StreamName = "LISTENING_EVENTS"
	// SubjectPlay carries queued play writes.
	SubjectPlay = "listening.play"
	// DurablePlay is the pull consumer name for the play subject.
	DurablePlay = "listening_play"
)

// PlayEvent is the queued form of a play write. Producers publish it when
// async writes are enabled instead of hitting the store inline.
type PlayEvent struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	ContentID string    `json:"content_id"`
	Progress  float64   `json:"progress"`
	PlayedAt  time.Time `json:"played_at"`
}

// EnsureStream creates the listening stream when it does not exist yet.
func EnsureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"listening.>"},
		Storage:  nats.FileStorage,
	})
	return err
}

// StartPlayConsumer subscribes to the play subject and applies each event
// through the history store. Poison messages (bad payloads, unknown
// content) are acked and logged; storage outages nak for redelivery.
func StartPlayConsumer(ctx context.Context, nc *nats.Conn, history store.HistoryStore, log *zap.Logger) {
	js, err := nc.JetStream()
	if err != nil {
		log.Error("play consumer: jetstream", zap.Error(err))
		return
	}
	if err := EnsureStream(js); err != nil {
		log.Error("play consumer: ensure stream", zap.Error(err))
		return
	}

	sub, err := js.PullSubscribe(SubjectPlay, DurablePlay)
	if err != nil {
		log.Error("play consumer: subscribe", zap.Error(err))
		return
	}

	go func() {
		batchSize := envInt("WORKER_BATCH_SIZE", 100)
		maxWait := time.Duration(envInt("WORKER_BATCH_INTERVAL_MS", 2000)) * time.Millisecond
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msgs, err := sub.Fetch(batchSize, nats.MaxWait(maxWait))
			if err != nil {
				if err == nats.ErrTimeout {
					continue
				}
				log.Warn("play consumer: fetch", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			for _, m := range msgs {
				handlePlayMessage(ctx, m, history, log)
			}
		}
	}()
}

func handlePlayMessage(ctx context.Context, m *nats.Msg, history store.HistoryStore, log *zap.Logger) {
	ev, err := decodePlayEvent(m.Data)
	if err != nil {
		log.Warn("play consumer: dropping bad payload", zap.Error(err))
		ack(m, log)
		return
	}

	contentID, err := uuid.Parse(ev.ContentID)
	if err != nil {
		log.Warn("play consumer: dropping invalid content id",
			zap.String("event_id", ev.EventID), zap.String("content_id", ev.ContentID))
		ack(m, log)
		return
	}

	_, _, err = history.RecordPlay(ctx, ev.UserID, contentID, ev.Progress, ev.PlayedAt)
	switch status.Code(err) {
	case codes.OK:
		ack(m, log)
	case codes.NotFound, codes.InvalidArgument:
		// Unrecoverable for this event; redelivery would loop forever.
		log.Warn("play consumer: dropping unprocessable event",
			zap.String("event_id", ev.EventID), zap.Error(err))
		ack(m, log)
	default:
		log.Warn("play consumer: transient failure, requeueing",
			zap.String("event_id", ev.EventID), zap.Error(err))
		if err := m.Nak(); err != nil {
			log.Warn("play consumer: nak", zap.Error(err))
		}
	}
}

func decodePlayEvent(data []byte) (PlayEvent, error) {
	var ev PlayEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return PlayEvent{}, err
	}
	if ev.UserID == "" || ev.ContentID == "" {
		return PlayEvent{}, status.Error(codes.InvalidArgument, "missing user or content id")
	}
	if ev.PlayedAt.IsZero() {
		ev.PlayedAt = time.Now()
	}
	return ev, nil
}

func ack(m *nats.Msg, log *zap.Logger) {
	if err := m.Ack(); err != nil {
		log.Warn("play consumer: ack", zap.Error(err))
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
