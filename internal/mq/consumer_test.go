package mq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap/zaptest"
)

type recordingAck struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *recordingAck) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestProcessMessage(t *testing.T) {
	tests := []struct {
		name       string
		handlerErr error
		wantAck    int
		wantNack   int
	}{
		{"handled", nil, 1, 0},
		{"failed goes to dead letter", errors.New("invalid reading"), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []byte
			c := &Consumer{
				queue:  "energy-insights.ingest.queue",
				logger: zaptest.NewLogger(t),
				handler: func(ctx context.Context, body []byte) error {
					got = body
					return tt.handlerErr
				},
			}

			ack := &recordingAck{}
			c.processMessage(context.Background(), amqp.Delivery{
				Acknowledger: ack,
				MessageId:    "msg-1",
				Body:         []byte(`{"device_id":"x"}`),
			})

			if string(got) != `{"device_id":"x"}` {
				t.Errorf("handler body = %q", got)
			}
			if ack.acked != tt.wantAck || ack.nacked != tt.wantNack {
				t.Errorf("acked=%d nacked=%d, want %d/%d", ack.acked, ack.nacked, tt.wantAck, tt.wantNack)
			}
			if ack.requeue {
				t.Error("failed messages must not be requeued")
			}
		})
	}
}
