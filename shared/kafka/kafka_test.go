package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"skitbot/common"
	"skitbot/types"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestCompositionRequestHandler(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		startErr  error
		wantMark  bool
		wantErr   bool
		wantStart bool
	}{
		{"valid", `{"template_id":"t1","plot":"a heist","subtitle_position":"top"}`, nil, true, false, true},
		{"malformed json", `{"template_id":`, nil, true, true, false},
		{"missing plot", `{"template_id":"t1"}`, nil, true, true, false},
		{"bad position", `{"template_id":"t1","plot":"p","subtitle_position":"left"}`, nil, true, true, false},
		{"template missing", `{"template_id":"gone","plot":"p"}`, common.NewNotFoundError("template", "gone"), true, true, true},
		{"no characters", `{"template_id":"t1","plot":"p"}`, common.NewValidationError("template t1 has no characters assigned"), true, true, true},
		{"store down", `{"template_id":"t1","plot":"p"}`, errors.New("connection refused"), false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *types.CompositionRequest
			h := NewCompositionRequestHandler(func(ctx context.Context, req types.CompositionRequest) error {
				got = &req
				return tt.startErr
			})
			mark, err := h.HandleMessage(context.Background(), []byte(tt.message))
			if mark != tt.wantMark {
				t.Fatalf("mark = %v; want %v", mark, tt.wantMark)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v; wantErr %v", err, tt.wantErr)
			}
			if (got != nil) != tt.wantStart {
				t.Fatalf("start called = %v; want %v", got != nil, tt.wantStart)
			}
		})
	}
}

func TestCompositionRequestHandlerPassesFields(t *testing.T) {
	var got types.CompositionRequest
	h := NewCompositionRequestHandler(func(ctx context.Context, req types.CompositionRequest) error {
		got = req
		return nil
	})
	msg := `{"template_id":"t1","plot":"a heist","title":"The Job","subtitle_position":"center"}`
	if _, err := h.HandleMessage(context.Background(), []byte(msg)); err != nil {
		t.Fatalf("HandleMessage error: %v", err)
	}
	want := types.CompositionRequest{TemplateID: "t1", Plot: "a heist", Title: "The Job", SubtitlePosition: types.SubtitleCenter}
	if got != want {
		t.Fatalf("request = %+v; want %+v", got, want)
	}
}

func TestEventProducerPublish(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)

	var sent types.CompositionEvent
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		return json.Unmarshal(val, &sent)
	})

	p := NewEventProducerWith(mock, "composition-events")
	event := types.CompositionEvent{ID: "c1", Status: types.StatusCompleted, Progress: 100, OutputURL: "https://x/out.mp4"}
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if sent != event {
		t.Fatalf("sent = %+v; want %+v", sent, event)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestEventProducerPublishFailure(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewEventProducerWith(mock, "composition-events")
	err := p.Publish(context.Background(), types.CompositionEvent{ID: "c1", Status: types.StatusFailed})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("Publish error = %v; want ErrOutOfBrokers", err)
	}
	_ = p.Close()
}
