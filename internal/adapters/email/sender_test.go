package email

import (
	"context"
	"errors"
	"testing"
)

type countingRecorder map[string]int

// EmailSent counts one outcome.
func (c countingRecorder) EmailSent(outcome string) { c[outcome]++ }

type failingSender struct {
	okBeforeFail int
}

// Send always fails.
func (f *failingSender) Send(context.Context, SendRequest) (SendResult, error) {
	return SendResult{}, errors.New("provider down")
}

// SendBatch succeeds for the first okBeforeFail requests, then fails.
func (f *failingSender) SendBatch(_ context.Context, reqs []SendRequest) ([]SendResult, error) {
	n := min(f.okBeforeFail, len(reqs))
	return make([]SendResult, n), errors.New("provider down")
}

func TestNoopSender(t *testing.T) {
	s := NewNoopSender()
	res, err := s.Send(context.Background(), SendRequest{To: []string{"staff@communaute.fr"}, Subject: "Suivi"})
	if err != nil || res.MessageID == "" {
		t.Fatalf("Send = %+v, %v", res, err)
	}
	if _, err := s.Send(context.Background(), SendRequest{Subject: "nobody"}); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("err = %v, want ErrNoRecipients", err)
	}
	batch, err := s.SendBatch(context.Background(), []SendRequest{{To: []string{"a@x.fr"}}, {To: []string{"b@x.fr"}}})
	if err != nil || len(batch) != 2 {
		t.Errorf("SendBatch = %d results, %v", len(batch), err)
	}
}

func TestMetered(t *testing.T) {
	tests := []struct {
		name       string
		sender     Sender
		batch      int
		wantSent   int
		wantFailed int
	}{
		{"noop single", NewNoopSender(), 0, 1, 0},
		{"noop batch", NewNoopSender(), 3, 3, 0},
		{"failing single", &failingSender{}, 0, 0, 1},
		{"partial batch", &failingSender{okBeforeFail: 2}, 5, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := countingRecorder{}
			m := NewMetered(tt.sender, rec)
			req := SendRequest{To: []string{"staff@communaute.fr"}}
			if tt.batch == 0 {
				m.Send(context.Background(), req)
			} else {
				reqs := make([]SendRequest, tt.batch)
				for i := range reqs {
					reqs[i] = req
				}
				m.SendBatch(context.Background(), reqs)
			}
			if rec[OutcomeSent] != tt.wantSent || rec[OutcomeFailed] != tt.wantFailed {
				t.Errorf("sent=%d failed=%d, want %d/%d", rec[OutcomeSent], rec[OutcomeFailed], tt.wantSent, tt.wantFailed)
			}
		})
	}
}

func TestMetered_NilRecorder(t *testing.T) {
	m := NewMetered(NewNoopSender(), nil)
	if _, err := m.Send(context.Background(), SendRequest{To: []string{"a@x.fr"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
