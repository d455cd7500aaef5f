package email

import (
	"context"
)

// Outcome labels passed to the recorder.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Recorder counts email outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	EmailSent(outcome string)
}

// Metered wraps a Sender and records one outcome per email.
type Metered struct {
	Sender   Sender
	Recorder Recorder
}

// NewMetered wraps next. A nil recorder disables counting.
func NewMetered(next Sender, rec Recorder) *Metered {
	return &Metered{Sender: next, Recorder: rec}
}

func (m *Metered) record(outcome string, n int) {
	if m.Recorder == nil {
		return
	}
	for range n {
		m.Recorder.EmailSent(outcome)
	}
}

// Send implements Sender.
func (m *Metered) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	res, err := m.Sender.Send(ctx, req)
	if err != nil {
		m.record(OutcomeFailed, 1)
		return res, err
	}
	m.record(OutcomeSent, 1)
	return res, nil
}

// SendBatch implements Sender. Emails without a result are counted as failed.
func (m *Metered) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	res, err := m.Sender.SendBatch(ctx, reqs)
	m.record(OutcomeSent, len(res))
	if err != nil {
		m.record(OutcomeFailed, len(reqs)-len(res))
	}
	return res, err
}
