package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingPublisher struct {
	subjects []string
	err      error
}

func (r *recordingPublisher) Publish(_ context.Context, subject, _ string, _ any) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func TestAnnounce(t *testing.T) {
	p := &recordingPublisher{}
	Announce(context.Background(), p, SubjectBooking, TypeCreated, map[string]any{"id": 1})
	assert.Equal(t, []string{SubjectBooking}, p.subjects)
}

func TestAnnounce_ErrorIsSwallowed(t *testing.T) {
	p := &recordingPublisher{err: errors.New("nats down")}
	assert.NotPanics(t, func() {
		Announce(context.Background(), p, SubjectEmail, TypeEmailRequest, nil)
	})
}

func TestAnnounce_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		Announce(context.Background(), nil, SubjectBooking, TypeCreated, nil)
	})
}
