// Package displaytest provides an in-memory display.Transport for tests.
package displaytest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/m3rciful/listingbot/internal/display"
	"github.com/m3rciful/listingbot/internal/session"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("displaytest: injected failure")

// Op names a transport call.
type Op string

const (
	OpSend   Op = "send"
	OpEdit   Op = "edit"
	OpCard   Op = "card"
	OpDelete Op = "delete"
	OpAck    Op = "ack"
)

// Call is one recorded transport call.
type Call struct {
	Op     Op
	ChatID int64
	Ref    session.DisplayRef
	View   display.View
	Event  display.EventRef
	Notice string
}

// Recorder records every call and hands out sequential message ids.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	nextID int

	// FailEdit makes EditMessage fail.
	FailEdit bool
	// FailPhoto makes sends carrying an image fail.
	FailPhoto bool
	// FailSend makes every send fail.
	FailSend bool
	// FailDelete makes DeleteMessage fail.
	FailDelete bool
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{nextID: 100}
}

func (r *Recorder) record(c Call) {
	r.calls = append(r.calls, c)
}

func (r *Recorder) sendLocked(op Op, chatID int64, v display.View) (session.DisplayRef, error) {
	if r.FailSend || (r.FailPhoto && v.ImageURL != "") {
		return session.DisplayRef{}, ErrInjected
	}
	r.nextID++
	ref := session.DisplayRef{ChatID: chatID, MessageID: strconv.Itoa(r.nextID)}
	r.record(Call{Op: op, ChatID: chatID, Ref: ref, View: v})
	return ref, nil
}

// SendPrompt implements display.Transport.
func (r *Recorder) SendPrompt(_ context.Context, chatID int64, v display.View) (session.DisplayRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendLocked(OpSend, chatID, v)
}

// SendFavoriteCard implements display.Transport.
func (r *Recorder) SendFavoriteCard(_ context.Context, chatID int64, v display.View) (session.DisplayRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendLocked(OpCard, chatID, v)
}

// EditMessage implements display.Transport.
func (r *Recorder) EditMessage(_ context.Context, ref session.DisplayRef, v display.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailEdit {
		return ErrInjected
	}
	r.record(Call{Op: OpEdit, ChatID: ref.ChatID, Ref: ref, View: v})
	return nil
}

// DeleteMessage implements display.Transport.
func (r *Recorder) DeleteMessage(_ context.Context, ref session.DisplayRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailDelete {
		return ErrInjected
	}
	r.record(Call{Op: OpDelete, ChatID: ref.ChatID, Ref: ref})
	return nil
}

// Acknowledge implements display.Transport.
func (r *Recorder) Acknowledge(_ context.Context, ev display.EventRef, notice string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: OpAck, Event: ev, Notice: notice})
	return nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the recorded operation names in order.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Op
	}
	return out
}

// Last returns the most recent call, or the zero Call.
func (r *Recorder) Last() Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Call{}
	}
	return r.calls[len(r.calls)-1]
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps the failure switches.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
