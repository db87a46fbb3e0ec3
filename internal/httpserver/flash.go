package httpserver

import (
	"time"

	"github.com/Skotchmaster/shopeasy/internal/session"
)

const (
	FlashInfo  = "info"
	FlashError = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

type FlashStore struct {
	s *session.Scoped[[]Flash]
}

func NewFlashStore(idle time.Duration) *FlashStore {
	return &FlashStore{s: session.NewScoped(idle, func() []Flash { return nil })}
}

func (f *FlashStore) Add(sid, kind, msg string) {
	f.s.Update(sid, func(cur []Flash) []Flash {
		return append(cur, Flash{Kind: kind, Message: msg})
	})
}

// Take returns and clears the pending messages.
func (f *FlashStore) Take(sid string) []Flash {
	v, _ := f.s.Take(sid)
	return v
}

func (f *FlashStore) Sweep() int { return f.s.Sweep() }
