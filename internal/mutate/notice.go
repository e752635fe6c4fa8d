package mutate

import (
	"sync"
	"time"
)

type NoticeKind string

const (
	NoticePersistFailed NoticeKind = "persist-failed"
	NoticeCreateFailed  NoticeKind = "create-failed"
)

const saveFailedMessage = "could not save, try again"

// Notice is a transient user-visible message raised when a transaction is
// rolled back.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	Transaction string     `json:"transaction"`
	TaskID      string     `json:"taskId,omitempty"`
	Message     string     `json:"message"`
	Err         error      `json:"-"`
	At          time.Time  `json:"at"`
}

type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Recorder keeps every notice it receives.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}
