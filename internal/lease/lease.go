package lease

import (
	"context"
	"strconv"
	"sync"
)

// Locker grants exclusive, non-blocking ownership of a key. When ok is true
// the caller must call release once done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// ReminderKey is the lease key guarding one reminder's delivery.
func ReminderKey(reminderID int64) string {
	return "reminder:" + strconv.FormatInt(reminderID, 10)
}

// Local is an in-process keyed try-lock, enough for a single bot replica.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) Acquire(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}
