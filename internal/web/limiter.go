package web

// limiter.go bounds how many backups are decrypted at once.
//
// Key derivation runs 70000 PBKDF2 rounds per request, so a burst of uploads
// can pin every core. Requests wait up to maxWait for a slot before failing
// with errServerBusy.

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errServerBusy = errors.New("too many concurrent decryptions, please try again later")

// decryptLimiter is a counting semaphore around the decrypt call.
type decryptLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

func newDecryptLimiter(maxConcurrent int, maxWait time.Duration) *decryptLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxWait <= 0 {
		maxWait = 10 * time.Second
	}
	return &decryptLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it after a nil return.
func (l *decryptLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return errServerBusy
	}
}

// Release returns a slot taken by Acquire.
func (l *decryptLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// limiterStatus is reported by the health endpoint.
type limiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

func (l *decryptLimiter) Status() limiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return limiterStatus{
		Active:        active,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
