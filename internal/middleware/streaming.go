package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// StreamingTimeout bounds file downloads without buffering them. The whole
// transfer may take at most maxDuration, and the connection is cut when no
// bytes are written for idleTimeout.
func StreamingTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			_ = rc.SetWriteDeadline(time.Now().Add(maxDuration))

			iw := &idleWriter{ResponseWriter: w, rc: rc, idle: idleTimeout, cancel: cancel}
			iw.touch()
			defer iw.stop()

			next.ServeHTTP(iw, r.WithContext(ctx))
		})
	}
}

type idleWriter struct {
	http.ResponseWriter
	rc     *http.ResponseController
	idle   time.Duration
	cancel context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
}

func (iw *idleWriter) touch() {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.timer != nil {
		iw.timer.Stop()
	}
	iw.timer = time.AfterFunc(iw.idle, func() {
		_ = iw.rc.SetWriteDeadline(time.Now())
		iw.cancel()
	})
}

func (iw *idleWriter) stop() {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.timer != nil {
		iw.timer.Stop()
	}
}

func (iw *idleWriter) Write(b []byte) (int, error) {
	iw.touch()
	return iw.ResponseWriter.Write(b)
}

func (iw *idleWriter) Unwrap() http.ResponseWriter {
	return iw.ResponseWriter
}

func (iw *idleWriter) Flush() {
	if f, ok := iw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
