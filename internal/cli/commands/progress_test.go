package commands

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcrm/internal/entitylist"
	"github.com/leapstack-labs/leapcrm/internal/notifier"
	"github.com/leapstack-labs/leapcrm/internal/picklist"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// safeBuffer is a bytes.Buffer that tolerates the watcher goroutines.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// busyFlag is a changeSource whose busy state the test flips.
type busyFlag struct {
	*notifier.Notifier
	mu   sync.Mutex
	busy bool
}

func (f *busyFlag) set(busy bool) {
	f.mu.Lock()
	f.busy = busy
	f.mu.Unlock()
	f.Notify()
}

func (f *busyFlag) status() (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy, "Loading things…"
}

// gatedQuerier serves one view and blocks every query until release is closed.
type gatedQuerier struct {
	release chan struct{}
}

func (g gatedQuerier) EntityViews(context.Context, string) ([]core.ViewConfig, error) {
	return []core.ViewConfig{{Name: "overview", Columns: []core.Column{{Key: "name", Type: core.ColumnText}}}}, nil
}

func (g gatedQuerier) QueryEntities(_ context.Context, req core.EntityQueryRequest) (*core.EntityQueryResponse, error) {
	<-g.release
	return core.NewEntityQueryResponse(req, nil, 0), nil
}

// gatedSource blocks full-list fetches until release is closed.
type gatedSource struct {
	picklist.Source
	release chan struct{}
}

func (g gatedSource) Picklist(context.Context, string) (*core.PicklistPage, error) {
	<-g.release
	return &core.PicklistPage{Items: []core.PicklistItem{{ID: "1", Name: "Software"}}, TotalCount: 1}, nil
}

func TestProgress_Delay(t *testing.T) {
	tests := []struct {
		name  string
		delay time.Duration
		busy  time.Duration
		want  int
	}{
		{"slow request reported once", 0, 50 * time.Millisecond, 1},
		{"fast request stays quiet", time.Hour, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &safeBuffer{}
			src := &busyFlag{Notifier: notifier.New()}
			p := newProgress(out, tt.delay)
			p.watch(src, src.status)

			src.set(true)
			src.set(true)
			if tt.want > 0 {
				require.Eventually(t, func() bool {
					return strings.Contains(out.String(), "Loading things…")
				}, time.Second, time.Millisecond)
			}
			time.Sleep(tt.busy)
			src.set(false)
			p.stop()

			assert.Equal(t, tt.want, strings.Count(out.String(), "Loading things…"))
			assert.Equal(t, 0, src.Len(), "watch unsubscribes on stop")
		})
	}
}

func TestProgress_WatchesControllerAndLoaders(t *testing.T) {
	out := &safeBuffer{}
	p := newProgress(&lockedWriter{w: out}, 0)
	ctx := context.Background()

	q := gatedQuerier{release: make(chan struct{})}
	ctrl := entitylist.New(q, entitylist.Options{EntityType: "companies"})
	p.list(ctrl)

	done := make(chan struct{})
	go func() {
		ctrl.Initialize(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Loading companies…")
	}, time.Second, time.Millisecond)
	close(q.release)
	<-done

	src := gatedSource{release: make(chan struct{})}
	l := newLookups(src, picklist.NewCache(), slog.New(slog.DiscardHandler))
	l.onNew = p.loader
	loaded := make(chan error, 1)
	go func() {
		_, err := l.loader(ctx, picklist.Industries)
		loaded <- err
	}()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Loading industries…")
	}, time.Second, time.Millisecond)
	close(src.release)
	require.NoError(t, <-loaded)

	ctrl.Close()
	p.stop()
	assert.Equal(t, 1, strings.Count(out.String(), "Loading companies…"))
}
