package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/brogergvhs/bookharvest/internal/util"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type MPBProgressManager struct {
	p *mpb.Progress
}

func NewProgressManager(out io.Writer) *MPBProgressManager {
	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(out),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	return &MPBProgressManager{p: p}
}

func (pm *MPBProgressManager) Close() {
	pm.p.Wait()
}

// Register adds a chapter counter bar. The total is the chapter cap, which
// is only an upper bound, so the bar is completed explicitly by MarkDone.
func (pm *MPBProgressManager) Register(prefix string, stats *Stats) *ProgressHandle {
	h := &ProgressHandle{
		pm:     pm,
		prefix: prefix,
		stats:  stats,
	}
	h.initBar()
	return h
}

type ProgressHandle struct {
	pm     *MPBProgressManager
	prefix string
	bar    *mpb.Bar
	stats  *Stats

	done  int64
	start time.Time
	final atomic.Bool
}

func (h *ProgressHandle) initBar() {
	h.start = time.Now()

	h.bar = h.pm.p.New(
		0,
		mpb.BarStyle().Rbound("]"),

		mpb.PrependDecorators(
			decor.Name(h.prefix+"  "),
		),

		mpb.AppendDecorators(
			decor.CountersNoUnit(" %d/%d chapters", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				if h.stats == nil {
					return ""
				}
				return " | " + util.Human(h.stats.TotalBytes.Load())
			}),
			decor.Any(func(_ decor.Statistics) string {
				return fmt.Sprintf(" | %ds", int(time.Since(h.start).Seconds()))
			}),
		),
	)
}

func (h *ProgressHandle) SetTotal(total int) {
	if h.final.Load() {
		return
	}
	h.bar.SetTotal(int64(total), false)
}

func (h *ProgressHandle) SetDone(done int) {
	if h.final.Load() {
		return
	}
	atomic.StoreInt64(&h.done, int64(done))
	h.bar.SetCurrent(int64(done))
}

func (h *ProgressHandle) MarkDone() {
	if h.final.Swap(true) {
		return
	}
	done := atomic.LoadInt64(&h.done)
	h.bar.SetTotal(done, true)
}

// CountdownHandle renders a recovery cooldown as a draining bar.
type CountdownHandle struct {
	bar   *mpb.Bar
	total time.Duration
	final atomic.Bool
}

func (pm *MPBProgressManager) StartCountdown(label string, total time.Duration) *CountdownHandle {
	secs := int64(total.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}

	c := &CountdownHandle{total: total}
	c.bar = pm.p.New(
		secs,
		mpb.BarStyle().Lbound("[").Rbound("]"),
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Name(label+"  "),
		),
		mpb.AppendDecorators(
			decor.Any(func(st decor.Statistics) string {
				return fmt.Sprintf(" %ds left", st.Total-st.Current)
			}),
		),
	)

	return c
}

func (c *CountdownHandle) Tick(remaining time.Duration) {
	if c.final.Load() {
		return
	}
	elapsed := c.total - remaining
	c.bar.SetCurrent(int64(elapsed.Round(time.Second) / time.Second))
}

func (c *CountdownHandle) Done() {
	if c.final.Swap(true) {
		return
	}
	c.bar.SetTotal(-1, true)
}
