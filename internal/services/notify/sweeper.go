package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sender — доставка сообщения в чат (telegram).
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Sweeper крутит два цикла: раз в час планирует уведомления по вехам,
// раз в минуту доставляет созревшие. Падение одной доставки не
// останавливает остальные.
type Sweeper struct {
	scheduler *Scheduler
	repo      Repository
	sender    Sender
	rl        RateLimiter

	scheduleInterval time.Duration
	deliverInterval  time.Duration
	lookahead        time.Duration
	ratePerMinute    int64

	triggerCh chan struct{}

	startedAtUnixNano    int64
	lastScheduleUnixNano atomic.Int64
	lastDeliverUnixNano  atomic.Int64
	lastTriggerUnixNano  atomic.Int64
	totalScheduled       atomic.Int64
	totalSent            atomic.Int64
	totalErrors          atomic.Int64
	lastErrorMu          sync.Mutex
	lastError            string
}

func NewSweeper(scheduler *Scheduler, repo Repository, sender Sender, rl RateLimiter) *Sweeper {
	return &Sweeper{
		scheduler:        scheduler,
		repo:             repo,
		sender:           sender,
		rl:               rl,
		scheduleInterval: time.Hour,
		deliverInterval:  time.Minute,
		lookahead:        5 * time.Minute,
		ratePerMinute:    20,
		triggerCh:        make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (w *Sweeper) WithSettings(scheduleInterval, deliverInterval, lookahead time.Duration, ratePerMinute int64) *Sweeper {
	if scheduleInterval > 0 {
		w.scheduleInterval = scheduleInterval
	}
	if deliverInterval > 0 {
		w.deliverInterval = deliverInterval
	}
	if lookahead > 0 {
		w.lookahead = lookahead
	}
	if ratePerMinute > 0 {
		w.ratePerMinute = ratePerMinute
	}
	return w
}

// Trigger форсирует внеочередной полный проход (best-effort, без блокировки).
func (w *Sweeper) Trigger() {
	w.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastScheduleAt *time.Time `json:"lastScheduleAt,omitempty"`
	LastDeliverAt  *time.Time `json:"lastDeliverAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalScheduled int64      `json:"totalScheduled"`
	TotalSent      int64      `json:"totalSent"`
	TotalErrors    int64      `json:"totalErrors"`
	LastError      string     `json:"lastError,omitempty"`
}

func (w *Sweeper) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, w.startedAtUnixNano).UTC(),
		TotalScheduled: w.totalScheduled.Load(),
		TotalSent:      w.totalSent.Load(),
		TotalErrors:    w.totalErrors.Load(),
	}
	if n := w.lastScheduleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastScheduleAt = &t
	}
	if n := w.lastDeliverUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastDeliverAt = &t
	}
	if n := w.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	w.lastErrorMu.Lock()
	st.LastError = w.lastError
	w.lastErrorMu.Unlock()
	return st
}

func (w *Sweeper) Run(ctx context.Context) error {
	schedule := time.NewTicker(w.scheduleInterval)
	defer schedule.Stop()
	deliver := time.NewTicker(w.deliverInterval)
	defer deliver.Stop()

	// Первый проход сразу, не ждём час.
	w.scheduleOnce(ctx)
	w.deliverOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-schedule.C:
			w.scheduleOnce(ctx)
		case <-deliver.C:
			w.deliverOnce(ctx)
		case <-w.triggerCh:
			w.scheduleOnce(ctx)
			w.deliverOnce(ctx)
		}
	}
}

func (w *Sweeper) scheduleOnce(ctx context.Context) {
	w.lastScheduleUnixNano.Store(time.Now().UTC().UnixNano())

	n, err := w.scheduler.CheckAndCreate(ctx)
	if err != nil {
		w.fail("schedule notifications", err)
		return
	}
	w.totalScheduled.Add(int64(n))
	if n > 0 {
		slog.Info("notifications scheduled", "count", n)
	}
}

func (w *Sweeper) deliverOnce(ctx context.Context) {
	now := time.Now().UTC()
	w.lastDeliverUnixNano.Store(now.UnixNano())

	due, err := w.repo.DueNotifications(ctx, now, w.lookahead)
	if err != nil {
		w.fail("load due notifications", err)
		return
	}

	for _, n := range due {
		if w.rl != nil && w.ratePerMinute > 0 {
			key := fmt.Sprintf("rl:telegram:%s:%s", n.ChatID, now.Format("200601021504"))
			allowed, _, err := w.rl.Allow(ctx, key, w.ratePerMinute, 70*time.Second)
			if err == nil && !allowed {
				// Чат упёрся в лимит telegram: оставляем до следующей минуты.
				slog.Warn("telegram rate limit, deferred", "chat_id", n.ChatID)
				continue
			}
		}

		if err := w.sender.SendMessage(ctx, n.ChatID, n.Message); err != nil {
			// Недоставленное не помечаем: следующий проход попробует снова.
			w.fail("send notification", err)
			slog.Error("send notification", "id", n.ID, "chat_id", n.ChatID, "error", err.Error())
			continue
		}
		if err := w.repo.MarkNotificationSent(ctx, n.ID); err != nil {
			w.fail("mark notification sent", err)
			continue
		}
		w.totalSent.Add(1)
	}
}

func (w *Sweeper) fail(op string, err error) {
	w.totalErrors.Add(1)
	w.lastErrorMu.Lock()
	w.lastError = op + ": " + err.Error()
	w.lastErrorMu.Unlock()
}
