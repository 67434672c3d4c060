package workflow

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/cdrr_triage/reportstore"
	"bitbucket.org/mmdatafocus/cdrr_triage/utils"
)

// BadgePoller refreshes the pending-count summary on a fixed interval,
// independently of user-triggered fetches. Its only output is the callback;
// it never touches query state, selection, or sort.
type BadgePoller struct {
	Store     Store
	Logger    *logrus.Logger
	Interval  time.Duration
	FetchSize int
	OnUpdate  func(counts BucketCounts)
}

func NewBadgePoller(store Store, logger *logrus.Logger, onUpdate func(BucketCounts)) *BadgePoller {
	return &BadgePoller{
		Store:     store,
		Logger:    logger,
		Interval:  time.Duration(utils.GetEnvInt("BADGE_POLL_SECONDS", 30)) * time.Second,
		FetchSize: utils.GetEnvInt("DERIVED_FETCH_SIZE", 1000),
		OnUpdate:  onUpdate,
	}
}

// Run polls until the context is cancelled. Cancellation also aborts any
// in-flight summary fetch so nothing writes after teardown.
func (p *BadgePoller) Run(ctx context.Context) {
	if p == nil || p.Store == nil || p.OnUpdate == nil {
		return
	}

	p.tick(ctx)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *BadgePoller) tick(ctx context.Context) {
	res, err := p.Store.List(ctx, reportstore.ListParams{
		Page:     1,
		PageSize: p.FetchSize,
	})
	if err != nil {
		pollTicksTotal.WithLabelValues("error").Inc()
		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"module":   "workflow",
				"funcName": "BadgePoller.tick",
			}).Warn(err.Error())
		}
		return
	}
	pollTicksTotal.WithLabelValues("success").Inc()
	p.OnUpdate(Classify(res.Data))
}
