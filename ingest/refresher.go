package ingest

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rentmate/linkage-engine/linkage"
)

// Upserter is the store surface the refresher writes through.
type Upserter interface {
	UpsertIndexValue(ctx context.Context, point linkage.IndexPoint, source string) error
}

// Refresher runs the ingestion jobs on a schedule. The CPI family is
// published on the 15th of each month, so the job fires shortly after; the
// currency job runs every business evening.
type Refresher struct {
	cbs   *CBSClient
	boi   *BOIClient
	store Upserter
	log   *logrus.Logger
	cron  *cron.Cron
}

// NewRefresher wires the ingestion clients to a store.
func NewRefresher(cbs *CBSClient, boi *BOIClient, store Upserter, log *logrus.Logger) *Refresher {
	return &Refresher{
		cbs:   cbs,
		boi:   boi,
		store: store,
		log:   log,
		cron:  cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start registers the schedules and starts the cron runner. Jobs log their
// failures and retry on the next tick rather than aborting the process.
func (r *Refresher) Start() error {
	// 13:00 UTC on the 15th-17th covers publication-day slippage.
	if _, err := r.cron.AddFunc("0 13 15-17 * *", func() { r.RefreshIndices(context.Background()) }); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc("0 16 * * MON-FRI", func() { r.RefreshRates(context.Background()) }); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info("refresher started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("refresher stopped")
}

// RefreshIndices fetches every CPI-family series and upserts all published
// points. Full-series upserts pick up corrected publications for free.
func (r *Refresher) RefreshIndices(ctx context.Context) {
	for _, t := range []linkage.IndexType{linkage.IndexCPI, linkage.IndexHousing, linkage.IndexConstruction} {
		points, err := r.cbs.FetchSeries(ctx, t)
		if err != nil {
			r.log.WithError(err).WithField("index", t).Error("index refresh failed")
			continue
		}
		r.upsertAll(ctx, points, "cbs")
	}
}

// RefreshRates fetches the current currency rates and upserts them.
func (r *Refresher) RefreshRates(ctx context.Context) {
	points, err := r.boi.FetchRates(ctx)
	if err != nil {
		r.log.WithError(err).Error("rate refresh failed")
		return
	}
	r.upsertAll(ctx, points, "boi")
}

func (r *Refresher) upsertAll(ctx context.Context, points []linkage.IndexPoint, source string) {
	var stored int
	for _, p := range points {
		if err := r.store.UpsertIndexValue(ctx, p, source); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"index": p.Type, "month": p.Month}).Error("upsert failed")
			continue
		}
		stored++
	}
	r.log.WithFields(logrus.Fields{"source": source, "stored": stored}).Info("series refreshed")
}
