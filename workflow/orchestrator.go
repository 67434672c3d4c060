package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/cdrr_triage/models"
	"bitbucket.org/mmdatafocus/cdrr_triage/reportstore"
	"bitbucket.org/mmdatafocus/cdrr_triage/utils"
)

// Store is the slice of the remote client the orchestrator needs.
type Store interface {
	List(ctx context.Context, params reportstore.ListParams) (*reportstore.ListResult, error)
}

// View is what the presentation layer renders: one page of reports with their
// timelines, the bucket counts, and pagination metadata. Fresh is false after
// a failed fetch so a stale success is never mistaken for current data.
type View struct {
	Reports    []models.Report   `json:"data"`
	Timelines  []ReportTimelines `json:"timelines"`
	Counts     BucketCounts      `json:"counts"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
	Fresh      bool              `json:"fresh"`
	LastError  string            `json:"last_error,omitempty"`
}

// Orchestrator coordinates query state, fetches, and selection for one
// session. All derivations run synchronously once a response arrives; the
// fetch itself runs outside the lock so state can move on, and a response is
// committed only if its generation still matches the current state.
type Orchestrator struct {
	store  Store
	logger *logrus.Logger

	// derivedFetchSize widens the fetch for client-derived buckets. Counts
	// are exact only while the backlog fits one widened page.
	derivedFetchSize int

	mu        sync.Mutex
	state     QueryState
	view      View
	selection map[string]bool
}

func NewOrchestrator(store Store, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		store:            store,
		logger:           logger,
		derivedFetchSize: utils.GetEnvInt("DERIVED_FETCH_SIZE", 1000),
		state:            DefaultQueryState(),
		selection:        map[string]bool{},
	}
}

func (o *Orchestrator) State() QueryState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view
}

// Apply folds the request onto the current state and, when anything changed,
// issues exactly one fetch for the new state.
func (o *Orchestrator) Apply(ctx context.Context, req QueryRequest) View {
	o.mu.Lock()
	next := Reduce(o.state, req)
	if next == o.state && o.view.Fresh {
		view := o.view
		o.mu.Unlock()
		return view
	}
	if next.Bucket != o.state.Bucket {
		// Selections do not survive a context switch.
		o.selection = map[string]bool{}
	}
	o.state = next
	o.mu.Unlock()

	o.fetch(ctx, next)
	return o.View()
}

// Refresh re-fetches the current state without a transition.
func (o *Orchestrator) Refresh(ctx context.Context) View {
	o.fetch(ctx, o.State())
	return o.View()
}

// fetch issues the outbound request for the given snapshot and commits the
// result only if the snapshot is still current when it resolves.
func (o *Orchestrator) fetch(ctx context.Context, snapshot QueryState) {
	params := snapshot.Params()
	if snapshot.Bucket.IsDerived() {
		// The store cannot express this predicate; fetch wide and unfiltered
		// by category, then classify locally.
		params.Page = 1
		params.PageSize = o.derivedFetchSize
	}

	started := time.Now()
	res, err := o.store.List(ctx, params)
	storeLatencySeconds.Observe(time.Since(started).Seconds())

	if err != nil {
		fetchesTotal.WithLabelValues("error", string(snapshot.Bucket)).Inc()
		logFetchError(o.logger, snapshot, err)
		o.commit(snapshot, View{Fresh: false, LastError: err.Error()})
		return
	}

	fetchesTotal.WithLabelValues("success", string(snapshot.Bucket)).Inc()
	o.commit(snapshot, o.buildView(snapshot, res))
}

// commit installs the view unless the state moved on while the fetch was in
// flight; superseded responses are discarded, never rendered.
func (o *Orchestrator) commit(snapshot QueryState, view View) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if snapshot.Generation != o.state.Generation {
		staleResponsesTotal.Inc()
		if o.logger != nil {
			o.logger.WithFields(logrus.Fields{
				"module":     "workflow",
				"funcName":   "commit",
				"generation": snapshot.Generation,
			}).Debug(utils.ErrorStaleResponse.Error())
		}
		return false
	}
	o.view = view
	return true
}

func (o *Orchestrator) buildView(snapshot QueryState, res *reportstore.ListResult) View {
	counts := Classify(res.Data)

	reports := res.Data
	total := res.Total
	totalPages := res.TotalPages

	if snapshot.Bucket.IsDerived() {
		// Pagination metadata comes from the filtered client-side result,
		// not from the store's envelope.
		filtered := FilterBucket(res.Data, snapshot.Bucket)
		total = len(filtered)
		totalPages = (total + snapshot.PageSize - 1) / snapshot.PageSize
		reports = pageSlice(filtered, snapshot.Page, snapshot.PageSize)
	}

	timelines := make([]ReportTimelines, len(reports))
	for i := range reports {
		timelines[i] = EvaluateTimelines(&reports[i])
	}

	return View{
		Reports:    reports,
		Timelines:  timelines,
		Counts:     counts,
		Total:      total,
		TotalPages: totalPages,
		Fresh:      true,
	}
}

func pageSlice(reports []models.Report, page, size int) []models.Report {
	if size < 1 {
		size = defaultPageSize
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(reports) {
		return []models.Report{}
	}
	end := start + size
	if end > len(reports) {
		end = len(reports)
	}
	return reports[start:end]
}

// Select marks a record in the active bucket. Selection persists across
// pages within the bucket so a bulk action can span pages.
func (o *Orchestrator) Select(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selection[id] = true
}

func (o *Orchestrator) Deselect(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.selection, id)
}

func (o *Orchestrator) SelectedIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.selection))
	for id := range o.selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (o *Orchestrator) ClearSelection() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selection = map[string]bool{}
}

func logFetchError(logger *logrus.Logger, snapshot QueryState, err error) {
	if logger == nil {
		return
	}
	logger.WithFields(logrus.Fields{
		"module":   "workflow",
		"funcName": "fetch",
		"bucket":   snapshot.Bucket,
		"page":     snapshot.Page,
	}).Error(err.Error())
}
