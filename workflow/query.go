package workflow

import (
	"strings"

	"bitbucket.org/mmdatafocus/cdrr_triage/models"
	"bitbucket.org/mmdatafocus/cdrr_triage/reportstore"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// sortableColumns is the allowlist the store accepts for sort_by.
var sortableColumns = map[string]bool{
	"dtn":                     true,
	"category":                true,
	"status":                  true,
	"date_received_by_center": true,
	"date_decked":             true,
	"date_evaluated":          true,
	"date_of_issuance":        true,
	"released_date":           true,
	"overall_deadline":        true,
	"created_at":              true,
	"updated_at":              true,
}

// QueryState is one immutable snapshot of the view's fetch parameters. Every
// transition returns a new value; Generation increments on each transition so
// a response can be matched against the state that requested it.
type QueryState struct {
	Page       int
	PageSize   int
	Search     string
	Status     models.ReportStatus
	Bucket     models.Bucket
	SortBy     string
	SortOrder  string
	Generation uint64
}

func DefaultQueryState() QueryState {
	return QueryState{
		Page:      1,
		PageSize:  defaultPageSize,
		Bucket:    models.BucketAll,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

func (s QueryState) next() QueryState {
	s.Generation++
	return s
}

// WithSearch changes the search text. Any filter change resets the page to 1
// so a stale page pointer never outlives a narrower result set.
func (s QueryState) WithSearch(search string) QueryState {
	s = s.next()
	s.Search = strings.TrimSpace(search)
	s.Page = 1
	return s
}

func (s QueryState) WithStatus(status models.ReportStatus) QueryState {
	s = s.next()
	s.Status = status
	s.Page = 1
	return s
}

func (s QueryState) WithBucket(bucket models.Bucket) QueryState {
	s = s.next()
	if !bucket.IsValid() {
		bucket = models.BucketAll
	}
	s.Bucket = bucket
	s.Page = 1
	return s
}

func (s QueryState) WithPage(page int) QueryState {
	s = s.next()
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}

func (s QueryState) WithPageSize(size int) QueryState {
	s = s.next()
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	s.PageSize = size
	s.Page = 1
	return s
}

// ToggleSort flips direction when the column is already active, otherwise
// switches to the new column ascending. Only one sort key at a time.
func (s QueryState) ToggleSort(column string) QueryState {
	if !sortableColumns[column] {
		return s
	}
	s = s.next()
	if s.SortBy == column {
		if s.SortOrder == "asc" {
			s.SortOrder = "desc"
		} else {
			s.SortOrder = "asc"
		}
		return s
	}
	s.SortBy = column
	s.SortOrder = "asc"
	return s
}

// Params maps the state to one outbound request. Category is omitted for the
// unfiltered view and for derived buckets; those are filtered client-side.
func (s QueryState) Params() reportstore.ListParams {
	return reportstore.ListParams{
		Page:      s.Page,
		PageSize:  s.PageSize,
		Search:    s.Search,
		Status:    s.Status,
		Category:  s.Bucket.Category(),
		SortBy:    s.SortBy,
		SortOrder: s.SortOrder,
	}
}

// QueryRequest is the raw shape a caller supplies (query params, form state).
// Reduce folds it onto the current state using the transition rules, so the
// page-reset and sort-toggle invariants hold no matter who drives the query.
type QueryRequest struct {
	Search    *string
	Status    *string
	Bucket    *string
	Page      *int
	PageSize  *int
	SortBy    *string
	SortOrder *string
}

func Reduce(cur QueryState, req QueryRequest) QueryState {
	st := cur

	if req.Bucket != nil {
		if b := models.ParseBucket(*req.Bucket); b != st.Bucket {
			st = st.WithBucket(b)
		}
	}
	if req.Search != nil {
		if s := strings.TrimSpace(*req.Search); s != st.Search {
			st = st.WithSearch(s)
		}
	}
	if req.Status != nil {
		if s := models.ReportStatus(strings.TrimSpace(*req.Status)); s != st.Status && (s == "" || s.IsValid()) {
			st = st.WithStatus(s)
		}
	}
	if req.SortBy != nil {
		if req.SortOrder != nil && (*req.SortOrder == "asc" || *req.SortOrder == "desc") {
			// Explicit order supplied: set it directly when valid.
			if sortableColumns[*req.SortBy] {
				st = st.next()
				st.SortBy = *req.SortBy
				st.SortOrder = *req.SortOrder
			}
		} else {
			// Bare column is the toggle gesture.
			st = st.ToggleSort(*req.SortBy)
		}
	}
	if req.PageSize != nil && *req.PageSize != st.PageSize {
		st = st.WithPageSize(*req.PageSize)
	}
	// Page applies last, and only when no filter transition already reset it.
	if req.Page != nil {
		filtersChanged := st.Bucket != cur.Bucket || st.Search != cur.Search || st.Status != cur.Status
		if !filtersChanged && *req.Page != st.Page {
			st = st.WithPage(*req.Page)
		}
	}
	return st
}
