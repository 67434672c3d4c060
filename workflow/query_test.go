package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/cdrr_triage/models"
)

func TestQueryState_SearchResetsPage(t *testing.T) {
	st := DefaultQueryState().WithPage(5)
	if st.Page != 5 {
		t.Fatalf("setup: page = %d, want 5", st.Page)
	}

	st = st.WithSearch("paracetamol")
	if st.Page != 1 {
		t.Fatalf("search change must reset page to 1, got %d", st.Page)
	}
	if st.Search != "paracetamol" {
		t.Fatalf("search = %q", st.Search)
	}
}

func TestQueryState_StatusAndBucketResetPage(t *testing.T) {
	st := DefaultQueryState().WithPage(3).WithStatus(models.ReportStatusPending)
	if st.Page != 1 {
		t.Fatalf("status change must reset page, got %d", st.Page)
	}

	st = st.WithPage(7).WithBucket(models.BucketPics)
	if st.Page != 1 {
		t.Fatalf("bucket change must reset page, got %d", st.Page)
	}
}

func TestQueryState_ToggleSort(t *testing.T) {
	st := DefaultQueryState() // created_at desc

	st = st.ToggleSort("created_at")
	if st.SortBy != "created_at" || st.SortOrder != "asc" {
		t.Fatalf("toggling the active column must flip direction, got %s %s", st.SortBy, st.SortOrder)
	}

	st = st.ToggleSort("created_at")
	if st.SortOrder != "desc" {
		t.Fatalf("second toggle must flip back, got %s", st.SortOrder)
	}

	st = st.ToggleSort("dtn")
	if st.SortBy != "dtn" || st.SortOrder != "asc" {
		t.Fatalf("a new column always starts ascending, got %s %s", st.SortBy, st.SortOrder)
	}

	before := st
	st = st.ToggleSort("not_a_column")
	if st != before {
		t.Fatalf("unknown column must be a no-op, got %+v", st)
	}
}

func TestQueryState_GenerationAdvances(t *testing.T) {
	st := DefaultQueryState()
	g0 := st.Generation

	st = st.WithSearch("x")
	if st.Generation <= g0 {
		t.Fatal("transitions must advance the generation")
	}
	g1 := st.Generation
	st = st.WithPage(2)
	if st.Generation <= g1 {
		t.Fatal("pagination is a transition too")
	}
}

func TestQueryState_ParamsOmitCategoryForDerivedBuckets(t *testing.T) {
	st := DefaultQueryState().WithBucket(models.BucketPendingFroo)
	if got := st.Params().Category; got != "" {
		t.Fatalf("derived bucket must not send a category filter, got %q", got)
	}

	st = st.WithBucket(models.BucketNonPics)
	if got := st.Params().Category; got != models.CategoryNonPics {
		t.Fatalf("category bucket must send its category, got %q", got)
	}

	st = st.WithBucket(models.BucketAll)
	if got := st.Params().Category; got != "" {
		t.Fatalf("all bucket must not send a category, got %q", got)
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestReduce_FilterChangeWinsOverSuppliedPage(t *testing.T) {
	cur := DefaultQueryState().WithPage(5)

	st := Reduce(cur, QueryRequest{
		Search: strPtr("amoxicillin"),
		Page:   intPtr(5),
	})
	if st.Page != 1 {
		t.Fatalf("supplied page must not survive a filter change, got %d", st.Page)
	}
}

func TestReduce_PageAppliesWhenFiltersUnchanged(t *testing.T) {
	cur := DefaultQueryState()

	st := Reduce(cur, QueryRequest{Page: intPtr(4)})
	if st.Page != 4 {
		t.Fatalf("page = %d, want 4", st.Page)
	}

	// Same filter values re-supplied are not a change.
	st = Reduce(st, QueryRequest{Search: strPtr(""), Page: intPtr(6)})
	if st.Page != 6 {
		t.Fatalf("unchanged filters must let page apply, got %d", st.Page)
	}
}

func TestReduce_BareSortColumnToggles(t *testing.T) {
	cur := DefaultQueryState() // created_at desc

	st := Reduce(cur, QueryRequest{SortBy: strPtr("created_at")})
	if st.SortOrder != "asc" {
		t.Fatalf("bare sort_by on the active column must toggle, got %s", st.SortOrder)
	}

	st = Reduce(st, QueryRequest{SortBy: strPtr("dtn"), SortOrder: strPtr("desc")})
	if st.SortBy != "dtn" || st.SortOrder != "desc" {
		t.Fatalf("explicit order must apply directly, got %s %s", st.SortBy, st.SortOrder)
	}
}

func TestReduce_InvalidInputsIgnored(t *testing.T) {
	cur := DefaultQueryState()

	st := Reduce(cur, QueryRequest{
		Bucket: strPtr("no_such_bucket"),
		Status: strPtr("Exploded"),
	})
	if st.Bucket != models.BucketAll {
		t.Fatalf("invalid bucket must fall back to all, got %s", st.Bucket)
	}
	if st.Status != "" {
		t.Fatalf("invalid status must be ignored, got %q", st.Status)
	}
}
