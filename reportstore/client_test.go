package reportstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/mmdatafocus/cdrr_triage/models"
	"bitbucket.org/mmdatafocus/cdrr_triage/utils"
)

func TestList_SendsQueryParamsAndDecodesEnvelope(t *testing.T) {
	var gotQuery map[string]string
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cdrr-reports", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode(ListResult{
			Data: []models.Report{
				{ID: "r1", DTN: "DTN-1", Category: models.CategoryNonPics},
			},
			Total:      41,
			TotalPages: 5,
		})
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	ctx := utils.SetTokenInContext(context.Background(), "tok-123")

	res, err := c.List(ctx, ListParams{
		Page:      2,
		PageSize:  10,
		Search:    "amoxicillin",
		Status:    models.ReportStatusPending,
		Category:  models.CategoryNonPics,
		SortBy:    "dtn",
		SortOrder: "asc",
	})
	require.NoError(t, err)

	assert.Equal(t, "2", gotQuery["page"])
	assert.Equal(t, "10", gotQuery["page_size"])
	assert.Equal(t, "amoxicillin", gotQuery["search"])
	assert.Equal(t, "Pending", gotQuery["status"])
	assert.Equal(t, "NON-PICS", gotQuery["category"])
	assert.Equal(t, "dtn", gotQuery["sort_by"])
	assert.Equal(t, "asc", gotQuery["sort_order"])
	assert.Equal(t, "Bearer tok-123", gotAuth)

	assert.Equal(t, 41, res.Total)
	assert.Equal(t, 5, res.TotalPages)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "DTN-1", res.Data[0].DTN)
}

func TestList_OmitsEmptyParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.False(t, q.Has("category"), "empty category must not be sent")
		assert.False(t, q.Has("search"))
		assert.False(t, q.Has("status"))
		json.NewEncoder(w).Encode(ListResult{})
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	_, err := c.List(context.Background(), ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
}

func TestDo_ForwardsCorrelationId(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Correlation-Id")
		json.NewEncoder(w).Encode(ListResult{})
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	ctx := utils.SetCorrelationIdInContext(context.Background(), "cid-42")
	_, err := c.List(ctx, ListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "cid-42", got, "the request correlation id must reach the store")
}

func TestGet_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestDo_SurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"dtn already exists"}`))
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	_, err := c.Create(context.Background(), models.NewReport{DTN: "DTN-9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "dtn already exists")
}

func TestUpdate_SendsSingleSection(t *testing.T) {
	var body map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/cdrr-reports/r1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	section := models.UpdateSection{
		FrooData: &models.FrooReportInput{Status: "Endorsed", IsApproved: utils.NewTrue()},
	}
	require.True(t, section.ExactlyOne())
	require.NoError(t, c.Update(context.Background(), "r1", section))

	_, hasFroo := body["froo_data"]
	assert.True(t, hasFroo)
	_, hasMain := body["main_data"]
	assert.False(t, hasMain, "omitted sections must not appear in the body")
}

func TestBulkDelete_PostsIds(t *testing.T) {
	var body map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/cdrr-reports/bulk-delete", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	require.NoError(t, c.BulkDelete(context.Background(), []string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, body["ids"])
}

func TestCurrentUser_DecodesGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/current-user", r.URL.Path)
		w.Write([]byte(`{"id":7,"username":"evaluator1","groups":[{"id":14,"name":"CDRR"}]}`))
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "evaluator1", user.Username)
	require.Len(t, user.Groups, 1)
	assert.Equal(t, 14, user.Groups[0].ID)
}

func TestFlexDate_ToleratesWireFormats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id":"r1",
			"dtn":"DTN-1",
			"category":"NON-PICS",
			"date_received_by_center":"2026-08-03",
			"date_decked":"2026-08-04T10:30:00Z",
			"date_evaluated":"not a date",
			"released_date":null
		}`))
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	report, err := c.Get(context.Background(), "r1")
	require.NoError(t, err)

	require.NotNil(t, report.DateReceivedByCenter.Time())
	assert.Equal(t, "2026-08-03", report.DateReceivedByCenter.String())
	require.NotNil(t, report.DateDecked.Time())
	assert.Nil(t, report.DateEvaluated.Time(), "garbage dates decode as absent")
	assert.Nil(t, report.ReleasedDate.Time())
}
