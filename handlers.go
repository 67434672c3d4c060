package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"bitbucket.org/mmdatafocus/cdrr_triage/config"
	"bitbucket.org/mmdatafocus/cdrr_triage/middlewares"
	"bitbucket.org/mmdatafocus/cdrr_triage/models"
	"bitbucket.org/mmdatafocus/cdrr_triage/permissions"
	"bitbucket.org/mmdatafocus/cdrr_triage/reportstore"
	"bitbucket.org/mmdatafocus/cdrr_triage/utils"
	"bitbucket.org/mmdatafocus/cdrr_triage/workflow"
)

var validate = validator.New()

const (
	badgeCacheKey   = "BadgeCounts"
	badgeUpdatedKey = "BadgeCounts:updated_at"
	submitLockTTL   = 30 * time.Second
)

// submitLocker serializes submissions per dossier form: while a write is
// unresolved, an overlapping one for the same key must be rejected.
type submitLocker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// redisSubmitLocker backs the guard with redislock. When redis is not wired
// (tests, local runs) it degrades to a no-op rather than blocking every write.
type redisSubmitLocker struct{}

func (redisSubmitLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}
	lock, err := locker.Obtain(ctx, key, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, utils.ErrorSubmissionInFlight
	}
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}

func callerCapabilities(c *gin.Context) permissions.Capabilities {
	return permissions.ResolveUser(middlewares.CurrentUserFromContext(c))
}

// queryRequestFromGin builds the reducer input: a field is only "supplied"
// when the query string actually carries it, so absent params never count as
// transitions.
func queryRequestFromGin(c *gin.Context) workflow.QueryRequest {
	q := c.Request.URL.Query()
	var req workflow.QueryRequest

	if q.Has("search") {
		v := q.Get("search")
		req.Search = &v
	}
	if q.Has("status") {
		v := q.Get("status")
		req.Status = &v
	}
	if q.Has("bucket") {
		v := q.Get("bucket")
		req.Bucket = &v
	}
	if q.Has("sort_by") {
		v := q.Get("sort_by")
		req.SortBy = &v
	}
	if q.Has("sort_order") {
		v := q.Get("sort_order")
		req.SortOrder = &v
	}
	if q.Has("page") {
		if n, err := strconv.Atoi(q.Get("page")); err == nil {
			req.Page = &n
		}
	}
	if q.Has("page_size") {
		if n, err := strconv.Atoi(q.Get("page_size")); err == nil {
			req.PageSize = &n
		}
	}
	return req
}

func listReportsHandler(reg *sessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		caps := callerCapabilities(c)
		token, _ := utils.GetTokenFromContext(c.Request.Context())

		req := queryRequestFromGin(c)
		if req.Bucket != nil {
			bucket := models.ParseBucket(*req.Bucket)
			if !bucketVisible(bucket, caps) {
				c.JSON(http.StatusForbidden, gin.H{"error": "bucket not available for this role"})
				return
			}
		}

		o := reg.get(token)
		view := o.Apply(c.Request.Context(), req)
		state := o.State()

		c.JSON(http.StatusOK, gin.H{
			"data":        view.Reports,
			"timelines":   view.Timelines,
			"counts":      view.Counts,
			"total":       view.Total,
			"total_pages": view.TotalPages,
			"fresh":       view.Fresh,
			"error":       view.LastError,
			"query": gin.H{
				"page":       state.Page,
				"page_size":  state.PageSize,
				"search":     state.Search,
				"status":     state.Status,
				"bucket":     state.Bucket,
				"sort_by":    state.SortBy,
				"sort_order": state.SortOrder,
			},
			"buckets":  permissions.VisibleBuckets(caps),
			"selected": o.SelectedIDs(),
		})
	}
}

func bucketVisible(b models.Bucket, caps permissions.Capabilities) bool {
	switch b {
	case models.BucketPendingFroo:
		return permissions.ShowPendingFrooTab(caps)
	case models.BucketPendingCdrrReview:
		return permissions.ShowPendingCdrrTab(caps)
	}
	return true
}

func getReportHandler(store *reportstore.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data":      report,
			"timelines": workflow.EvaluateTimelines(report),
		})
	}
}

// createReportHandler accepts either the CDRR creation payload or the
// Inspector payload carrying only a DTN plus inspection data.
func createReportHandler(store *reportstore.Client, locks submitLocker) gin.HandlerFunc {
	return func(c *gin.Context) {
		caps := callerCapabilities(c)

		var raw struct {
			models.NewReport
			FrooData *models.FrooReportInput `json:"froo_data"`
		}
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		var payload any
		if raw.FrooData != nil {
			if !caps.CanUpdateFROO {
				c.JSON(http.StatusForbidden, gin.H{"error": "inspector role required"})
				return
			}
			inspector := models.NewFrooReport{DTN: raw.DTN, FrooData: *raw.FrooData}
			if err := validate.Struct(inspector); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
				return
			}
			payload = inspector
		} else {
			if !caps.CanAdd {
				c.JSON(http.StatusForbidden, gin.H{"error": "CDRR role required"})
				return
			}
			if err := validate.Struct(raw.NewReport); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
				return
			}
			if !raw.NewReport.DatesOrdered() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "workflow dates are out of order"})
				return
			}
			payload = raw.NewReport
		}

		release, ok := obtainSubmitLock(c, locks, "submit:create:"+raw.DTN)
		if !ok {
			return
		}
		defer release()

		report, err := store.Create(c.Request.Context(), payload)
		if err != nil {
			// Surfaced, not retried; releasing the lock lets the user retry.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": report})
	}
}

func updateReportHandler(store *reportstore.Client, locks submitLocker) gin.HandlerFunc {
	return func(c *gin.Context) {
		caps := callerCapabilities(c)
		id := c.Param("id")

		var section models.UpdateSection
		if err := c.ShouldBindJSON(&section); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if !section.ExactlyOne() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one section per request"})
			return
		}

		sectionName := "main_data"
		switch {
		case section.FrooData != nil:
			sectionName = "froo_data"
			if !caps.CanUpdateFROO {
				c.JSON(http.StatusForbidden, gin.H{"error": "inspector role required"})
				return
			}
		case section.SecondaryData != nil:
			sectionName = "secondary_data"
			if !caps.CanUpdateCDRR {
				c.JSON(http.StatusForbidden, gin.H{"error": "CDRR role required"})
				return
			}
		default:
			if !caps.CanUpdateCDRR {
				c.JSON(http.StatusForbidden, gin.H{"error": "CDRR role required"})
				return
			}
			if section.MainData != nil {
				if err := validate.Struct(section.MainData); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
					return
				}
				if !section.MainData.DatesOrdered() {
					c.JSON(http.StatusBadRequest, gin.H{"error": "workflow dates are out of order"})
					return
				}
			}
		}

		release, ok := obtainSubmitLock(c, locks, "submit:"+id+":"+sectionName)
		if !ok {
			return
		}
		defer release()

		if err := store.Update(c.Request.Context(), id, section); err != nil {
			if err == utils.ErrorRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func deleteReportHandler(store *reportstore.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		caps := callerCapabilities(c)
		if !caps.CanUpdate {
			c.JSON(http.StatusForbidden, gin.H{"error": "update role required"})
			return
		}
		if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
			if err == utils.ErrorRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// bulkDeleteHandler deletes the supplied ids, falling back to the session's
// current selection when the body carries none. The selection is cleared only
// after the store accepted the delete.
func bulkDeleteHandler(store *reportstore.Client, reg *sessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		caps := callerCapabilities(c)
		if !caps.CanUpdate {
			c.JSON(http.StatusForbidden, gin.H{"error": "update role required"})
			return
		}

		var body struct {
			IDs []string `json:"ids"`
		}
		_ = c.ShouldBindJSON(&body)

		token, _ := utils.GetTokenFromContext(c.Request.Context())
		o := reg.get(token)
		ids := body.IDs
		if len(ids) == 0 {
			ids = o.SelectedIDs()
		}
		if len(ids) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nothing selected"})
			return
		}

		if err := store.BulkDelete(c.Request.Context(), ids); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		o.ClearSelection()
		c.JSON(http.StatusOK, gin.H{"deleted": len(ids)})
	}
}

func selectionHandler(reg *sessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			ID       string `json:"id" binding:"required"`
			Selected bool   `json:"selected"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		token, _ := utils.GetTokenFromContext(c.Request.Context())
		if token == "" {
			// Selection is session state; without a token there is no session
			// to attach it to.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session token required"})
			return
		}
		o := reg.get(token)
		if body.Selected {
			o.Select(body.ID)
		} else {
			o.Deselect(body.ID)
		}
		c.JSON(http.StatusOK, gin.H{"selected": o.SelectedIDs()})
	}
}

func permissionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middlewares.CurrentUserFromContext(c)
		caps := permissions.ResolveUser(user)
		resp := gin.H{
			"permissions": caps,
			"buckets":     permissions.VisibleBuckets(caps),
		}
		if user != nil {
			resp["username"] = user.Username
			resp["darkMode"] = user.DarkMode
		}
		c.JSON(http.StatusOK, resp)
	}
}

func badgeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var counts workflow.BucketCounts
		found, err := config.GetRedisObject(badgeCacheKey, &counts)
		if err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "badgeHandler", "GetRedisObject", nil, err)
		}
		updatedAt, _, _ := config.GetRedisValue(badgeUpdatedKey)
		c.JSON(http.StatusOK, gin.H{
			"counts":     counts,
			"cached":     found,
			"updated_at": updatedAt,
		})
	}
}

// obtainSubmitLock rejects a submission while the previous one for the same
// form is still unresolved.
func obtainSubmitLock(c *gin.Context, locks submitLocker, key string) (func(), bool) {
	release, err := locks.Obtain(c.Request.Context(), key, submitLockTTL)
	if err == utils.ErrorSubmissionInFlight {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return nil, false
	}
	return release, true
}
