// Admin HTTP handlers.
//
// This file exposes read-only operational endpoints for inspecting the
// capture pipeline:
//   - GET /prechat/submissions  (list, paginated, ETag support)
//   - GET /prechat/sessions     (list, paginated)
//   - GET /prechat/stats        (aggregate counters)
//
// These endpoints are reporting surfaces over the persisted rows; they never
// mutate state. Session statuses are reported as of the request time, so a
// lapsed session shows as expired even if no validate call has persisted the
// transition yet.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-prechat-backend/internal/domain"
	"github.com/tbourn/go-prechat-backend/internal/repo"
	"github.com/tbourn/go-prechat-backend/internal/utils"
)

// AdminHandlers groups the read-only inspection endpoints. They query the
// store directly; there is no business logic to delegate to.
type AdminHandlers struct {
	db *gorm.DB
}

// NewAdmin constructs an AdminHandlers bound to the given database handle.
func NewAdmin(db *gorm.DB) *AdminHandlers {
	return &AdminHandlers{db: db}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListSubmissionsData wraps a page of submissions and pagination information.
type ListSubmissionsData struct {
	Submissions []domain.Submission `json:"submissions"`
	Pagination  Pagination          `json:"pagination"`
}

// SessionView is the admin-facing session projection. Status is the
// effective status at read time, not necessarily the stored one.
type SessionView struct {
	ID           string     `json:"id"`
	ContactID    string     `json:"contact_id"`
	SessionToken string     `json:"session_token"`
	Status       string     `json:"status"`
	Workspace    string     `json:"workspace_slug"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastActivity time.Time  `json:"last_activity"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// ListSessionsData wraps a page of sessions and pagination information.
type ListSessionsData struct {
	Sessions   []SessionView `json:"sessions"`
	Pagination Pagination    `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// paginationFor computes the metadata block for a page.
func paginationFor(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// ListSubmissions godoc
// @ID          listSubmissions
// @Summary     List form submissions
// @Description Returns a paginated list of recorded form submissions, newest first.
// @Tags        Admin
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.APIResponse
// @Failure     500  {object}  handlers.APIResponse "Internal error"
// @Router      /prechat/submissions [get]
func (h *AdminHandlers) ListSubmissions(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	count, maxTS, err := repo.SubmissionsStats(ctx, h.db)
	if err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"submissions:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	page, pageSize := clampPagination(c)

	items, err := repo.ListSubmissionsPage(ctx, h.db, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeServerError, "An error occurred while listing submissions")
		return
	}
	total, err := repo.CountSubmissions(ctx, h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeServerError, "An error occurred while listing submissions")
		return
	}

	ok(c, http.StatusOK, "", ListSubmissionsData{
		Submissions: items,
		Pagination:  paginationFor(page, pageSize, total),
	})
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List chat sessions
// @Description Returns a paginated list of sessions, newest first, with their
// @Description effective status at read time.
// @Tags        Admin
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.APIResponse
// @Failure     500  {object}  handlers.APIResponse "Internal error"
// @Router      /prechat/sessions [get]
func (h *AdminHandlers) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	items, err := repo.ListSessionsPage(ctx, h.db, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeServerError, "An error occurred while listing sessions")
		return
	}
	total, err := repo.CountSessions(ctx, h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeServerError, "An error occurred while listing sessions")
		return
	}

	now := time.Now().UTC()
	views := make([]SessionView, 0, len(items))
	for i := range items {
		s := &items[i]
		views = append(views, SessionView{
			ID:           s.ID,
			ContactID:    s.ContactID,
			SessionToken: s.SessionToken,
			Status:       s.EffectiveStatus(now),
			Workspace:    s.Workspace,
			CreatedAt:    s.CreatedAt,
			ExpiresAt:    s.ExpiresAt,
			LastActivity: s.LastActivity,
			CompletedAt:  s.CompletedAt,
		})
	}

	ok(c, http.StatusOK, "", ListSessionsData{
		Sessions:   views,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// Stats godoc
// @ID          intakeStats
// @Summary     Aggregate intake counters
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  handlers.APIResponse
// @Failure     500  {object}  handlers.APIResponse "Internal error"
// @Router      /prechat/stats [get]
func (h *AdminHandlers) Stats(c *gin.Context) {
	st, err := repo.CollectIntakeStats(c.Request.Context(), h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeServerError, "An error occurred while collecting stats")
		return
	}
	ok(c, http.StatusOK, "", st)
}
