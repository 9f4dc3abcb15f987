package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vodex/internal/audit"
	"vodex/internal/httpmiddleware"
	"vodex/internal/records"
	"vodex/internal/sl"
)

// AuditLister is the read side of the audit log.
type AuditLister interface {
	List(ctx context.Context, f audit.Filter) ([]audit.Entry, error)
}

// HealthChecker reports whether a dependency answers.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Handler serves the record API.
type Handler struct {
	log      *slog.Logger
	svc      *records.Service
	audit    AuditLister
	database string
	items    string
}

// New builds a handler. auditLog may be nil.
func New(log *slog.Logger, svc *records.Service, auditLog AuditLister, database, itemsCollection string) *Handler {
	return &Handler{log: log, svc: svc, audit: auditLog, database: database, items: itemsCollection}
}

// writeError maps service errors onto status codes. Internal details are logged, not returned.
func (h *Handler) writeError(c *gin.Context, err error, notFound string) {
	var verr *records.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg})
	case errors.Is(err, records.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	default:
		h.log.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("request_id", httpmiddleware.GetRequestID(c)),
			sl.Err(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindError turns a binding failure into a ValidationError.
func bindError(err error) error {
	converted := records.FromValidator(err)
	var verr *records.ValidationError
	if errors.As(converted, &verr) {
		return verr
	}
	return &records.ValidationError{Msg: "invalid request payload: " + err.Error()}
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"Hello": "World"})
}

// ---------- Items ----------

func (h *Handler) CreateItem(c *gin.Context) {
	var req records.ItemCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err), "")
		return
	}
	item, err := h.svc.CreateItem(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err, "Item not found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

func (h *Handler) FilterItems(c *gin.Context) {
	var p records.ItemFilterParams
	if err := c.ShouldBindQuery(&p); err != nil {
		h.writeError(c, bindError(err), "")
		return
	}
	list, err := h.svc.FilterItems(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err, "Item not found")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) AggregateItems(c *gin.Context) {
	groups, err := h.svc.CountItemsByEmail(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Item not found")
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *Handler) GetItem(c *gin.Context) {
	item, err := h.svc.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Item not found")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	var req records.ItemUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err), "")
		return
	}
	item, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err, "Item not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item updated successfully", "data": item})
}

func (h *Handler) DeleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "Item not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

// ---------- Clock-in ----------

func (h *Handler) CreateClockIn(c *gin.Context) {
	var req records.ClockInCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err), "")
		return
	}
	rec, err := h.svc.CreateClockIn(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err, "Record not found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"clock": rec})
}

func (h *Handler) FilterClockIns(c *gin.Context) {
	var p records.ClockInFilterParams
	if err := c.ShouldBindQuery(&p); err != nil {
		h.writeError(c, bindError(err), "")
		return
	}
	recs, err := h.svc.FilterClockIns(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err, "Record not found")
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *Handler) GetClockIn(c *gin.Context) {
	rec, err := h.svc.GetClockIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Record not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpdateClockIn(c *gin.Context) {
	var req records.ClockInUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err), "")
		return
	}
	if _, err := h.svc.UpdateClockIn(c.Request.Context(), c.Param("id"), req); err != nil {
		h.writeError(c, err, "Record not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Clock-In Record updated successfully"})
}

func (h *Handler) DeleteClockIn(c *gin.Context) {
	if err := h.svc.DeleteClockIn(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "Record not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Clock-In Record deleted successfully"})
}

// ---------- Probes ----------

// TestDB reports connectivity by reading one item. Store errors are part of the payload.
func (h *Handler) TestDB(c *gin.Context) {
	doc, err := h.svc.Probe(c.Request.Context())
	if err != nil {
		h.log.Warn("test-db probe failed", sl.Err(err))
		c.JSON(http.StatusOK, gin.H{"status": "error", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "connected",
		"database":   h.database,
		"collection": h.items,
		"sample_doc": doc,
	})
}

// Healthz reports each named dependency; any failure makes the response 503.
func Healthz(deps map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok"}
		for name, dep := range deps {
			ok := dep.Healthy(c.Request.Context())
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}

// ---------- Audit ----------

func (h *Handler) ListAuditEvents(c *gin.Context) {
	f := audit.Filter{
		Collection: c.Query("collection"),
		RecordID:   c.Query("record_id"),
		Limit:      50,
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Offset = parsed
		}
	}
	entries, err := h.audit.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": entries})
}
