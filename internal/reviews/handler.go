package reviews

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resenas/internal/sync"
	"resenas/pkg/models"
)

const (
	msgNotFound     = "Reseña no encontrada"
	msgDeleted      = "Reseña eliminada correctamente"
	msgListFailed   = "Error al leer las reseñas"
	msgGetFailed    = "Error al leer la reseña"
	msgSearchFailed = "Error al buscar reseñas"
	msgCreateFailed = "Error al guardar la reseña"
	msgUpdateFailed = "Error al actualizar la reseña"
	msgDeleteFailed = "Error al eliminar la reseña"
)

type Handler struct {
	Store *Store
	Hub   *sync.Hub
}

func NewHandler(store *Store, hub *sync.Hub) *Handler {
	return &Handler{Store: store, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                // GET /api/resenas
	rg.GET("/buscar/query", h.search) // GET /api/resenas/buscar/query
	rg.GET("/:id", h.getByID)         // GET /api/resenas/:id
	rg.POST("", h.create)             // POST /api/resenas
	rg.PUT("/:id", h.update)          // PUT /api/resenas/:id
	rg.DELETE("/:id", h.delete)       // DELETE /api/resenas/:id
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Store.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, msgListFailed)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getByID(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}

	r, err := h.Store.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, msgGetFailed)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) search(c *gin.Context) {
	f := Filter{
		Author: c.Query("autor"),
		Title:  c.Query("titulo"),
		Series: c.Query("serie"),
	}
	// a minimum with no leading digits can never be met
	matchNone := false
	if raw := c.Query("valoracion"); raw != "" {
		if n, ok := leadingInt(raw); ok {
			v := int(n)
			f.MinRating = &v
		} else {
			matchNone = true
		}
	}

	items, err := h.Store.Search(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err, msgSearchFailed)
		return
	}
	if matchNone {
		items = []models.Review{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := CreateBindError(c.ShouldBindJSON(&in)); err != nil {
		h.fail(c, err, msgCreateFailed)
		return
	}

	r, err := h.Store.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, msgCreateFailed)
		return
	}

	h.publish(sync.EventCreated, r.ID, r)
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}

	var in UpdateInput
	bindErr := UpdateBindError(c.ShouldBindJSON(&in))
	if bindErr != nil {
		// an unknown id still answers 404 before a bad body answers 400
		if _, err := h.Store.Get(c.Request.Context(), id); err != nil {
			h.fail(c, err, msgUpdateFailed)
			return
		}
		h.fail(c, bindErr, msgUpdateFailed)
		return
	}

	r, err := h.Store.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err, msgUpdateFailed)
		return
	}

	h.publish(sync.EventUpdated, r.ID, r)
	c.JSON(http.StatusOK, r)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}

	if err := h.Store.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, msgDeleteFailed)
		return
	}

	h.publish(sync.EventDeleted, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": msgDeleted})
}

// fail maps store errors to responses. Anything that is not a client error
// is attached to the context for the access log and hidden behind msg.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func (h *Handler) publish(eventType string, id int64, r *models.Review) {
	if h.Hub == nil {
		return
	}
	ev := sync.ReviewEvent{
		Type:   eventType,
		ID:     id,
		Review: r,
		At:     time.Now().UTC(),
	}
	go h.Hub.BroadcastJSON(ev)
}

// parseID reads the leading integer of raw, so "7abc" is id 7. Values
// without one, or below 1, cannot match a review.
func parseID(raw string) (int64, bool) {
	id, ok := leadingInt(raw)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// leadingInt reads an optionally signed run of decimal digits at the start
// of raw, after leading whitespace, and ignores the rest: "4.5" and "4abc"
// both read as 4. Values too large for int64 saturate.
func leadingInt(raw string) (int64, bool) {
	s := strings.TrimLeft(raw, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return n, true
}
