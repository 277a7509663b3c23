package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/records", h.search)      // GET /records
	rg.GET("/records/:id", h.getByID) // GET /records/:id
	rg.GET("/facets", h.facets)       // GET /facets
}

func (h *Handler) search(c *gin.Context) {
	q := Query{
		Q:        c.Query("q"),
		Title:    c.Query("title"),
		Author:   c.Query("author"),
		Keyword:  c.Query("keyword"),
		ISBN:     c.Query("isbn"),
		YearFrom: parseInt(c.Query("year_from"), 0),
		YearTo:   parseInt(c.Query("year_to"), 0),
		Sources:  c.QueryArray("source"),
		Types:    c.QueryArray("type"),
		Limit:    parseInt(c.Query("limit"), 20),
		Offset:   parseInt(c.Query("offset"), 0),
	}

	items, total, err := h.Repo.Search(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, ErrBadQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	rec, err := h.Repo.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) facets(c *gin.Context) {
	f, err := h.Repo.Facets(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "facets failed"})
		return
	}
	c.JSON(http.StatusOK, f)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
