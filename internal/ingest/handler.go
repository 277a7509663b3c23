package ingest

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Ingestor *Ingestor
}

func NewHandler(in *Ingestor) *Handler {
	return &Handler{Ingestor: in}
}

// RegisterRoutes mounts the upload endpoint. Callers put the role check in
// front of rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.upload) // POST /uploads
}

func (h *Handler) upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files"})
		return
	}

	sum, err := h.Ingestor.RunWith(c.Request.Context(), func(dir string) error {
		for _, fh := range files {
			name := filepath.Base(fh.Filename)
			if name == "." || name == string(filepath.Separator) {
				return fmt.Errorf("bad file name %q", fh.Filename)
			}
			if err := c.SaveUploadedFile(fh, filepath.Join(dir, name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var fe *FileError
		if errors.As(err, &fe) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "summary": sum})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}
