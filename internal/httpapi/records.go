package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/canari/internal/export"
	"github.com/ppiankov/canari/internal/records"
)

type sampleEdit struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

func (s *Server) varieties(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"varieties": s.app.Varieties()})
}

func (s *Server) refreshPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"varieties": s.app.RefreshPresets(c.Request.Context())})
}

func (s *Server) listBatches(c *gin.Context) {
	var f records.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	batches, err := s.app.Records().ListBatches(c.Request.Context(), f)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches, "total": len(batches)})
}

func (s *Server) getBatch(c *gin.Context) {
	b, err := s.app.Records().GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) editSample(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		badRequest(c, fmt.Errorf("sample number %q: %w", c.Param("number"), err))
		return
	}
	var req sampleEdit
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := s.app.Records().EditSample(c.Request.Context(), c.Param("id"), number, req.Field, req.Value)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) listCounts(c *gin.Context) {
	var f records.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	counts, err := s.app.Records().ListCounts(c.Request.Context(), f)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts, "total": len(counts)})
}

func (s *Server) exportBatches(c *gin.Context) {
	var f records.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	batches, err := s.app.Records().ListBatches(c.Request.Context(), f)
	if err != nil {
		abort(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteBatches(&buf, batches); err != nil {
		abort(c, err)
		return
	}
	attachment(c, "batches.xlsx", buf.Bytes())
}

func (s *Server) exportCounts(c *gin.Context) {
	var f records.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	counts, err := s.app.Records().ListCounts(c.Request.Context(), f)
	if err != nil {
		abort(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCounts(&buf, counts); err != nil {
		abort(c, err)
		return
	}
	attachment(c, "counts.xlsx", buf.Bytes())
}

func attachment(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, export.ContentType, data)
}
