package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/querydeck/querydeck/api/v1"
	"github.com/querydeck/querydeck/internal/importer"
)

// ImportFile loads a base64-encoded file buffer into a table of the current
// local engine and refreshes the schema snapshot.
// (POST /import)
func (h *Handler) ImportFile(c *gin.Context) {
	var req v1.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}

	format, err := importer.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}
	buf, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: "data is not valid base64"})
		return
	}

	handle, _, err := h.engines.Current()
	if err != nil {
		c.JSON(http.StatusConflict, v1.ErrorResponse{Error: err.Error()})
		return
	}
	if handle == nil {
		c.JSON(http.StatusConflict, v1.ErrorResponse{Error: "import requires a local engine connection"})
		return
	}

	rows, err := importer.Import(c.Request.Context(), handle.DB, buf, req.Table, format)
	if err != nil {
		zap.S().Named("import_handler").Errorw("import failed", "table", req.Table, "format", format, "error", err)
		c.JSON(http.StatusUnprocessableEntity, v1.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.refresher.Refresh(c.Request.Context()); err != nil {
		zap.S().Named("import_handler").Warnw("schema refresh after import failed", "error", err)
	}
	c.JSON(http.StatusOK, v1.ImportResponse{Table: req.Table, Rows: rows})
}
