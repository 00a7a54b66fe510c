package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"printer-docs-backend/internal/apperr"
	"printer-docs-backend/internal/dipswitch"
	"printer-docs-backend/internal/importer"
)

// PostImport loads an uploaded error-code table (multipart fields "model" and
// "file") and reports per-row results.
func (h *Handler) PostImport(c *gin.Context) {
	upload, err := readUpload(c)
	if err != nil {
		h.respondImportError(c, err)
		return
	}

	report, err := h.importer.Import(c.Request.Context(), upload)
	if err != nil {
		h.respondImportError(c, err)
		return
	}
	h.cache.Flush()

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      report.Message(),
		"model":        report.Model,
		"printer_id":   report.PrinterID,
		"upserted":     report.Upserted,
		"skipped":      report.Skipped,
		"skipped_rows": report.Rows,
	})
}

func readUpload(c *gin.Context) (importer.Upload, error) {
	u := importer.Upload{Model: c.PostForm("model")}

	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		// The importer reports the missing model before the missing file.
		return u, nil
	}
	if err != nil {
		return u, err
	}

	f, err := fh.Open()
	if err != nil {
		return u, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return u, err
	}
	u.Filename = fh.Filename
	u.Data = data
	return u, nil
}

func (h *Handler) respondImportError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError && apperr.KindOf(err) == 0 {
		// Multipart decoding failures are the client's.
		status = http.StatusBadRequest
		err = apperr.Inputf("malformed upload: %v", err)
	}
	h.logFailure(c, status, err)
	c.JSON(status, gin.H{"success": false, "message": messageOf(err, status)})
}

// PostImportDipSwitches replaces the DIP-switch table of the model named by
// the first row.
func (h *Handler) PostImportDipSwitches(c *gin.Context) {
	var rows []dipswitch.Row
	if err := c.ShouldBindJSON(&rows); err != nil {
		if status := statusOf(err); status == http.StatusRequestEntityTooLarge {
			c.JSON(status, gin.H{"error": messageOf(err, status)})
			return
		}
		badRequest(c, err.Error())
		return
	}

	if _, err := h.dipswitch.Replace(c.Request.Context(), rows); err != nil {
		h.respondError(c, err)
		return
	}
	h.cache.Flush()
	c.JSON(http.StatusOK, "Imported")
}
