package handler

import (
	"net/http"

	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// UploadAttachment stores a file for a complaint the student is about to submit.
func (h *Handler) UploadAttachment(c *gin.Context) {
	rc := RoleContextFrom(c)
	if rc.Role != models.RoleStudent {
		_ = c.Error(apperr.AccessDenied("only students attach files to complaints"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		_ = c.Error(apperr.Validation("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	att, err := h.Uploads.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, att)
}
