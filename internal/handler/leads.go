package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"campaign-inbox-go/internal/model"
)

// GetLeads lists leads, optionally filtered by status or email substring.
func (h *Handlers) GetLeads(c *gin.Context) {
	query := h.db.Model(&model.Lead{}).Order("created_at desc")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", strings.ToUpper(status))
	}
	if email := c.Query("email"); email != "" {
		query = query.Where("email LIKE ?", "%"+strings.ToLower(email)+"%")
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	var leads []model.Lead
	if err := query.Limit(limit).Offset(offset).Find(&leads).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "database_error", Message: "Failed to fetch leads", Code: http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, leads)
}

// GetLead returns a single lead with memberships and tags.
func (h *Handlers) GetLead(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_id", Message: "Invalid lead ID", Code: http.StatusBadRequest})
		return
	}
	var lead model.Lead
	if err := h.db.Preload("Memberships").Preload("Tags").First(&lead, id).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Lead not found", Code: http.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, lead)
}
