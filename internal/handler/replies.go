package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campaign-inbox-go/internal/model"
)

// GetReplies lists inbox replies, newest first. Supports filtering by
// classification, handled and read flags, plus limit/offset pagination.
func (h *Handlers) GetReplies(c *gin.Context) {
	query := h.db.Model(&model.InboxReply{}).Order("received_at desc")

	if classification := c.Query("classification"); classification != "" {
		if !model.Classification(classification).Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "invalid_classification", Message: "Unknown classification filter", Code: http.StatusBadRequest,
			})
			return
		}
		query = query.Where("classification = ?", classification)
	}
	if handled := c.Query("is_handled"); handled != "" {
		query = query.Where("is_handled = ?", handled == "true")
	}
	if read := c.Query("is_read"); read != "" {
		query = query.Where("is_read = ?", read == "true")
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "database_error", Message: "Failed to count replies", Code: http.StatusInternalServerError,
		})
		return
	}

	var replies []model.InboxReply
	if err := query.Limit(limit).Offset(offset).Find(&replies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "database_error", Message: "Failed to fetch replies", Code: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"limit":   limit,
		"offset":  offset,
		"replies": replies,
	})
}

// GetReply returns a single reply with its lead and campaign.
func (h *Handlers) GetReply(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_id", Message: "Invalid reply ID", Code: http.StatusBadRequest})
		return
	}
	var reply model.InboxReply
	if err := h.db.Preload("Lead").Preload("Campaign").First(&reply, id).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Reply not found", Code: http.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, reply)
}

// MarkReplyRead flags a reply as read by an operator.
func (h *Handlers) MarkReplyRead(c *gin.Context) {
	h.setReplyFlag(c, "is_read")
}

// MarkReplyHandled flags a reply as handled by an operator.
func (h *Handlers) MarkReplyHandled(c *gin.Context) {
	h.setReplyFlag(c, "is_handled")
}

func (h *Handlers) setReplyFlag(c *gin.Context, column string) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_id", Message: "Invalid reply ID", Code: http.StatusBadRequest})
		return
	}

	result := h.db.Model(&model.InboxReply{}).Where("id = ?", id).Update(column, true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "database_error", Message: "Failed to update reply", Code: http.StatusInternalServerError,
		})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Reply not found", Code: http.StatusNotFound})
		return
	}
	c.Status(http.StatusOK)
}
