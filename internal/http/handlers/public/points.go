package public

import (
	"github.com/labcheck-cloud/internal/http/response"
	"github.com/labcheck-cloud/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetPointsSummary 查询积分余额与累计收支
func (h *Handler) GetPointsSummary(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	summary, err := h.PointsService.Summary(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, summary)
}

// ListPointsRecords 查询积分流水
func (h *Handler) ListPointsRecords(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := getPagination(c)

	records, total, err := h.PointsService.List(repository.PointsListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Type:     c.Query("type"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, records, response.NewPagination(page, pageSize, total))
}
