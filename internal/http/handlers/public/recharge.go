package public

import (
	"github.com/labcheck-cloud/internal/http/response"
	"github.com/labcheck-cloud/internal/repository"
	"github.com/labcheck-cloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateRechargeRequest 发起充值请求
type CreateRechargeRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Channel string          `json:"channel" binding:"required"`
}

// CreateRecharge 创建充值单并发起渠道支付
func (h *Handler) CreateRecharge(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	result, err := h.RechargeService.CreateRecharge(service.CreateRechargeInput{
		UserID:   userID,
		Amount:   req.Amount,
		Channel:  req.Channel,
		ClientIP: c.ClientIP(),
		Context:  c.Request.Context(),
	})
	if err != nil {
		respondWithMappedError(c, err, rechargeCreateErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"recharge": result.Recharge,
		"payment":  result.Payment,
	})
}

// GetRecharge 查询充值单详情
func (h *Handler) GetRecharge(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	rechargeID, ok := getPathUint(c, "id")
	if !ok {
		return
	}

	recharge, err := h.RechargeService.GetRecharge(userID, rechargeID)
	if err != nil {
		respondWithMappedError(c, err, rechargeGetErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, recharge)
}

// ListRecharges 查询当前用户充值记录
func (h *Handler) ListRecharges(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := getPagination(c)

	records, total, err := h.RechargeService.ListRecharges(repository.RechargeListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, records, response.NewPagination(page, pageSize, total))
}

// GetBonusRules 充值赠送档位
func (h *Handler) GetBonusRules(c *gin.Context) {
	response.Success(c, h.RechargeService.BonusRules())
}
