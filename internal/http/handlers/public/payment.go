package public

import (
	"github.com/labcheck-cloud/internal/http/response"
	"github.com/labcheck-cloud/internal/repository"
	"github.com/labcheck-cloud/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePaymentRequest 发起订单支付请求
type CreatePaymentRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Channel string `json:"channel" binding:"required"`
}

// CreatePayment 为待支付订单发起渠道支付
func (h *Handler) CreatePayment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	payment, err := h.PaymentService.CreateOrderPayment(service.CreateOrderPaymentInput{
		UserID:   userID,
		OrderID:  req.OrderID,
		Channel:  req.Channel,
		ClientIP: c.ClientIP(),
		Context:  c.Request.Context(),
	})
	if err != nil {
		respondWithMappedError(c, err, paymentCreateErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, payment)
}

// GetPayment 查询支付单详情
func (h *Handler) GetPayment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	paymentID, ok := getPathUint(c, "id")
	if !ok {
		return
	}

	payment, err := h.PaymentService.GetPayment(userID, paymentID)
	if err != nil {
		respondWithMappedError(c, err, paymentGetErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, payment)
}

// ListPayments 查询当前用户支付记录
func (h *Handler) ListPayments(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := getPagination(c)

	payments, total, err := h.PaymentService.ListPayments(repository.PaymentListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Purpose:  c.Query("purpose"),
		Channel:  c.Query("channel"),
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, payments, response.NewPagination(page, pageSize, total))
}
