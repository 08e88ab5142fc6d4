package public

import (
	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/http/response"
	"github.com/labcheck-cloud/internal/repository"
	"github.com/labcheck-cloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Title        string          `json:"title" binding:"required"`
	ItemFee      decimal.Decimal `json:"item_fee" binding:"required"`
	UserCouponID *uint           `json:"user_coupon_id"`
}

// CancelOrderRequest 取消订单请求
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CreateOrder 创建检测订单
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		UserID:       userID,
		Title:        req.Title,
		ItemFee:      req.ItemFee,
		UserCouponID: req.UserCouponID,
	})
	if err != nil {
		respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, order)
}

// ListOrders 查询当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := getPagination(c)

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   c.Query("status"),
		OrderNo:  c.Query("order_no"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetOrder 查询订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := getPathUint(c, "id")
	if !ok {
		return
	}

	order, err := h.OrderService.GetOrder(userID, orderID)
	if err != nil {
		respondWithMappedError(c, err, orderCancelErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, order)
}

// GetOrderStatusHistory 查询订单状态流转历史
func (h *Handler) GetOrderStatusHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := getPathUint(c, "id")
	if !ok {
		return
	}

	history, err := h.OrderService.ListStatusHistory(userID, orderID)
	if err != nil {
		respondWithMappedError(c, err, orderCancelErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, history)
}

// CancelOrder 用户取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := getPathUint(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "user cancelled"
	}

	order, err := h.OrderService.Cancel(userID, orderID, constants.StatusActorUser, userID, reason)
	if err != nil {
		respondWithMappedError(c, err, orderCancelErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, order)
}

// PayOrderWithBalance 余额支付订单
func (h *Handler) PayOrderWithBalance(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := getPathUint(c, "id")
	if !ok {
		return
	}

	payment, err := h.OrderService.PayWithBalance(userID, orderID)
	if err != nil {
		respondWithMappedError(c, err, balancePayErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, payment)
}
