package public

import (
	"github.com/labcheck-cloud/internal/http/response"
	"github.com/labcheck-cloud/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListReceivableCoupons 查询当前可领取的优惠券模板
func (h *Handler) ListReceivableCoupons(c *gin.Context) {
	coupons, err := h.CouponService.ListReceivable()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, coupons)
}

// ReceiveCoupon 领取优惠券
func (h *Handler) ReceiveCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	couponID, ok := getPathUint(c, "id")
	if !ok {
		return
	}

	userCoupon, err := h.CouponService.Receive(userID, couponID)
	if err != nil {
		respondWithMappedError(c, err, couponReceiveErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, userCoupon)
}

// GetMyCoupon 查询当前用户的单张持券
func (h *Handler) GetMyCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	userCouponID, ok := getPathUint(c, "id")
	if !ok {
		return
	}

	userCoupon, err := h.CouponService.GetUserCoupon(userID, userCouponID)
	if err != nil {
		respondWithMappedError(c, err, couponGetErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, userCoupon)
}

// ListMyCoupons 查询当前用户持有的优惠券
func (h *Handler) ListMyCoupons(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := getPagination(c)

	userCoupons, total, err := h.CouponService.ListMine(repository.UserCouponListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, userCoupons, response.NewPagination(page, pageSize, total))
}
