package public

import (
	"time"

	"github.com/labcheck-cloud/internal/http/response"
	"github.com/labcheck-cloud/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Nickname string `json:"nickname"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserView 用户信息响应结构
type UserView struct {
	ID          uint         `json:"id"`
	Phone       string       `json:"phone"`
	Nickname    string       `json:"nickname"`
	Balance     models.Money `json:"balance"`
	CreatedAt   time.Time    `json:"created_at"`
	LastLoginAt *time.Time   `json:"last_login_at"`
}

func newUserView(user *models.User) UserView {
	return UserView{
		ID:          user.ID,
		Phone:       user.Phone,
		Nickname:    user.Nickname,
		Balance:     user.Balance,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}

// Register 用户注册
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	user, err := h.UserAuthService.Register(req.Phone, req.Password, req.Nickname)
	if err != nil {
		respondWithMappedError(c, err, authErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, newUserView(user))
}

// Login 用户登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.request_invalid", err)
		return
	}

	user, token, expiresAt, err := h.UserAuthService.Login(req.Phone, req.Password)
	if err != nil {
		respondWithMappedError(c, err, authErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       newUserView(user),
	})
}

// GetProfile 个人中心概览：余额、积分、可用券、剩余抽奖机会
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.UserAuthService.GetProfile(userID)
	if err != nil {
		respondWithMappedError(c, err, authErrorRules, response.CodeInternal, "error.internal")
		return
	}
	pointsSummary, err := h.PointsService.Summary(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	couponCount, err := h.CouponService.CountAvailable(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	chances, err := h.LotteryService.AvailableChances(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	totalRecharged, err := h.RechargeService.TotalRecharged(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"user":              newUserView(user),
		"points":            pointsSummary,
		"available_coupons": couponCount,
		"lottery_chances":   chances,
		"total_recharged":   totalRecharged,
	})
}
