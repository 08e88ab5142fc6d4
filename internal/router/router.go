package router

import (
	"fmt"
	"strings"

	"github.com/labcheck-cloud/internal/cache"
	"github.com/labcheck-cloud/internal/config"
	publichandlers "github.com/labcheck-cloud/internal/http/handlers/public"
	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "lc"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_too_many",
	}
	drawRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:draw", redisPrefix),
		WindowSeconds: cfg.Security.DrawRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.DrawRateLimit.MaxAttempts,
		MessageKey:    "error.rate_limited",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/lottery/prizes", publicHandler.ListLotteryPrizes)
			public.GET("/lottery/recent-wins", publicHandler.GetRecentWins)
			public.GET("/recharges/bonus-rules", publicHandler.GetBonusRules)
		}

		// 支付渠道异步回调（渠道侧调用，不走用户鉴权）
		notify := apiV1.Group("/payments/notify")
		{
			notify.POST("/wechat", publicHandler.WechatNotify)
			notify.POST("/alipay", publicHandler.AlipayNotify)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("phone")), publicHandler.Login)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetProfile)

			user.POST("/orders", publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.GET("/orders/:id/status-history", publicHandler.GetOrderStatusHistory)
			user.POST("/orders/:id/cancel", publicHandler.CancelOrder)
			user.POST("/orders/:id/pay-with-balance", publicHandler.PayOrderWithBalance)

			user.POST("/payments", publicHandler.CreatePayment)
			user.GET("/payments", publicHandler.ListPayments)
			user.GET("/payments/:id", publicHandler.GetPayment)

			user.POST("/recharges", publicHandler.CreateRecharge)
			user.GET("/recharges", publicHandler.ListRecharges)
			user.GET("/recharges/:id", publicHandler.GetRecharge)

			user.GET("/points/summary", publicHandler.GetPointsSummary)
			user.GET("/points/records", publicHandler.ListPointsRecords)

			user.GET("/coupons", publicHandler.ListReceivableCoupons)
			user.POST("/coupons/:id/receive", publicHandler.ReceiveCoupon)
			user.GET("/me/coupons", publicHandler.ListMyCoupons)
			user.GET("/me/coupons/:id", publicHandler.GetMyCoupon)

			user.POST("/lottery/draw", RateLimitMiddleware(redisClient, drawRule, KeyByUserID), publicHandler.DrawLottery)
			user.GET("/lottery/chances", publicHandler.GetLotteryChances)
			user.GET("/lottery/records", publicHandler.ListLotteryRecords)
			user.GET("/lottery/records/:id", publicHandler.GetLotteryRecord)
			user.POST("/lottery/records/:id/claim", publicHandler.ClaimLotteryRecord)
		}
	}

	return r
}
