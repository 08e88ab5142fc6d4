package provider

import (
	"github.com/labcheck-cloud/internal/cache"
	"github.com/labcheck-cloud/internal/config"
	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/payment/alipay"
	"github.com/labcheck-cloud/internal/payment/wechatpay"
	"github.com/labcheck-cloud/internal/queue"
	"github.com/labcheck-cloud/internal/repository"
	"github.com/labcheck-cloud/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo     *repository.GormUserRepository
	OrderRepo    *repository.GormOrderRepository
	PaymentRepo  *repository.GormPaymentRepository
	RechargeRepo *repository.GormRechargeRepository
	PointsRepo   *repository.GormPointsRepository
	CouponRepo   *repository.GormCouponRepository
	LotteryRepo  *repository.GormLotteryRepository

	// Services
	UserAuthService   *service.UserAuthService
	OrderService      *service.OrderService
	PaymentService    *service.PaymentService
	SettlementService *service.SettlementService
	RechargeService   *service.RechargeService
	PointsService     *service.PointsService
	CouponService     *service.CouponService
	LotteryService    *service.LotteryService
	RewardService     *service.RewardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.RechargeRepo = repository.NewRechargeRepository(db)
	c.PointsRepo = repository.NewPointsRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.LotteryRepo = repository.NewLotteryRepository(db)
}

func (c *Container) initServices() {
	var wechatGateway service.WechatGateway
	if c.Config.Wechat.Enabled {
		client, err := wechatpay.NewClient(wechatpay.Config{
			AppID:     c.Config.Wechat.AppID,
			MchID:     c.Config.Wechat.MchID,
			APIKey:    c.Config.Wechat.APIKey,
			APIBase:   c.Config.Wechat.APIBase,
			TimeoutMS: c.Config.Wechat.TimeoutMS,
		})
		if err != nil {
			logger.Errorw("provider_init_wechat_gateway_failed", "error", err)
		} else {
			wechatGateway = client
		}
	}
	var alipayGateway service.AlipayGateway
	if c.Config.Alipay.Enabled {
		client, err := alipay.NewClient(alipay.Config{
			AppID:           c.Config.Alipay.AppID,
			GatewayURL:      c.Config.Alipay.GatewayURL,
			MerchantPrivKey: c.Config.Alipay.MerchantPrivKey,
			PlatformPubKey:  c.Config.Alipay.PlatformPubKey,
		})
		if err != nil {
			logger.Errorw("provider_init_alipay_gateway_failed", "error", err)
		} else {
			alipayGateway = client
		}
	}

	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.OrderRepo, &c.Config.Payment, wechatGateway, alipayGateway)
	c.SettlementService = service.NewSettlementService(c.PaymentRepo, c.OrderRepo, c.RechargeRepo, c.UserRepo, c.QueueClient)
	c.RechargeService = service.NewRechargeService(c.RechargeRepo, c.UserRepo, c.PaymentService, service.NewBonusCalculator())
	c.PointsService = service.NewPointsService(c.PointsRepo, c.UserRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.QueueClient)
	c.LotteryService = service.NewLotteryService(c.LotteryRepo, c.UserRepo, c.PointsService, c.CouponService, &c.Config.Lottery, c.QueueClient)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.PaymentRepo, c.UserRepo, c.CouponService, c.QueueClient)
	c.RewardService = service.NewRewardService(c.OrderRepo, c.PointsRepo, c.PointsService, c.LotteryService, &c.Config.Reward)
}
