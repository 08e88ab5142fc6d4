package worker

import (
	"context"
	"errors"
	"time"

	"github.com/labcheck-cloud/internal/config"
	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	couponSweepInterval = time.Minute
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.CouponService != nil {
		go s.runCouponSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runCouponSweepLoop 定时兜底过期未使用且已超期的优惠券，防止过期任务丢失后状态悬挂。
func (s *Service) runCouponSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.CouponService == nil {
		return
	}
	runOnce := func() {
		expired, err := s.consumer.CouponService.ExpireOverdue()
		if err != nil {
			logger.Warnw("worker_coupon_sweep_failed", "error", err)
			return
		}
		if expired > 0 {
			logger.Debugw("worker_coupon_sweep_done", "expired", expired)
		}
	}
	runOnce()

	ticker := time.NewTicker(couponSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
