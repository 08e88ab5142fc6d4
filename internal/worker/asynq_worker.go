package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/provider"
	"github.com/labcheck-cloud/internal/queue"
	"github.com/labcheck-cloud/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderReward, c.handleOrderReward)
	mux.HandleFunc(queue.TaskLotteryRecordExpire, c.handleLotteryRecordExpire)
	mux.HandleFunc(queue.TaskUserCouponExpire, c.handleUserCouponExpire)
}

func (c *Consumer) handleOrderReward(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_reward_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderRewardPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_reward_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_reward_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.RewardService == nil {
		logger.Warnw("worker_order_reward_skip_reward_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.RewardService.IssueOrderRewards(payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_reward_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_order_reward_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleLotteryRecordExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_lottery_record_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LotteryRecordExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_lottery_record_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.RecordID == 0 {
		logger.Debugw("worker_lottery_record_expire_skip_invalid_payload", "record_id", payload.RecordID)
		return nil
	}
	if c.LotteryService == nil {
		logger.Warnw("worker_lottery_record_expire_skip_lottery_service_nil", "record_id", payload.RecordID)
		return nil
	}
	if err := c.LotteryService.ExpireRecord(payload.RecordID); err != nil {
		logger.Warnw("worker_lottery_record_expire_failed", "record_id", payload.RecordID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleUserCouponExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_user_coupon_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.UserCouponExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_user_coupon_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserCouponID == 0 {
		logger.Debugw("worker_user_coupon_expire_skip_invalid_payload", "user_coupon_id", payload.UserCouponID)
		return nil
	}
	if c.CouponService == nil {
		logger.Warnw("worker_user_coupon_expire_skip_coupon_service_nil", "user_coupon_id", payload.UserCouponID)
		return nil
	}
	if err := c.CouponService.ExpireUserCoupon(payload.UserCouponID); err != nil {
		logger.Warnw("worker_user_coupon_expire_failed", "user_coupon_id", payload.UserCouponID, "error", err)
		return err
	}
	return nil
}
