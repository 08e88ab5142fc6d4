package queue

import (
	"encoding/json"

	"github.com/labcheck-cloud/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderReward 订单完成奖励发放任务
	TaskOrderReward = constants.TaskOrderReward
	// TaskLotteryRecordExpire 中奖记录过期任务
	TaskLotteryRecordExpire = constants.TaskLotteryRecordExpire
	// TaskUserCouponExpire 用户优惠券过期任务
	TaskUserCouponExpire = constants.TaskUserCouponExpire
)

// OrderRewardPayload 订单奖励任务载荷
type OrderRewardPayload struct {
	OrderID uint `json:"order_id"`
}

// LotteryRecordExpirePayload 中奖记录过期任务载荷
type LotteryRecordExpirePayload struct {
	RecordID uint `json:"record_id"`
}

// UserCouponExpirePayload 用户优惠券过期任务载荷
type UserCouponExpirePayload struct {
	UserCouponID uint `json:"user_coupon_id"`
}

// NewOrderRewardTask 创建订单奖励任务
func NewOrderRewardTask(payload OrderRewardPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderReward, body), nil
}

// NewLotteryRecordExpireTask 创建中奖记录过期任务
func NewLotteryRecordExpireTask(payload LotteryRecordExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLotteryRecordExpire, body), nil
}

// NewUserCouponExpireTask 创建用户优惠券过期任务
func NewUserCouponExpireTask(payload UserCouponExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUserCouponExpire, body), nil
}
