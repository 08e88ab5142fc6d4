package service

import (
	"time"

	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/repository"
)

// allowedOrderTransitions 订单状态机：键为当前状态，值为允许迁移到的状态
// completed 与 cancelled 为终态。
var allowedOrderTransitions = map[string][]string{
	constants.OrderStatusPendingPayment: {
		constants.OrderStatusConfirmed,
		constants.OrderStatusCancelled,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusWaitingTest,
		constants.OrderStatusCancelled,
	},
	constants.OrderStatusWaitingTest: {
		constants.OrderStatusInProgress,
	},
	constants.OrderStatusInProgress: {
		constants.OrderStatusCompleted,
	},
	constants.OrderStatusCompleted: {},
	constants.OrderStatusCancelled: {},
}

// CanTransitionOrderStatus 判断订单状态迁移是否合法
func CanTransitionOrderStatus(from, to string) bool {
	targets, ok := allowedOrderTransitions[from]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminalOrderStatus 判断是否为订单终态
func IsTerminalOrderStatus(status string) bool {
	return status == constants.OrderStatusCompleted || status == constants.OrderStatusCancelled
}

// transitionOrderStatus 执行状态迁移并追加历史，非法迁移返回 ErrOrderStatusInvalid
// 仅修改内存对象与写入历史行，订单行本身由调用方持久化。
func transitionOrderStatus(orderRepo *repository.GormOrderRepository, order *models.Order, to, actorType string, actorID uint, reason string, now time.Time) error {
	if order == nil {
		return ErrOrderNotFound
	}
	from := order.Status
	if !CanTransitionOrderStatus(from, to) {
		return ErrOrderStatusInvalid
	}
	order.Status = to
	order.UpdatedAt = now
	switch to {
	case constants.OrderStatusCompleted:
		order.CompletedAt = &now
	case constants.OrderStatusCancelled:
		order.CancelledAt = &now
		order.CancelReason = reason
	}
	history := &models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		Reason:     reason,
		CreatedAt:  now,
	}
	if err := orderRepo.CreateStatusHistory(history); err != nil {
		return ErrOrderUpdateFailed
	}
	return nil
}
