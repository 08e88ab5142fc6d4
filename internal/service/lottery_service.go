package service

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/labcheck-cloud/internal/config"
	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/queue"
	"github.com/labcheck-cloud/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lotteryRollMax         = 10000
	defaultClaimExpireDays = 7
	emptyPrizeFallbackName = "谢谢参与"
)

// LotteryService 抽奖服务
type LotteryService struct {
	lotteryRepo *repository.GormLotteryRepository
	userRepo    *repository.GormUserRepository
	pointsSvc   *PointsService
	couponSvc   *CouponService
	cfg         *config.LotteryConfig
	queueClient *queue.Client
	roll        func() int
}

// NewLotteryService 创建抽奖服务
func NewLotteryService(
	lotteryRepo *repository.GormLotteryRepository,
	userRepo *repository.GormUserRepository,
	pointsSvc *PointsService,
	couponSvc *CouponService,
	cfg *config.LotteryConfig,
	queueClient *queue.Client,
) *LotteryService {
	return &LotteryService{
		lotteryRepo: lotteryRepo,
		userRepo:    userRepo,
		pointsSvc:   pointsSvc,
		couponSvc:   couponSvc,
		cfg:         cfg,
		queueClient: queueClient,
		roll: func() int {
			return rand.Intn(lotteryRollMax) + 1
		},
	}
}

func lotteryLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// selectPrize 按累计权重选取奖品。权重为万分之一，掷点范围 [1,10000]，
// 权重配置不足一万时兜底命中最后一个奖品。
func selectPrize(prizes []models.LotteryPrize, roll int) *models.LotteryPrize {
	if len(prizes) == 0 {
		return nil
	}
	cumulative := 0
	for i := range prizes {
		cumulative += prizes[i].Probability
		if roll <= cumulative {
			return &prizes[i]
		}
	}
	return &prizes[len(prizes)-1]
}

// Draw 消耗一次抽奖机会并落一条抽奖结果。
// 机会行加锁消耗、奖品计数递增与结果写入在同一事务内完成。
func (s *LotteryService) Draw(userID uint) (*models.LotteryRecord, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}

	log := lotteryLogger("user_id", userID)

	var record *models.LotteryRecord
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		lotteryRepo := s.lotteryRepo.WithTx(tx)
		now := time.Now()

		chance, err := lotteryRepo.GetAvailableChanceForUpdate(userID, now)
		if err != nil {
			return err
		}
		if chance == nil {
			return ErrLotteryNoChances
		}

		prizes, err := lotteryRepo.ListActivePrizes()
		if err != nil {
			return err
		}
		if len(prizes) == 0 {
			return ErrLotteryNoPrizes
		}

		roll := s.roll()
		selected := selectPrize(prizes, roll)

		awarded, err := s.resolveAward(lotteryRepo, selected, now, log)
		if err != nil {
			return err
		}

		chance.IsUsed = true
		usedAt := now
		chance.UsedAt = &usedAt
		if err := lotteryRepo.UpdateChance(chance); err != nil {
			return err
		}

		claimDays := defaultClaimExpireDays
		if s.cfg != nil && s.cfg.ClaimExpireDays > 0 {
			claimDays = s.cfg.ClaimExpireDays
		}
		result := &models.LotteryRecord{
			UserID:     userID,
			ChanceID:   chance.ID,
			PrizeID:    awarded.ID,
			PrizeName:  awarded.Name,
			PrizeType:  awarded.Type,
			PrizeValue: awarded.Value,
			CouponID:   awarded.CouponID,
			Status:     constants.LotteryRecordStatusPending,
			ExpireAt:   now.AddDate(0, 0, claimDays),
		}
		if err := lotteryRepo.CreateRecord(result); err != nil {
			return err
		}
		record = result
		log.Infow("lottery_drawn",
			"roll", roll,
			"prize_id", awarded.ID,
			"prize_type", awarded.Type,
			"prize_name", awarded.Name,
		)
		return nil
	})
	if err != nil {
		log.Warnw("lottery_draw_rejected", "error", err)
		return nil, err
	}

	s.enqueueRecordExpireAsync(record, log)
	return record, nil
}

// resolveAward 对选中奖品加锁复核发放上限并递增计数。
// 超出日限或总限时改发空奖，空奖缺失则按未中奖落账，不超发。
func (s *LotteryService) resolveAward(lotteryRepo *repository.GormLotteryRepository, selected *models.LotteryPrize, now time.Time, log *zap.SugaredLogger) (*models.LotteryPrize, error) {
	locked, err := lotteryRepo.GetPrizeByIDForUpdate(selected.ID)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return nil, ErrLotteryNoPrizes
	}

	overLimit := false
	if locked.Type != constants.PrizeTypeEmpty {
		if locked.TotalLimit > 0 && locked.IssuedCount >= locked.TotalLimit {
			overLimit = true
		}
		if !overLimit && locked.DailyLimit > 0 {
			dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			issuedToday, err := lotteryRepo.CountPrizeIssuedSince(locked.ID, dayStart)
			if err != nil {
				return nil, err
			}
			if issuedToday >= int64(locked.DailyLimit) {
				overLimit = true
			}
		}
	}
	if !overLimit {
		locked.IssuedCount++
		if err := lotteryRepo.UpdatePrize(locked); err != nil {
			return nil, err
		}
		return locked, nil
	}

	log.Infow("lottery_prize_over_limit",
		"prize_id", locked.ID,
		"issued_count", locked.IssuedCount,
	)
	empty, err := lotteryRepo.GetEmptyPrize()
	if err != nil {
		return nil, err
	}
	if empty == nil {
		// 未配置空奖时按未中奖记录，不挂靠任何奖品，也不对超限奖品超发。
		return &models.LotteryPrize{
			Name: emptyPrizeFallbackName,
			Type: constants.PrizeTypeEmpty,
		}, nil
	}
	lockedEmpty, err := lotteryRepo.GetPrizeByIDForUpdate(empty.ID)
	if err != nil {
		return nil, err
	}
	if lockedEmpty == nil {
		return nil, ErrLotteryNoPrizes
	}
	lockedEmpty.IssuedCount++
	if err := lotteryRepo.UpdatePrize(lockedEmpty); err != nil {
		return nil, err
	}
	return lockedEmpty, nil
}

// Claim 领取中奖结果，按奖品类型落账。重复领取与过期领取均被拒绝且无副作用。
func (s *LotteryService) Claim(userID, recordID uint) (*models.LotteryRecord, error) {
	log := lotteryLogger(
		"user_id", userID,
		"record_id", recordID,
	)

	var record *models.LotteryRecord
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		lotteryRepo := s.lotteryRepo.WithTx(tx)
		now := time.Now()

		locked, err := lotteryRepo.GetRecordByIDForUpdate(recordID)
		if err != nil {
			return err
		}
		if locked == nil || locked.UserID != userID {
			return ErrLotteryRecordNotFound
		}
		switch locked.Status {
		case constants.LotteryRecordStatusClaimed:
			return ErrLotteryRecordClaimed
		case constants.LotteryRecordStatusExpired:
			return ErrLotteryRecordExpired
		}
		if now.After(locked.ExpireAt) {
			locked.Status = constants.LotteryRecordStatusExpired
			if err := lotteryRepo.UpdateRecord(locked); err != nil {
				return err
			}
			return ErrLotteryRecordExpired
		}

		switch locked.PrizeType {
		case constants.PrizeTypePoints:
			points := locked.PrizeValue.Decimal.IntPart()
			if points > 0 {
				reference := fmt.Sprintf("lottery:record:%d", locked.ID)
				if err := s.pointsSvc.CreditTx(tx, userID, points, constants.PointsTypeLottery, locked.ID, reference); err != nil {
					return err
				}
			}
		case constants.PrizeTypeCash:
			if locked.PrizeValue.Decimal.IsPositive() {
				userRepo := s.userRepo.WithTx(tx)
				user, err := userRepo.GetByIDForUpdate(userID)
				if err != nil {
					return err
				}
				if user == nil {
					return ErrUserNotFound
				}
				user.Balance = models.NewMoneyFromDecimal(user.Balance.Decimal.Add(locked.PrizeValue.Decimal))
				if err := userRepo.Update(user); err != nil {
					return err
				}
			}
		case constants.PrizeTypeCoupon:
			if locked.CouponID == nil || *locked.CouponID == 0 {
				return ErrLotteryPrizeUnclaimable
			}
			if _, err := s.couponSvc.issueFromTemplateTx(tx, userID, *locked.CouponID, now); err != nil {
				return err
			}
		case constants.PrizeTypeGift, constants.PrizeTypeEmpty:
			// 实物线下履约、空奖无账务动作，仅推进领取状态。
		default:
			return ErrLotteryPrizeUnclaimable
		}

		locked.Status = constants.LotteryRecordStatusClaimed
		claimedAt := now
		locked.ClaimedAt = &claimedAt
		if err := lotteryRepo.UpdateRecord(locked); err != nil {
			return err
		}
		record = locked
		return nil
	})
	if err != nil {
		log.Warnw("lottery_claim_rejected", "error", err)
		return nil, err
	}
	log.Infow("lottery_claimed",
		"prize_type", record.PrizeType,
		"prize_name", record.PrizeName,
	)
	return record, nil
}

// GrantChances 发放抽奖机会
func (s *LotteryService) GrantChances(tx *gorm.DB, userID uint, source string, refID uint, count int) error {
	if userID == 0 || count <= 0 {
		return nil
	}
	lotteryRepo := s.lotteryRepo
	if tx != nil {
		lotteryRepo = s.lotteryRepo.WithTx(tx)
	}
	var expireAt *time.Time
	if s.cfg != nil && s.cfg.ChanceExpireDays > 0 {
		t := time.Now().AddDate(0, 0, s.cfg.ChanceExpireDays)
		expireAt = &t
	}
	for i := 0; i < count; i++ {
		chance := &models.LotteryChance{
			UserID:   userID,
			Source:   source,
			RefID:    refID,
			ExpireAt: expireAt,
		}
		if err := lotteryRepo.CreateChance(chance); err != nil {
			return err
		}
	}
	return nil
}

// ExpireRecord 将超过领取期限的中奖记录置为过期（异步任务触发）
func (s *LotteryService) ExpireRecord(recordID uint) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		lotteryRepo := s.lotteryRepo.WithTx(tx)
		record, err := lotteryRepo.GetRecordByIDForUpdate(recordID)
		if err != nil {
			return err
		}
		if record == nil {
			return nil
		}
		if record.Status != constants.LotteryRecordStatusPending {
			return nil
		}
		if time.Now().Before(record.ExpireAt) {
			return nil
		}
		record.Status = constants.LotteryRecordStatusExpired
		return lotteryRepo.UpdateRecord(record)
	})
}

// ListPrizes 当前启用的奖品列表
func (s *LotteryService) ListPrizes() ([]models.LotteryPrize, error) {
	return s.lotteryRepo.ListActivePrizes()
}

// AvailableChances 用户剩余抽奖机会数
func (s *LotteryService) AvailableChances(userID uint) (int64, error) {
	return s.lotteryRepo.CountAvailableChances(userID, time.Now())
}

// ListRecords 用户抽奖记录
func (s *LotteryService) ListRecords(filter repository.LotteryRecordListFilter) ([]models.LotteryRecord, int64, error) {
	return s.lotteryRepo.ListRecords(filter)
}

// GetRecord 查询用户自己的抽奖记录
func (s *LotteryService) GetRecord(userID, recordID uint) (*models.LotteryRecord, error) {
	record, err := s.lotteryRepo.GetRecordByIDAndUser(recordID, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrLotteryRecordNotFound
	}
	return record, nil
}

// RecentWin 近期中奖展示项
type RecentWin struct {
	Nickname  string    `json:"nickname"`
	PrizeName string    `json:"prize_name"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentWins 近期中奖滚动列表，昵称缺省时用脱敏手机号
func (s *LotteryService) RecentWins(limit int) ([]RecentWin, error) {
	records, err := s.lotteryRepo.ListRecentWins(limit)
	if err != nil {
		return nil, err
	}
	wins := make([]RecentWin, 0, len(records))
	for _, record := range records {
		nickname := ""
		user, err := s.userRepo.GetByID(record.UserID)
		if err == nil && user != nil {
			nickname = user.Nickname
			if nickname == "" {
				nickname = maskPhone(user.Phone)
			}
		}
		wins = append(wins, RecentWin{
			Nickname:  nickname,
			PrizeName: record.PrizeName,
			CreatedAt: record.CreatedAt,
		})
	}
	return wins, nil
}

// TodayDrawCount 用户当日抽奖次数
func (s *LotteryService) TodayDrawCount(userID uint) (int64, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.lotteryRepo.CountDrawsSince(userID, dayStart)
}

func maskPhone(phone string) string {
	if len(phone) < 7 {
		return phone
	}
	return phone[:3] + "****" + phone[len(phone)-4:]
}

func (s *LotteryService) enqueueRecordExpireAsync(record *models.LotteryRecord, log *zap.SugaredLogger) {
	if record == nil || s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	err := s.queueClient.EnqueueLotteryRecordExpire(queue.LotteryRecordExpirePayload{RecordID: record.ID}, record.ExpireAt)
	if err != nil {
		log.Warnw("lottery_enqueue_record_expire_failed", "record_id", record.ID, "error", err)
	}
}
