package public

import (
	"time"

	"github.com/labcheck-cloud/internal/cache"
	"github.com/labcheck-cloud/internal/http/response"
	"github.com/labcheck-cloud/internal/repository"
	"github.com/labcheck-cloud/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	recentWinsCacheKey = "lottery:recent_wins"
	recentWinsCacheTTL = 30 * time.Second
	recentWinsLimit    = 20
)

// ListLotteryPrizes 查询奖池
func (h *Handler) ListLotteryPrizes(c *gin.Context) {
	prizes, err := h.LotteryService.ListPrizes()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, prizes)
}

// DrawLottery 抽奖
func (h *Handler) DrawLottery(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	record, err := h.LotteryService.Draw(userID)
	if err != nil {
		respondWithMappedError(c, err, lotteryDrawErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, record)
}

// ClaimLotteryRecord 领取中奖奖品
func (h *Handler) ClaimLotteryRecord(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	recordID, ok := getPathUint(c, "id")
	if !ok {
		return
	}

	record, err := h.LotteryService.Claim(userID, recordID)
	if err != nil {
		respondWithMappedError(c, err, lotteryClaimErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, record)
}

// GetLotteryRecord 查询当前用户的单条抽奖记录
func (h *Handler) GetLotteryRecord(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	recordID, ok := getPathUint(c, "id")
	if !ok {
		return
	}

	record, err := h.LotteryService.GetRecord(userID, recordID)
	if err != nil {
		respondWithMappedError(c, err, lotteryRecordGetErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, record)
}

// ListLotteryRecords 查询当前用户抽奖记录
func (h *Handler) ListLotteryRecords(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := getPagination(c)

	records, total, err := h.LotteryService.ListRecords(repository.LotteryRecordListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, records, response.NewPagination(page, pageSize, total))
}

// GetLotteryChances 查询剩余抽奖机会
func (h *Handler) GetLotteryChances(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	chances, err := h.LotteryService.AvailableChances(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	today, err := h.LotteryService.TodayDrawCount(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"available":  chances,
		"today_used": today,
	})
}

// GetRecentWins 最近中奖滚动榜，短缓存减轻热点读
func (h *Handler) GetRecentWins(c *gin.Context) {
	ctx := c.Request.Context()
	var wins []service.RecentWin
	if cache.Enabled() {
		if hit, err := cache.GetJSON(ctx, recentWinsCacheKey, &wins); err == nil && hit {
			response.Success(c, wins)
			return
		}
	}

	wins, err := h.LotteryService.RecentWins(recentWinsLimit)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if cache.Enabled() {
		if err := cache.SetJSON(ctx, recentWinsCacheKey, wins, recentWinsCacheTTL); err != nil {
			requestLog(c).Warnw("recent_wins_cache_set_failed", "error", err)
		}
	}
	response.Success(c, wins)
}
