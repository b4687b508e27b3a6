package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"qless-server/internal/core/cache"
	"qless-server/internal/domain"
)

var (
	checkinTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "qless_checkins_total", Help: "Successful check-ins"},
		[]string{"facility"},
	)
	checkoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "qless_checkouts_total", Help: "Successful check-outs"},
		[]string{"facility"},
	)
	resetTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "qless_queue_resets_total", Help: "Queue resets"},
		[]string{"facility"},
	)
)

func init() { prometheus.MustRegister(checkinTotal, checkoutTotal, resetTotal) }

const boardCacheKey = "qless:board"

// Tracker 签入状态机。每个用户只有两个状态：未签入 ⇄ 已签入某设施。
//
// 同一设施的计数变更在 per-facility 互斥锁 + 单事务内串行；
// 不同设施完全并行。跨设施的重复签入由 active_checkins.user_id
// 上的唯一索引兜底（见 domain.ActiveCheckin）。
type Tracker struct {
	db       *gorm.DB
	registry *Registry
	cache    *cache.Cache // 可为 nil（测试/无 redis 部署）
	boardTTL time.Duration

	locks sync.Map // facilityID -> *sync.Mutex
}

func NewTracker(db *gorm.DB, registry *Registry, c *cache.Cache, boardTTL time.Duration) *Tracker {
	if boardTTL <= 0 {
		boardTTL = 5 * time.Second
	}
	return &Tracker{db: db, registry: registry, cache: c, boardTTL: boardTTL}
}

func (t *Tracker) lockFor(facilityID string) *sync.Mutex {
	v, _ := t.locks.LoadOrStore(facilityID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (t *Tracker) invalidateBoard(ctx context.Context) {
	if t.cache != nil {
		t.cache.Invalidate(ctx, boardCacheKey)
	}
}

// Checkin 目标设施必须存在且未被软删除。已在本设施在场返回
// ErrAlreadyHere，已在别处在场返回 AlreadyElsewhereError。
// 成功时返回变更后的计数；容量不是上限。
func (t *Tracker) Checkin(ctx context.Context, facilityID, userID, userName string) (int, error) {
	f, err := t.registry.Get(facilityID)
	if err != nil {
		return 0, err
	}
	if !f.Active {
		return 0, ErrFacilityInactive
	}

	mu := t.lockFor(facilityID)
	mu.Lock()
	defer mu.Unlock()

	db := t.db.WithContext(ctx)

	// 反向索引：user_id 直接查在场记录，不扫全部设施
	if cur, err := t.activeOf(db, userID); err != nil {
		return 0, err
	} else if cur != nil {
		if cur.FacilityID == facilityID {
			return 0, ErrAlreadyHere
		}
		return 0, &AlreadyElsewhereError{Facility: t.registry.DisplayName(cur.FacilityID)}
	}

	now := time.Now()
	var newCount int
	err = db.Transaction(func(tx *gorm.DB) error {
		qs, err := loadOrInitState(tx, facilityID)
		if err != nil {
			return err
		}
		qs.Count++
		qs.LastUpdated = now
		if err := tx.Save(qs).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, facilityID, domain.ActionCheckin, qs.Count, now, userID, userName, ""); err != nil {
			return err
		}
		if err := tx.Create(&domain.ActiveCheckin{
			FacilityID: facilityID,
			UserID:     userID,
			UserName:   userName,
			CheckinAt:  now,
		}).Error; err != nil {
			return err
		}
		newCount = qs.Count
		return nil
	})
	if err != nil {
		// 唯一索引兜底：并发从另一设施抢先签入
		if isDupKey(err) {
			if cur, e := t.activeOf(db, userID); e == nil && cur != nil {
				if cur.FacilityID == facilityID {
					return 0, ErrAlreadyHere
				}
				return 0, &AlreadyElsewhereError{Facility: t.registry.DisplayName(cur.FacilityID)}
			}
			return 0, ErrAlreadyHere
		}
		return 0, fmt.Errorf("checkin: %w", err)
	}

	t.invalidateBoard(ctx)
	checkinTotal.WithLabelValues(facilityID).Inc()
	return newCount, nil
}

// Checkout 要求用户在场且设施匹配。计数为 0 时（账目异常）返回
// ErrQueueEmpty 而不是减成负数。
func (t *Tracker) Checkout(ctx context.Context, facilityID, userID string) (int, error) {
	mu := t.lockFor(facilityID)
	mu.Lock()
	defer mu.Unlock()

	db := t.db.WithContext(ctx)

	cur, err := t.activeOf(db, userID)
	if err != nil {
		return 0, err
	}
	if cur == nil {
		return 0, ErrNotCheckedIn
	}
	if cur.FacilityID != facilityID {
		return 0, &CheckedElsewhereError{Facility: t.registry.DisplayName(cur.FacilityID)}
	}

	now := time.Now()
	var newCount int
	err = db.Transaction(func(tx *gorm.DB) error {
		qs, err := loadOrInitState(tx, facilityID)
		if err != nil {
			return err
		}
		if qs.Count <= 0 {
			return ErrQueueEmpty
		}
		qs.Count--
		qs.LastUpdated = now
		if err := tx.Save(qs).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, facilityID, domain.ActionCheckout, qs.Count, now, userID, "", ""); err != nil {
			return err
		}
		if err := tx.Where("facility_id = ? AND user_id = ?", facilityID, userID).
			Delete(&domain.ActiveCheckin{}).Error; err != nil {
			return err
		}
		newCount = qs.Count
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQueueEmpty) {
			return 0, ErrQueueEmpty
		}
		return 0, fmt.Errorf("checkout: %w", err)
	}

	t.invalidateBoard(ctx)
	checkoutTotal.WithLabelValues(facilityID).Inc()
	return newCount, nil
}

// Reset 计数清零并清空在场记录；历史保留，另记一条 reset 流水
func (t *Tracker) Reset(ctx context.Context, facilityID, actorID string) error {
	if _, err := t.registry.Get(facilityID); err != nil {
		return err
	}

	mu := t.lockFor(facilityID)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now()
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qs, err := loadOrInitState(tx, facilityID)
		if err != nil {
			return err
		}
		qs.Count = 0
		qs.LastUpdated = now
		if err := tx.Save(qs).Error; err != nil {
			return err
		}
		if err := tx.Where("facility_id = ?", facilityID).
			Delete(&domain.ActiveCheckin{}).Error; err != nil {
			return err
		}
		return appendHistory(tx, facilityID, domain.ActionReset, 0, now, "", "", actorID)
	})
	if err != nil {
		return fmt.Errorf("reset queue: %w", err)
	}

	t.invalidateBoard(ctx)
	resetTotal.WithLabelValues(facilityID).Inc()
	return nil
}

// Status 没有记录时返回计数 0 的默认状态
func (t *Tracker) Status(ctx context.Context, facilityID string) (*domain.QueueState, error) {
	var qs domain.QueueState
	err := t.db.WithContext(ctx).First(&qs, "facility_id = ?", facilityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.QueueState{FacilityID: facilityID, Count: 0, LastUpdated: time.Now()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &qs, nil
}

// AllStatuses 全部设施的快照；有 redis 时走短 TTL 缓存 + singleflight
func (t *Tracker) AllStatuses(ctx context.Context) (map[string]domain.QueueState, error) {
	if t.cache == nil {
		return t.loadAllStatuses(ctx)
	}
	out, err := cache.GetOrLoadJSON[map[string]domain.QueueState](
		t.cache, ctx, boardCacheKey, t.boardTTL,
		func(ctx context.Context) (*map[string]domain.QueueState, error) {
			m, err := t.loadAllStatuses(ctx)
			if err != nil {
				return nil, err
			}
			return &m, nil
		})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return map[string]domain.QueueState{}, nil
	}
	return *out, nil
}

func (t *Tracker) loadAllStatuses(ctx context.Context) (map[string]domain.QueueState, error) {
	var states []domain.QueueState
	if err := t.db.WithContext(ctx).Find(&states).Error; err != nil {
		return nil, err
	}
	m := make(map[string]domain.QueueState, len(states))
	for _, s := range states {
		m[s.FacilityID] = s
	}
	return m, nil
}

func (t *Tracker) ActiveUsers(ctx context.Context, facilityID string) ([]domain.ActiveCheckin, error) {
	var out []domain.ActiveCheckin
	err := t.db.WithContext(ctx).
		Where("facility_id = ?", facilityID).
		Order("checkin_at asc").
		Find(&out).Error
	return out, err
}

// History 时间倒序，limit <= 0 时取默认 100
func (t *Tracker) History(ctx context.Context, facilityID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.HistoryEntry
	err := t.db.WithContext(ctx).
		Where("facility_id = ?", facilityID).
		Order("timestamp desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UserCurrentFacility 用户当前在场的设施 ID，未签入返回 ("", nil)
func (t *Tracker) UserCurrentFacility(ctx context.Context, userID string) (string, error) {
	cur, err := t.activeOf(t.db.WithContext(ctx), userID)
	if err != nil {
		return "", err
	}
	if cur == nil {
		return "", nil
	}
	return cur.FacilityID, nil
}

func (t *Tracker) activeOf(db *gorm.DB, userID string) (*domain.ActiveCheckin, error) {
	var ac domain.ActiveCheckin
	err := db.First(&ac, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

func loadOrInitState(tx *gorm.DB, facilityID string) (*domain.QueueState, error) {
	var qs domain.QueueState
	err := tx.First(&qs, "facility_id = ?", facilityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 老数据可能没有初始化过状态行，在这里补上
		qs = domain.QueueState{FacilityID: facilityID, LastUpdated: time.Now()}
		if err := tx.Create(&qs).Error; err != nil {
			return nil, err
		}
		return &qs, nil
	}
	if err != nil {
		return nil, err
	}
	return &qs, nil
}

func appendHistory(tx *gorm.DB, facilityID, action string, count int, ts time.Time, userID, userName, actorID string) error {
	return tx.Create(&domain.HistoryEntry{
		ID:         uuid.NewString(),
		FacilityID: facilityID,
		Action:     action,
		Count:      count,
		Timestamp:  ts,
		Hour:       ts.Hour(),
		Day:        ts.Weekday().String(),
		UserID:     userID,
		UserName:   userName,
		ActorID:    actorID,
	}).Error
}
