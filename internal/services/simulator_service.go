package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aiwuxian/resonance-wiki/internal/catalog"
	"github.com/aiwuxian/resonance-wiki/internal/models"
)

var (
	ErrSessionNotFound  = errors.New("配装不存在")
	ErrWeaponNotFound   = errors.New("武器不存在")
	ErrWeaponMismatch   = errors.New("武器类型与共鸣者不匹配")
	ErrInvalidSlot      = errors.New("槽位不存在")
	ErrEchoNotFound     = errors.New("声骸不存在")
	ErrEchoCostMismatch = errors.New("声骸 cost 与槽位不符")
	ErrIllegalMainStat  = errors.New("该槽位不可选择此主词条")
	ErrInvalidLevel     = errors.New("等级超出范围")
)

const (
	MinSkillLevel = 1
	MaxSkillLevel = 10

	DefaultSessionTTL  = 2 * time.Hour
	DefaultMaxSessions = 1000
)

// DefaultSlotCosts 新配装的五个声骸槽位
var DefaultSlotCosts = []int{4, 3, 3, 1, 1}

// BuildUpdate 配装的部分更新，nil 字段保持不变
type BuildUpdate struct {
	ResonatorID    *string             `json:"resonatorId"`
	CharacterLevel *int                `json:"characterLevel"`
	WeaponID       *string             `json:"weaponId"`
	WeaponLevel    *int                `json:"weaponLevel"`
	Skills         *models.SkillLevels `json:"skills"`
	SetID          *string             `json:"setId"`
}

// EvaluateRequest 无状态计算请求
type EvaluateRequest struct {
	ResonatorID    string             `json:"resonatorId" binding:"required"`
	CharacterLevel int                `json:"characterLevel"`
	WeaponID       string             `json:"weaponId"`
	WeaponLevel    int                `json:"weaponLevel"`
	Skills         models.SkillLevels `json:"skills"`
	SetID          string             `json:"setId"`
	Slots          []models.EchoSlot  `json:"slots"`
}

// BuildResult 配装的计算结果
type BuildResult struct {
	Build      *models.Build        `json:"build,omitempty"`
	Resonator  *models.Resonator    `json:"resonator"`
	Weapon     *models.Weapon       `json:"weapon,omitempty"`
	Stats      ResolvedStats        `json:"stats"`
	CritValue  models.CritBreakdown `json:"critValue"`
	Efficiency map[string]float64   `json:"efficiency"`
	ActiveSets []models.ActiveSet   `json:"activeSets"`
	Materials  models.MaterialNeeds `json:"materials"`
}

// SimulatorService 配装模拟器，配装只保存在内存中
type SimulatorService struct {
	catalog     *catalog.Catalog
	aggregator  Aggregator
	roller      *Roller
	ttl         time.Duration
	maxSessions int
	now         func() time.Time

	mu     sync.RWMutex
	builds map[string]*models.Build
}

func NewSimulatorService(cat *catalog.Catalog, aggregator Aggregator, roller *Roller,
	cfg models.SimulatorConfig) *SimulatorService {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &SimulatorService{
		catalog:     cat,
		aggregator:  aggregator,
		roller:      roller,
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		builds:      make(map[string]*models.Build),
	}
}

// CreateBuild 为共鸣者创建新配装，默认选择第一把可用武器
func (ss *SimulatorService) CreateBuild(resonatorID string) (*models.Build, error) {
	r, ok := ss.catalog.Resonator(resonatorID)
	if !ok {
		return nil, ErrResonatorNotFound
	}

	now := ss.now()
	build := &models.Build{
		ID:             uuid.New().String(),
		ResonatorID:    r.ID,
		CharacterLevel: MinLevel,
		WeaponID:       ss.defaultWeapon(r),
		WeaponLevel:    MinLevel,
		Skills: models.SkillLevels{
			Basic:      MinSkillLevel,
			Skill:      MinSkillLevel,
			Liberation: MinSkillLevel,
			Intro:      MinSkillLevel,
		},
		Slots:     make([]models.EchoSlot, 0, len(DefaultSlotCosts)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, cost := range DefaultSlotCosts {
		build.Slots = append(build.Slots, models.NewEchoSlot(cost))
	}

	ss.mu.Lock()
	if len(ss.builds) >= ss.maxSessions {
		ss.sweepLocked(now)
	}
	if len(ss.builds) >= ss.maxSessions {
		ss.evictOldestLocked()
	}
	ss.builds[build.ID] = build
	ss.mu.Unlock()

	moduleLog("simulator").Info().
		Str("build", build.ID).
		Str("resonator", r.ID).
		Msg("创建配装")

	return cloneBuild(build), nil
}

// GetBuild 获取配装副本
func (ss *SimulatorService) GetBuild(id string) (*models.Build, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	build, ok := ss.builds[id]
	if !ok || ss.expired(build, ss.now()) {
		return nil, ErrSessionNotFound
	}
	return cloneBuild(build), nil
}

// ListBuilds 未过期的配装，按创建时间排列
func (ss *SimulatorService) ListBuilds() []*models.Build {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	now := ss.now()
	builds := make([]*models.Build, 0, len(ss.builds))
	for _, build := range ss.builds {
		if !ss.expired(build, now) {
			builds = append(builds, cloneBuild(build))
		}
	}
	sort.Slice(builds, func(i, j int) bool {
		return builds[i].CreatedAt.Before(builds[j].CreatedAt)
	})
	return builds
}

// DeleteBuild 删除配装
func (ss *SimulatorService) DeleteBuild(id string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, ok := ss.builds[id]; !ok {
		return ErrSessionNotFound
	}
	delete(ss.builds, id)
	return nil
}

// UpdateBuild 修改等级、武器、技能或套装
func (ss *SimulatorService) UpdateBuild(id string, update BuildUpdate) (*models.Build, error) {
	return ss.mutate(id, func(build *models.Build) error {
		if update.CharacterLevel != nil && !validLevel(*update.CharacterLevel) {
			return fmt.Errorf("%w: 角色等级 %d", ErrInvalidLevel, *update.CharacterLevel)
		}
		if update.WeaponLevel != nil && !validLevel(*update.WeaponLevel) {
			return fmt.Errorf("%w: 武器等级 %d", ErrInvalidLevel, *update.WeaponLevel)
		}
		if update.Skills != nil {
			if err := validateSkills(*update.Skills); err != nil {
				return err
			}
		}
		if update.SetID != nil && *update.SetID != "" {
			if _, ok := ss.catalog.EchoSet(*update.SetID); !ok {
				return ErrEchoSetNotFound
			}
		}

		resonator, ok := ss.catalog.Resonator(build.ResonatorID)
		if update.ResonatorID != nil && *update.ResonatorID != build.ResonatorID {
			if resonator, ok = ss.catalog.Resonator(*update.ResonatorID); !ok {
				return ErrResonatorNotFound
			}
		}
		if !ok {
			return ErrResonatorNotFound
		}

		weaponID := build.WeaponID
		if update.WeaponID != nil {
			weaponID = *update.WeaponID
		}
		if weaponID != "" {
			w, ok := ss.catalog.Weapon(weaponID)
			if !ok {
				return ErrWeaponNotFound
			}
			if w.Type != resonator.Weapon {
				// 换角色时旧武器不再适用，改用默认武器
				if update.WeaponID != nil {
					return ErrWeaponMismatch
				}
				weaponID = ss.defaultWeapon(resonator)
			}
		}

		build.ResonatorID = resonator.ID
		build.WeaponID = weaponID
		if update.CharacterLevel != nil {
			build.CharacterLevel = *update.CharacterLevel
		}
		if update.WeaponLevel != nil {
			build.WeaponLevel = *update.WeaponLevel
		}
		if update.Skills != nil {
			build.Skills = *update.Skills
		}
		if update.SetID != nil && *update.SetID != build.SetID {
			build.SetID = *update.SetID
			ss.dropIllegalMainStats(build)
		}
		return nil
	})
}

// AssignEcho 在槽位装上声骸，echoID 为空表示卸下；主词条和副词条会被清空
func (ss *SimulatorService) AssignEcho(id string, slot int, echoID string) (*models.Build, error) {
	return ss.mutate(id, func(build *models.Build) error {
		s, err := slotAt(build, slot)
		if err != nil {
			return err
		}
		if echoID != "" {
			e, ok := ss.catalog.Echo(echoID)
			if !ok {
				return ErrEchoNotFound
			}
			if e.Cost != s.Cost {
				return fmt.Errorf("%w: 声骸 %d, 槽位 %d", ErrEchoCostMismatch, e.Cost, s.Cost)
			}
		}
		*s = models.NewEchoSlot(s.Cost)
		s.EchoID = echoID
		return nil
	})
}

// AssignMainStat 选择主词条并按区间投掷数值
func (ss *SimulatorService) AssignMainStat(id string, slot int, stat string) (*models.Build, error) {
	return ss.mutate(id, func(build *models.Build) error {
		s, err := slotAt(build, slot)
		if err != nil {
			return err
		}
		if !contains(ss.mainStatOptions(build, s), stat) {
			return fmt.Errorf("%w: %s", ErrIllegalMainStat, stat)
		}

		value, ok := ss.roller.RollMainStat(s.Cost, stat, ss.catalog.MainStatRanges())
		if !ok {
			return fmt.Errorf("%w: %s 没有数值区间", ErrIllegalMainStat, stat)
		}
		s.MainStat = stat
		s.MainStatValue = value
		return nil
	})
}

// MainStatOptions 槽位可选主词条
func (ss *SimulatorService) MainStatOptions(id string, slot int) ([]string, error) {
	build, err := ss.GetBuild(id)
	if err != nil {
		return nil, err
	}
	s, err := slotAt(build, slot)
	if err != nil {
		return nil, err
	}
	return ss.mainStatOptions(build, s), nil
}

// RollSubStats 重新投掷一个槽位的四条副词条
func (ss *SimulatorService) RollSubStats(id string, slot int) (*models.Build, error) {
	return ss.mutate(id, func(build *models.Build) error {
		s, err := slotAt(build, slot)
		if err != nil {
			return err
		}
		ss.rollSlot(s)
		return nil
	})
}

// RollAll 重新投掷所有槽位的副词条
func (ss *SimulatorService) RollAll(id string) (*models.Build, error) {
	return ss.mutate(id, func(build *models.Build) error {
		for i := range build.Slots {
			ss.rollSlot(&build.Slots[i])
		}
		return nil
	})
}

// EvaluateBuild 计算会话中配装的属性
func (ss *SimulatorService) EvaluateBuild(id string) (*BuildResult, error) {
	build, err := ss.GetBuild(id)
	if err != nil {
		return nil, err
	}
	result, err := ss.Evaluate(build)
	if err != nil {
		return nil, err
	}
	result.Build = build
	return result, nil
}

// EvaluateStateless 无状态计算，槽位数值由调用方提供
func (ss *SimulatorService) EvaluateStateless(req EvaluateRequest) (*BuildResult, error) {
	build := &models.Build{
		ResonatorID:    req.ResonatorID,
		CharacterLevel: req.CharacterLevel,
		WeaponID:       req.WeaponID,
		WeaponLevel:    req.WeaponLevel,
		Skills:         req.Skills,
		SetID:          req.SetID,
		Slots:          req.Slots,
	}
	if build.CharacterLevel == 0 {
		build.CharacterLevel = MinLevel
	}
	if build.WeaponLevel == 0 {
		build.WeaponLevel = MinLevel
	}
	if !validLevel(build.CharacterLevel) || !validLevel(build.WeaponLevel) {
		return nil, ErrInvalidLevel
	}
	build.Skills = defaultSkills(build.Skills)
	if err := validateSkills(build.Skills); err != nil {
		return nil, err
	}
	if req.SetID != "" {
		if _, ok := ss.catalog.EchoSet(req.SetID); !ok {
			return nil, ErrEchoSetNotFound
		}
	}
	if err := ss.validateSlots(build.Slots); err != nil {
		return nil, err
	}
	return ss.Evaluate(build)
}

// Evaluate 计算属性、双暴评分、套装效果和养成材料
func (ss *SimulatorService) Evaluate(build *models.Build) (*BuildResult, error) {
	resonator, ok := ss.catalog.Resonator(build.ResonatorID)
	if !ok {
		return nil, ErrResonatorNotFound
	}

	var weapon *models.Weapon
	if build.WeaponID != "" {
		w, ok := ss.catalog.Weapon(build.WeaponID)
		if !ok {
			return nil, ErrWeaponNotFound
		}
		if w.Type != resonator.Weapon {
			return nil, ErrWeaponMismatch
		}
		weapon = w
	}

	stats, err := ss.aggregator.Resolve(BuildInput{
		Resonator:      resonator,
		CharacterLevel: build.CharacterLevel,
		Weapon:         weapon,
		WeaponLevel:    build.WeaponLevel,
		Slots:          build.Slots,
	})
	if err != nil {
		return nil, fmt.Errorf("计算属性失败: %w", err)
	}

	return &BuildResult{
		Resonator:  resonator,
		Weapon:     weapon,
		Stats:      stats,
		CritValue:  CritValueBreakdown(stats),
		Efficiency: Efficiency(stats),
		ActiveSets: ActiveSets(ss.catalog, build.Slots, build.SetID),
		Materials:  EstimateMaterials(build.CharacterLevel, build.WeaponLevel, build.Skills),
	}, nil
}

// Sweep 清理过期配装，返回清理数量
func (ss *SimulatorService) Sweep() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.sweepLocked(ss.now())
}

// Count 当前配装数量
func (ss *SimulatorService) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.builds)
}

func (ss *SimulatorService) mutate(id string, fn func(*models.Build) error) (*models.Build, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.now()
	build, ok := ss.builds[id]
	if !ok || ss.expired(build, now) {
		return nil, ErrSessionNotFound
	}

	// 在副本上修改，失败时不影响原配装
	working := cloneBuild(build)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = now
	ss.builds[id] = working
	return cloneBuild(working), nil
}

func (ss *SimulatorService) expired(build *models.Build, now time.Time) bool {
	return now.Sub(build.UpdatedAt) > ss.ttl
}

func (ss *SimulatorService) sweepLocked(now time.Time) int {
	removed := 0
	for id, build := range ss.builds {
		if ss.expired(build, now) {
			delete(ss.builds, id)
			removed++
		}
	}
	if removed > 0 {
		moduleLog("simulator").Debug().Int("removed", removed).Msg("清理过期配装")
	}
	return removed
}

func (ss *SimulatorService) evictOldestLocked() {
	var oldest *models.Build
	for _, build := range ss.builds {
		if oldest == nil || build.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = build
		}
	}
	if oldest != nil {
		delete(ss.builds, oldest.ID)
		moduleLog("simulator").Warn().Str("build", oldest.ID).Msg("配装数量已达上限，移除最久未使用的配装")
	}
}

func (ss *SimulatorService) defaultWeapon(r *models.Resonator) string {
	weapons := ss.catalog.WeaponsOfType(r.Weapon)
	if len(weapons) == 0 {
		return ""
	}
	return weapons[0].ID
}

// mainStatOptions 槽位可选主词条
// 装了声骸时取声骸主词条与该 cost 区间表的交集，否则按套装或区间表
func (ss *SimulatorService) mainStatOptions(build *models.Build, s *models.EchoSlot) []string {
	if s.EchoID != "" {
		e, ok := ss.catalog.Echo(s.EchoID)
		if !ok {
			return []string{}
		}
		ranges := ss.catalog.MainStatRanges()[s.Cost]
		out := make([]string, 0, len(e.MainStats))
		for _, name := range e.MainStats {
			if _, ok := ranges[name]; ok {
				out = append(out, name)
			}
		}
		return out
	}
	return ss.catalog.MainStatOptions(s.Cost, build.SetID)
}

// subStatPool 副词条候选：声骸的副词条列表，未装声骸时为全部副词条；不含主词条
func (ss *SimulatorService) subStatPool(s *models.EchoSlot) []string {
	var names []string
	if e, ok := ss.catalog.Echo(s.EchoID); ok && s.EchoID != "" {
		names = e.SubStats
	} else {
		names = ss.catalog.SubStatNames()
	}

	pool := make([]string, 0, len(names))
	for _, name := range names {
		if name != s.MainStat {
			pool = append(pool, name)
		}
	}
	return pool
}

func (ss *SimulatorService) rollSlot(s *models.EchoSlot) {
	s.SubStats = ss.roller.RollSubStats(ss.subStatPool(s), ss.catalog.SubStatRanges(), SubStatsPerEcho)
}

func (ss *SimulatorService) dropIllegalMainStats(build *models.Build) {
	for i := range build.Slots {
		s := &build.Slots[i]
		if s.MainStat == "" || s.EchoID != "" {
			continue
		}
		if !contains(ss.catalog.MainStatOptions(s.Cost, build.SetID), s.MainStat) {
			s.MainStat = ""
			s.MainStatValue = 0
		}
	}
}

func slotAt(build *models.Build, slot int) (*models.EchoSlot, error) {
	if slot < 0 || slot >= len(build.Slots) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return &build.Slots[slot], nil
}

// validateSlots 调用方提供的槽位：数量、cost、声骸、主词条和副词条条数
func (ss *SimulatorService) validateSlots(slots []models.EchoSlot) error {
	if len(slots) > len(DefaultSlotCosts) {
		return fmt.Errorf("%w: 最多 %d 个槽位", ErrInvalidSlot, len(DefaultSlotCosts))
	}
	ranges := ss.catalog.MainStatRanges()
	for i, s := range slots {
		costRanges, ok := ranges[s.Cost]
		if !ok {
			return fmt.Errorf("%w: 槽位 %d cost %d", ErrInvalidSlot, i, s.Cost)
		}
		if len(s.SubStats) > SubStatsPerEcho {
			return fmt.Errorf("%w: 槽位 %d 副词条超过 %d 条", ErrInvalidSlot, i, SubStatsPerEcho)
		}
		if s.EchoID != "" {
			e, ok := ss.catalog.Echo(s.EchoID)
			if !ok {
				return ErrEchoNotFound
			}
			if e.Cost != s.Cost {
				return fmt.Errorf("%w: 声骸 %d, 槽位 %d", ErrEchoCostMismatch, e.Cost, s.Cost)
			}
		}
		if s.MainStat != "" {
			if _, ok := costRanges[s.MainStat]; !ok {
				return fmt.Errorf("%w: 槽位 %d %s", ErrIllegalMainStat, i, s.MainStat)
			}
		}
	}
	return nil
}

// defaultSkills 未填写的技能等级按 1 级处理
func defaultSkills(s models.SkillLevels) models.SkillLevels {
	for _, lv := range []*int{&s.Basic, &s.Skill, &s.Liberation, &s.Intro} {
		if *lv == 0 {
			*lv = MinSkillLevel
		}
	}
	return s
}

func validLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

func validateSkills(s models.SkillLevels) error {
	for _, lv := range []int{s.Basic, s.Skill, s.Liberation, s.Intro} {
		if lv < MinSkillLevel || lv > MaxSkillLevel {
			return fmt.Errorf("%w: 技能等级 %d", ErrInvalidLevel, lv)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneBuild(b *models.Build) *models.Build {
	out := *b
	out.Slots = make([]models.EchoSlot, len(b.Slots))
	for i, s := range b.Slots {
		s.SubStats = append([]models.SubStat{}, s.SubStats...)
		out.Slots[i] = s
	}
	return &out
}
