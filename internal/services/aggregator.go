package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aiwuxian/resonance-wiki/internal/models"
)

const (
	DefaultCritRate    = 5.0
	DefaultCritDMG     = 150.0
	DefaultEnergyRegen = 100.0

	MinLevel = 1
	MaxLevel = 90

	elementalDMGSuffix = "DMG%"
)

// ErrUnknownStat 严格模式下遇到无法识别的属性名
var ErrUnknownStat = errors.New("无法识别的属性")

// StatDefaults 聚合器的初始值
type StatDefaults struct {
	CritRate    float64
	CritDMG     float64
	EnergyRegen float64
}

// DefaultStatDefaults 暴击 5%、暴伤 150%、共鸣效率 100%
func DefaultStatDefaults() StatDefaults {
	return StatDefaults{
		CritRate:    DefaultCritRate,
		CritDMG:     DefaultCritDMG,
		EnergyRegen: DefaultEnergyRegen,
	}
}

// BuildInput 一次属性计算的全部输入
type BuildInput struct {
	Resonator      *models.Resonator
	CharacterLevel int
	Weapon         *models.Weapon
	WeaponLevel    int
	Slots          []models.EchoSlot
}

// Aggregator 属性聚合器
// 宽松模式下无法识别的属性名直接丢弃；Strict 为 true 时返回 ErrUnknownStat
type Aggregator struct {
	Defaults StatDefaults
	Strict   bool
}

// NewAggregator 创建聚合器
func NewAggregator(defaults StatDefaults, strict bool) Aggregator {
	return Aggregator{Defaults: defaults, Strict: strict}
}

// LevelMultiplier 角色等级倍率 1 + 0.1*(level-1)
func LevelMultiplier(level int) float64 {
	return 1 + float64(clampLevel(level)-1)*0.1
}

// WeaponLevelMultiplier 武器等级倍率 1 + 0.05*(level-1)
func WeaponLevelMultiplier(level int) float64 {
	return 1 + float64(clampLevel(level)-1)*0.05
}

func clampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// roundTenth 四舍五入到一位小数（.5 向上）
func roundTenth(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

// Resolve 汇总角色、武器与声骸的属性
// 百分比加成（ATK% / HP% / DEF%）在所有加法累计完成之后才折算进对应的固定值
func (a Aggregator) Resolve(in BuildInput) (ResolvedStats, error) {
	var out ResolvedStats
	var unknown []string

	out.set(StatCritRate, a.Defaults.CritRate)
	out.set(StatCritDMG, a.Defaults.CritDMG)
	out.set(StatEnergyRegen, a.Defaults.EnergyRegen)

	element := ""
	if r := in.Resonator; r != nil {
		element = r.Element
		mult := LevelMultiplier(in.CharacterLevel)
		out.set(StatHP, math.Floor(r.BaseStats.HP*mult))
		out.set(StatATK, math.Floor(r.BaseStats.Attack*mult))
		out.set(StatDEF, math.Floor(r.BaseStats.Defense*mult))
		if r.BaseStats.CritRate != nil {
			out.set(StatCritRate, *r.BaseStats.CritRate)
		}
		if r.BaseStats.CritDMG != nil {
			out.set(StatCritDMG, *r.BaseStats.CritDMG)
		}
	}

	if w := in.Weapon; w != nil {
		out.add(StatATK, math.Floor(w.BaseAttack*WeaponLevelMultiplier(in.WeaponLevel)))

		if w.SubStat != "" {
			k, ok := ParseStatKind(w.SubStat)
			switch {
			case !ok:
				unknown = append(unknown, w.SubStat)
			case weaponSubStatKinds.has(k):
				out.add(k, w.SubStatValue)
			}
		}

		// 按键排序，保证浮点累加顺序固定
		keys := make([]string, 0, len(w.PassiveStats))
		for key := range w.PassiveStats {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			k, ok := parsePassiveKey(key)
			switch {
			case !ok:
				unknown = append(unknown, key)
			case weaponPassiveKinds.has(k):
				out.add(k, w.PassiveStats[key])
			}
		}
	}

	for _, slot := range in.Slots {
		if slot.MainStat != "" && slot.MainStatValue != 0 {
			if k, ok := ParseStatKind(slot.MainStat); ok && echoMainStatKinds.has(k) {
				out.add(k, slot.MainStatValue)
			} else if strings.Contains(slot.MainStat, elementalDMGSuffix) {
				// 属性伤害主词条只在名称包含角色元素时生效，没有角色时不计入
				if element != "" && strings.Contains(slot.MainStat, element) {
					out.add(StatElementalDMG, slot.MainStatValue)
				}
			} else if !ok {
				unknown = append(unknown, slot.MainStat)
			}
		}

		for _, sub := range slot.SubStats {
			k, ok := ParseStatKind(sub.Stat)
			switch {
			case !ok:
				unknown = append(unknown, sub.Stat)
			case echoSubStatKinds.has(k):
				out.add(k, sub.Value)
			}
		}
	}

	out.set(StatHP, math.Floor(out.Get(StatHP)*(1+out.Get(StatHPPercent)/100)))
	out.set(StatATK, math.Floor(out.Get(StatATK)*(1+out.Get(StatATKPercent)/100)))
	out.set(StatDEF, math.Floor(out.Get(StatDEF)*(1+out.Get(StatDEFPercent)/100)))

	for k := StatKind(0); k < StatCount; k++ {
		if k.IsPercent() {
			out.set(k, roundTenth(out.Get(k)))
		}
	}

	if a.Strict && len(unknown) > 0 {
		return out, fmt.Errorf("%w: %s", ErrUnknownStat, strings.Join(unknown, ", "))
	}
	return out, nil
}
