package services

import (
	"github.com/bytedance/sonic"
)

// StatKind 属性种类
type StatKind uint8

const (
	StatHP StatKind = iota
	StatATK
	StatDEF
	StatCritRate
	StatCritDMG
	StatATKPercent
	StatHPPercent
	StatDEFPercent
	StatElementalDMG
	StatEnergyRegen
	StatHealingBonus
	StatBasicAttackDMG
	StatHeavyAttackDMG
	StatSkillDMG
	StatLiberationDMG

	StatCount
)

type statInfo struct {
	name    string // 游戏内名称，也是数据表里的写法
	key     string // JSON 字段名
	percent bool   // 百分比属性，输出保留一位小数
	integer bool   // 副词条按整数投掷
}

var statTable = [StatCount]statInfo{
	StatHP:             {name: "HP", key: "hp", integer: true},
	StatATK:            {name: "ATK", key: "attack", integer: true},
	StatDEF:            {name: "DEF", key: "defense", integer: true},
	StatCritRate:       {name: "Crit Rate", key: "critRate", percent: true},
	StatCritDMG:        {name: "Crit DMG", key: "critDMG", percent: true},
	StatATKPercent:     {name: "ATK%", key: "atkPercent", percent: true},
	StatHPPercent:      {name: "HP%", key: "hpPercent", percent: true},
	StatDEFPercent:     {name: "DEF%", key: "defPercent", percent: true},
	StatElementalDMG:   {name: "Elemental DMG%", key: "elementalDMG", percent: true},
	StatEnergyRegen:    {name: "Energy Regen", key: "energyRegen", percent: true},
	StatHealingBonus:   {name: "Healing Bonus%", key: "healingBonus", percent: true},
	StatBasicAttackDMG: {name: "Basic Attack DMG%", key: "basicAttackDMG", percent: true},
	StatHeavyAttackDMG: {name: "Heavy Attack DMG%", key: "heavyAttackDMG", percent: true},
	StatSkillDMG:       {name: "Resonance Skill DMG%", key: "resonanceSkillDMG", percent: true},
	StatLiberationDMG:  {name: "Resonance Liberation DMG%", key: "resonanceLiberationDMG", percent: true},
}

var (
	statsByName = make(map[string]StatKind, StatCount)
	statsByKey  = make(map[string]StatKind, StatCount)
)

func init() {
	for k := StatKind(0); k < StatCount; k++ {
		statsByName[statTable[k].name] = k
		statsByKey[statTable[k].key] = k
	}
}

func (k StatKind) String() string {
	if k >= StatCount {
		return "Unknown"
	}
	return statTable[k].name
}

// Key JSON 字段名
func (k StatKind) Key() string {
	if k >= StatCount {
		return ""
	}
	return statTable[k].key
}

// IsPercent 是否为百分比属性
func (k StatKind) IsPercent() bool {
	return k < StatCount && statTable[k].percent
}

// RollsAsInteger 副词条投掷时是否取整（ATK / HP / DEF）
func (k StatKind) RollsAsInteger() bool {
	return k < StatCount && statTable[k].integer
}

// ParseStatKind 按游戏内名称精确匹配
func ParseStatKind(name string) (StatKind, bool) {
	k, ok := statsByName[name]
	return k, ok
}

// parsePassiveKey 武器被动属性表的键，同时接受 JSON 字段名（atkPercent、energyRegen）
func parsePassiveKey(key string) (StatKind, bool) {
	if k, ok := statsByName[key]; ok {
		return k, true
	}
	k, ok := statsByKey[key]
	return k, ok
}

// kindSet 某个来源允许写入的属性集合
type kindSet [StatCount]bool

func newKindSet(kinds ...StatKind) kindSet {
	var s kindSet
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

func (s kindSet) has(k StatKind) bool {
	return k < StatCount && s[k]
}

var (
	weaponSubStatKinds = newKindSet(StatCritRate, StatCritDMG, StatATKPercent, StatEnergyRegen)
	weaponPassiveKinds = newKindSet(StatATKPercent, StatEnergyRegen)
	echoMainStatKinds  = newKindSet(StatATKPercent, StatHPPercent, StatDEFPercent, StatCritRate,
		StatCritDMG, StatEnergyRegen, StatHealingBonus)
	echoSubStatKinds = newKindSet(StatATK, StatATKPercent, StatHP, StatHPPercent, StatDEF,
		StatDEFPercent, StatCritRate, StatCritDMG, StatEnergyRegen, StatBasicAttackDMG,
		StatHeavyAttackDMG, StatSkillDMG, StatLiberationDMG)
)

// ResolvedStats 聚合后的最终属性
type ResolvedStats struct {
	values [StatCount]float64
}

// Get 读取某项属性
func (r ResolvedStats) Get(k StatKind) float64 {
	if k >= StatCount {
		return 0
	}
	return r.values[k]
}

func (r *ResolvedStats) set(k StatKind, v float64) {
	r.values[k] = v
}

func (r *ResolvedStats) add(k StatKind, v float64) {
	r.values[k] += v
}

// Map 以 JSON 字段名为键导出
func (r ResolvedStats) Map() map[string]float64 {
	out := make(map[string]float64, StatCount)
	for k := StatKind(0); k < StatCount; k++ {
		out[statTable[k].key] = r.values[k]
	}
	return out
}

func (r ResolvedStats) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(r.Map())
}

func (r *ResolvedStats) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := sonic.Unmarshal(b, &m); err != nil {
		return err
	}
	*r = ResolvedStats{}
	for key, v := range m {
		if k, ok := statsByKey[key]; ok {
			r.values[k] = v
		}
	}
	return nil
}
