package services

import "math"

// efficiencyCaps 各属性的满值，未列出的属性不计算效率
var efficiencyCaps = map[StatKind]float64{
	StatCritRate:       100,
	StatCritDMG:        300,
	StatEnergyRegen:    200,
	StatElementalDMG:   100,
	StatBasicAttackDMG: 100,
	StatHeavyAttackDMG: 100,
	StatSkillDMG:       100,
	StatLiberationDMG:  100,
}

// StatEfficiency 属性达成度（0-100）
func StatEfficiency(k StatKind, value float64) float64 {
	max, ok := efficiencyCaps[k]
	if !ok {
		return 0
	}
	return math.Min(value/max*100, 100)
}

// Efficiency 以 JSON 字段名为键返回所有可计算属性的达成度，保留一位小数
func Efficiency(stats ResolvedStats) map[string]float64 {
	out := make(map[string]float64, len(efficiencyCaps))
	for k := range efficiencyCaps {
		out[k.Key()] = roundTenth(StatEfficiency(k, stats.Get(k)))
	}
	return out
}
