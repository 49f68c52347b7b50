package services

import "github.com/aiwuxian/resonance-wiki/internal/models"

// CritValue 双暴评分：暴击率*2 + 暴击伤害，保留一位小数
func CritValue(stats ResolvedStats) float64 {
	return CritValueBreakdown(stats).Total
}

// CritValueBreakdown 双暴评分及其两部分
// 暴击率或暴伤为 0 时按默认值 5 / 150 计算
func CritValueBreakdown(stats ResolvedStats) models.CritBreakdown {
	cr := stats.Get(StatCritRate)
	if cr == 0 {
		cr = DefaultCritRate
	}
	cd := stats.Get(StatCritDMG)
	if cd == 0 {
		cd = DefaultCritDMG
	}
	return models.CritBreakdown{
		CritRate: roundTenth(cr * 2),
		CritDMG:  roundTenth(cd),
		Total:    roundTenth(cr*2 + cd),
	}
}
