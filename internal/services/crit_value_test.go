package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func statsWith(values map[StatKind]float64) ResolvedStats {
	var s ResolvedStats
	for k, v := range values {
		s.set(k, v)
	}
	return s
}

func TestCritValue(t *testing.T) {
	tests := []struct {
		name string
		cr   float64
		cd   float64
		want float64
	}{
		{name: "defaults", cr: 5, cd: 150, want: 160},
		{name: "zero falls back to defaults", cr: 0, cd: 0, want: 160},
		{name: "built", cr: 62.3, cd: 224.8, want: 349.4},
		{name: "rounds to one decimal", cr: 10.05, cd: 150, want: 170.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := statsWith(map[StatKind]float64{StatCritRate: tt.cr, StatCritDMG: tt.cd})
			assert.InDelta(t, tt.want, CritValue(stats), 1e-9)
		})
	}
}

func TestCritValueBreakdown(t *testing.T) {
	b := CritValueBreakdown(statsWith(map[StatKind]float64{StatCritRate: 30, StatCritDMG: 180}))
	assert.Equal(t, 60.0, b.CritRate)
	assert.Equal(t, 180.0, b.CritDMG)
	assert.Equal(t, 240.0, b.Total)
}

func TestStatEfficiency(t *testing.T) {
	assert.Equal(t, 50.0, StatEfficiency(StatCritRate, 50))
	assert.Equal(t, 100.0, StatEfficiency(StatCritRate, 120))
	assert.Equal(t, 50.0, StatEfficiency(StatCritDMG, 150))
	assert.Equal(t, 50.0, StatEfficiency(StatEnergyRegen, 100))
	assert.Zero(t, StatEfficiency(StatATK, 2000))

	eff := Efficiency(statsWith(map[StatKind]float64{StatCritRate: 5, StatCritDMG: 150, StatEnergyRegen: 100}))
	assert.Len(t, eff, 8)
	assert.Equal(t, 5.0, eff["critRate"])
	assert.Equal(t, 50.0, eff["critDMG"])
	assert.Equal(t, 50.0, eff["energyRegen"])
	assert.Zero(t, eff["elementalDMG"])
	assert.NotContains(t, eff, "attack")
}
