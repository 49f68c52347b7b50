package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/resonance-wiki/internal/catalog"
	"github.com/aiwuxian/resonance-wiki/internal/models"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	data, err := catalog.Default()
	require.NoError(t, err)
	cat, err := catalog.New(data)
	require.NoError(t, err)
	return cat
}

func newTestSimulator(t *testing.T, cfg models.SimulatorConfig) *SimulatorService {
	t.Helper()
	return NewSimulatorService(testCatalog(t), NewAggregator(DefaultStatDefaults(), false), NewRoller(11), cfg)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestCreateBuild(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})

	build, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)
	assert.NotEmpty(t, build.ID)
	assert.Equal(t, "jiyan", build.ResonatorID)
	assert.Equal(t, "verdant-summit", build.WeaponID)
	assert.Equal(t, 1, build.CharacterLevel)
	assert.Equal(t, 1, build.WeaponLevel)
	assert.Equal(t, 4, build.Skills.Total())

	require.Len(t, build.Slots, 5)
	for i, cost := range []int{4, 3, 3, 1, 1} {
		assert.Equal(t, cost, build.Slots[i].Cost)
		assert.Empty(t, build.Slots[i].MainStat)
		assert.Empty(t, build.Slots[i].SubStats)
	}

	_, err = ss.CreateBuild("nobody")
	assert.ErrorIs(t, err, ErrResonatorNotFound)

	got, err := ss.GetBuild(build.ID)
	require.NoError(t, err)
	assert.Equal(t, build, got)

	_, err = ss.GetBuild("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetBuildReturnsCopy(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	build, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)

	build.Slots[0].MainStat = "Crit Rate"
	build.CharacterLevel = 90

	stored, err := ss.GetBuild(build.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Slots[0].MainStat)
	assert.Equal(t, 1, stored.CharacterLevel)
}

func TestUpdateBuild(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	build, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)

	updated, err := ss.UpdateBuild(build.ID, BuildUpdate{
		CharacterLevel: intPtr(90),
		WeaponID:       strPtr("lustrous-razor"),
		WeaponLevel:    intPtr(80),
		Skills:         &models.SkillLevels{Basic: 6, Skill: 8, Liberation: 10, Intro: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.CharacterLevel)
	assert.Equal(t, "lustrous-razor", updated.WeaponID)
	assert.Equal(t, 80, updated.WeaponLevel)
	assert.Equal(t, 28, updated.Skills.Total())

	_, err = ss.UpdateBuild(build.ID, BuildUpdate{WeaponID: strPtr("stringmaster")})
	assert.ErrorIs(t, err, ErrWeaponMismatch)
	_, err = ss.UpdateBuild(build.ID, BuildUpdate{WeaponID: strPtr("ghost-blade")})
	assert.ErrorIs(t, err, ErrWeaponNotFound)
	_, err = ss.UpdateBuild(build.ID, BuildUpdate{CharacterLevel: intPtr(91)})
	assert.ErrorIs(t, err, ErrInvalidLevel)
	_, err = ss.UpdateBuild(build.ID, BuildUpdate{WeaponLevel: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidLevel)
	_, err = ss.UpdateBuild(build.ID, BuildUpdate{Skills: &models.SkillLevels{Basic: 11, Skill: 1, Liberation: 1, Intro: 1}})
	assert.ErrorIs(t, err, ErrInvalidLevel)
	_, err = ss.UpdateBuild(build.ID, BuildUpdate{SetID: strPtr("no-such-set")})
	assert.ErrorIs(t, err, ErrEchoSetNotFound)

	// 失败的修改不影响已保存的配装
	stored, err := ss.GetBuild(build.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, stored.CharacterLevel)
	assert.Equal(t, "lustrous-razor", stored.WeaponID)
}

func TestUpdateBuildSwitchResonator(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	build, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)

	// 同为阔刀的角色保留武器
	updated, err := ss.UpdateBuild(build.ID, BuildUpdate{ResonatorID: strPtr("calcharo")})
	require.NoError(t, err)
	assert.Equal(t, "verdant-summit", updated.WeaponID)

	updated, err = ss.UpdateBuild(build.ID, BuildUpdate{ResonatorID: strPtr("yinlin")})
	require.NoError(t, err)
	assert.Equal(t, "yinlin", updated.ResonatorID)
	assert.Equal(t, "stringmaster", updated.WeaponID)

	_, err = ss.UpdateBuild(build.ID, BuildUpdate{ResonatorID: strPtr("nobody")})
	assert.ErrorIs(t, err, ErrResonatorNotFound)
}

func TestAssignEcho(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	build, err := ss.CreateBuild("calcharo")
	require.NoError(t, err)

	_, err = ss.AssignEcho(build.ID, 0, "spearback")
	assert.ErrorIs(t, err, ErrEchoCostMismatch)
	_, err = ss.AssignEcho(build.ID, 0, "nothing")
	assert.ErrorIs(t, err, ErrEchoNotFound)
	_, err = ss.AssignEcho(build.ID, 5, "tempest-mephis")
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = ss.AssignEcho(build.ID, -1, "tempest-mephis")
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = ss.AssignEcho(build.ID, 0, "tempest-mephis")
	require.NoError(t, err)
	_, err = ss.AssignMainStat(build.ID, 0, "Crit DMG")
	require.NoError(t, err)
	updated, err := ss.RollSubStats(build.ID, 0)
	require.NoError(t, err)
	require.Len(t, updated.Slots[0].SubStats, 4)

	// 更换声骸会清空词条
	updated, err = ss.AssignEcho(build.ID, 0, "thundering-mephis")
	require.NoError(t, err)
	assert.Equal(t, "thundering-mephis", updated.Slots[0].EchoID)
	assert.Empty(t, updated.Slots[0].MainStat)
	assert.Zero(t, updated.Slots[0].MainStatValue)
	assert.Empty(t, updated.Slots[0].SubStats)

	updated, err = ss.AssignEcho(build.ID, 0, "")
	require.NoError(t, err)
	assert.Empty(t, updated.Slots[0].EchoID)
}

func TestAssignMainStat(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	cat := testCatalog(t)
	build, err := ss.CreateBuild("calcharo")
	require.NoError(t, err)

	// 未装声骸、未选套装：该 cost 区间表内的全部主词条
	options, err := ss.MainStatOptions(build.ID, 1)
	require.NoError(t, err)
	assert.Contains(t, options, "Electro DMG%")
	assert.Contains(t, options, "Energy Regen")

	updated, err := ss.AssignMainStat(build.ID, 1, "Electro DMG%")
	require.NoError(t, err)
	r := cat.MainStatRanges()[3]["Electro DMG%"]
	assert.GreaterOrEqual(t, updated.Slots[1].MainStatValue, r.Min)
	assert.Less(t, updated.Slots[1].MainStatValue, r.Max)

	_, err = ss.AssignMainStat(build.ID, 3, "Crit Rate")
	assert.ErrorIs(t, err, ErrIllegalMainStat)

	// 装了声骸后只能选声骸自己的主词条
	_, err = ss.AssignEcho(build.ID, 0, "bell-borne-geochelone")
	require.NoError(t, err)
	options, err = ss.MainStatOptions(build.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Healing Bonus%", "ATK%", "HP%", "DEF%"}, options)
	_, err = ss.AssignMainStat(build.ID, 0, "Crit Rate")
	assert.ErrorIs(t, err, ErrIllegalMainStat)
	_, err = ss.AssignMainStat(build.ID, 0, "Healing Bonus%")
	assert.NoError(t, err)
}

func TestEchoSetFlow(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	build, err := ss.CreateBuild("calcharo")
	require.NoError(t, err)

	_, err = ss.AssignMainStat(build.ID, 0, "HP%")
	require.NoError(t, err)

	updated, err := ss.UpdateBuild(build.ID, BuildUpdate{SetID: strPtr("void-thunder")})
	require.NoError(t, err)
	assert.Equal(t, "void-thunder", updated.SetID)
	// 新套装不允许 HP%，主词条被清空
	assert.Empty(t, updated.Slots[0].MainStat)

	options, err := ss.MainStatOptions(build.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Electro DMG%", "ATK%", "Energy Regen"}, options)

	_, err = ss.AssignMainStat(build.ID, 0, "HP%")
	assert.ErrorIs(t, err, ErrIllegalMainStat)
	_, err = ss.AssignMainStat(build.ID, 0, "Crit Rate")
	require.NoError(t, err)

	result, err := ss.EvaluateBuild(build.ID)
	require.NoError(t, err)
	require.Len(t, result.ActiveSets, 1)
	assert.Equal(t, 5, result.ActiveSets[0].Pieces)
	assert.NotEmpty(t, result.ActiveSets[0].FivePiece)
	assert.Greater(t, result.Stats.Get(StatCritRate), 5.0)
}

func TestRollSubStatsExcludesMainStat(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	build, err := ss.CreateBuild("calcharo")
	require.NoError(t, err)

	_, err = ss.AssignEcho(build.ID, 0, "tempest-mephis")
	require.NoError(t, err)
	_, err = ss.AssignMainStat(build.ID, 0, "Crit Rate")
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		updated, err := ss.RollSubStats(build.ID, 0)
		require.NoError(t, err)
		subs := updated.Slots[0].SubStats
		require.Len(t, subs, 4)

		seen := make(map[string]bool)
		for _, s := range subs {
			assert.NotEqual(t, "Crit Rate", s.Stat)
			assert.False(t, seen[s.Stat])
			seen[s.Stat] = true
		}
	}

	_, err = ss.RollSubStats(build.ID, 9)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestRollAll(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	build, err := ss.CreateBuild("yinlin")
	require.NoError(t, err)

	// 只有 9 个副词条的声骸也能抽满 4 条
	_, err = ss.AssignEcho(build.ID, 1, "stonewall-bracer")
	require.NoError(t, err)

	updated, err := ss.RollAll(build.ID)
	require.NoError(t, err)
	for _, slot := range updated.Slots {
		assert.Len(t, slot.SubStats, 4)
	}
	assert.False(t, updated.UpdatedAt.IsZero())
}

func TestEvaluateBuild(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	build, err := ss.CreateBuild("calcharo")
	require.NoError(t, err)

	_, err = ss.UpdateBuild(build.ID, BuildUpdate{
		CharacterLevel: intPtr(21),
		WeaponLevel:    intPtr(40),
	})
	require.NoError(t, err)
	for slot, echo := range []string{"tempest-mephis", "spearback", "flautist"} {
		_, err = ss.AssignEcho(build.ID, slot, echo)
		require.NoError(t, err)
	}

	result, err := ss.EvaluateBuild(build.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Build)
	assert.Equal(t, "calcharo", result.Resonator.ID)
	require.NotNil(t, result.Weapon)
	assert.Equal(t, "verdant-summit", result.Weapon.ID)
	assert.Equal(t, 176.2, result.CritValue.Total)

	require.Len(t, result.ActiveSets, 1)
	assert.Equal(t, "void-thunder", result.ActiveSets[0].ID)
	assert.Equal(t, 3, result.ActiveSets[0].Pieces)
	assert.NotEmpty(t, result.ActiveSets[0].TwoPiece)
	assert.Empty(t, result.ActiveSets[0].FivePiece)

	assert.Equal(t, 5, result.Materials.CharacterMats[0].Amount)
	assert.Equal(t, 21000, result.Materials.CharacterMats[1].Amount)
	assert.Equal(t, 6, result.Materials.WeaponMats[0].Amount)
	assert.Empty(t, result.Materials.SkillMats)

	_, err = ss.EvaluateBuild("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEvaluateStateless(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})

	result, err := ss.EvaluateStateless(EvaluateRequest{
		ResonatorID: "yinlin",
		WeaponID:    "stringmaster",
		Skills:      models.SkillLevels{Basic: 1, Skill: 1, Liberation: 1, Intro: 1},
		Slots: []models.EchoSlot{
			{Cost: 4, MainStat: "Crit Rate", MainStatValue: 22, SubStats: []models.SubStat{{Stat: "Crit DMG", Value: 21}}},
			{Cost: 3, MainStat: "Electro DMG%", MainStatValue: 30},
		},
	})
	require.NoError(t, err)
	// 5 + 8（武器）+ 22
	assert.Equal(t, 35.0, result.Stats.Get(StatCritRate))
	assert.Equal(t, 171.0, result.Stats.Get(StatCritDMG))
	assert.Equal(t, 30.0, result.Stats.Get(StatElementalDMG))
	assert.Equal(t, 241.0, result.CritValue.Total)
	assert.True(t, result.Materials.Empty())
	assert.Nil(t, result.Build)

	_, err = ss.EvaluateStateless(EvaluateRequest{ResonatorID: "nobody"})
	assert.ErrorIs(t, err, ErrResonatorNotFound)
	_, err = ss.EvaluateStateless(EvaluateRequest{ResonatorID: "yinlin", WeaponID: "verdant-summit"})
	assert.ErrorIs(t, err, ErrWeaponMismatch)
	_, err = ss.EvaluateStateless(EvaluateRequest{ResonatorID: "yinlin", CharacterLevel: 100})
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestEvaluateStatelessRejectsBadSlots(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})

	fiveCrit := make([]models.SubStat, 5)
	for i := range fiveCrit {
		fiveCrit[i] = models.SubStat{Stat: "Crit Rate", Value: 10}
	}

	tests := []struct {
		name   string
		skills models.SkillLevels
		slots  []models.EchoSlot
		want   error
	}{
		{
			name:  "unknown cost",
			slots: []models.EchoSlot{{Cost: 7, MainStat: "Crit Rate", MainStatValue: 500}},
			want:  ErrInvalidSlot,
		},
		{
			name:  "too many sub-stats",
			slots: []models.EchoSlot{{Cost: 4, SubStats: fiveCrit}},
			want:  ErrInvalidSlot,
		},
		{
			name:  "too many slots",
			slots: []models.EchoSlot{{Cost: 4}, {Cost: 3}, {Cost: 3}, {Cost: 1}, {Cost: 1}, {Cost: 1}},
			want:  ErrInvalidSlot,
		},
		{
			name:  "main stat not available at cost",
			slots: []models.EchoSlot{{Cost: 1, MainStat: "Crit Rate", MainStatValue: 22}},
			want:  ErrIllegalMainStat,
		},
		{
			name:  "unknown echo",
			slots: []models.EchoSlot{{Cost: 4, EchoID: "nothing"}},
			want:  ErrEchoNotFound,
		},
		{
			name:  "echo cost differs from slot",
			slots: []models.EchoSlot{{Cost: 4, EchoID: "spearback"}},
			want:  ErrEchoCostMismatch,
		},
		{
			name:   "skill levels out of range",
			skills: models.SkillLevels{Basic: -50, Skill: 99, Liberation: 1, Intro: 1},
			want:   ErrInvalidLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ss.EvaluateStateless(EvaluateRequest{
				ResonatorID: "yinlin",
				Skills:      tt.skills,
				Slots:       tt.slots,
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvaluateStatelessDefaultsSkills(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})

	result, err := ss.EvaluateStateless(EvaluateRequest{
		ResonatorID: "yinlin",
		Skills:      models.SkillLevels{Basic: 10},
		Slots: []models.EchoSlot{{Cost: 4, EchoID: "tempest-mephis", MainStat: "Crit DMG", MainStatValue: 44,
			SubStats: []models.SubStat{{Stat: "Crit Rate", Value: 10}}}},
	})
	require.NoError(t, err)
	// 10 + 1 + 1 + 1
	require.Len(t, result.Materials.SkillMats, 1)
	assert.Equal(t, 26, result.Materials.SkillMats[0].Amount)
}

func TestEvaluateStrictMode(t *testing.T) {
	ss := NewSimulatorService(testCatalog(t), NewAggregator(DefaultStatDefaults(), true), NewRoller(1), models.SimulatorConfig{})

	_, err := ss.EvaluateStateless(EvaluateRequest{
		ResonatorID: "yinlin",
		Slots:       []models.EchoSlot{{Cost: 1, SubStats: []models.SubStat{{Stat: "Atk", Value: 40}}}},
	})
	assert.ErrorIs(t, err, ErrUnknownStat)
}

func TestSessionExpiry(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{SessionTTL: time.Hour})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ss.now = func() time.Time { return now }

	old, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	fresh, err := ss.CreateBuild("yinlin")
	require.NoError(t, err)
	assert.Len(t, ss.ListBuilds(), 2)

	now = now.Add(30 * time.Minute)
	_, err = ss.GetBuild(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = ss.RollAll(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	builds := ss.ListBuilds()
	require.Len(t, builds, 1)
	assert.Equal(t, fresh.ID, builds[0].ID)

	assert.Equal(t, 1, ss.Sweep())
	assert.Equal(t, 1, ss.Count())

	require.NoError(t, ss.DeleteBuild(fresh.ID))
	assert.ErrorIs(t, ss.DeleteBuild(fresh.ID), ErrSessionNotFound)
}

func TestMaxSessionsEvictsOldest(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{MaxSessions: 2})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ss.now = func() time.Time { return now }

	first, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)
	now = now.Add(time.Minute)
	second, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)
	now = now.Add(time.Minute)
	third, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)

	assert.Equal(t, 2, ss.Count())
	_, err = ss.GetBuild(first.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = ss.GetBuild(second.ID)
	assert.NoError(t, err)
	_, err = ss.GetBuild(third.ID)
	assert.NoError(t, err)
}

func TestSimulatorConcurrent(t *testing.T) {
	ss := newTestSimulator(t, models.SimulatorConfig{})
	build, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := ss.RollSubStats(build.ID, slot%5)
				assert.NoError(t, err)
				_, err = ss.EvaluateBuild(build.ID)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
}
