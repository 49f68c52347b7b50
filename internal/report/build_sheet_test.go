package report

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aiwuxian/resonance-wiki/internal/catalog"
	"github.com/aiwuxian/resonance-wiki/internal/models"
	"github.com/aiwuxian/resonance-wiki/internal/services"
)

func newSimulator(t *testing.T) *services.SimulatorService {
	t.Helper()
	data, err := catalog.Default()
	require.NoError(t, err)
	cat, err := catalog.New(data)
	require.NoError(t, err)
	return services.NewSimulatorService(cat, services.NewAggregator(services.DefaultStatDefaults(), false),
		services.NewRoller(3), models.SimulatorConfig{})
}

func raw() excelize.Options { return excelize.Options{RawCellValue: true} }

func TestWriteBuildSheet(t *testing.T) {
	ss := newSimulator(t)
	build, err := ss.CreateBuild("jiyan")
	require.NoError(t, err)

	level := 90
	_, err = ss.UpdateBuild(build.ID, services.BuildUpdate{CharacterLevel: &level, WeaponLevel: &level})
	require.NoError(t, err)
	_, err = ss.AssignEcho(build.ID, 0, "feilian-beringal")
	require.NoError(t, err)
	_, err = ss.AssignEcho(build.ID, 1, "chaserazor")
	require.NoError(t, err)
	_, err = ss.AssignMainStat(build.ID, 0, "Crit DMG")
	require.NoError(t, err)
	_, err = ss.RollAll(build.ID)
	require.NoError(t, err)

	result, err := ss.EvaluateBuild(build.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBuildSheet(&buf, result))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetStats, SheetEchoes, SheetMaterials}, f.GetSheetList())

	v, err := f.GetCellValue(SheetStats, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Jiyan", v)
	v, err = f.GetCellValue(SheetStats, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Verdant Summit", v)

	v, err = f.GetCellValue(SheetStats, "A6")
	require.NoError(t, err)
	assert.Equal(t, "HP", v)
	v, err = f.GetCellValue(SheetStats, "B6", raw())
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatFloat(result.Stats.Get(services.StatHP), 'f', -1, 64), v)
	v, err = f.GetCellValue(SheetStats, "A20")
	require.NoError(t, err)
	assert.Equal(t, "Resonance Liberation DMG%", v)

	v, err = f.GetCellValue(SheetEchoes, "C2")
	require.NoError(t, err)
	assert.Equal(t, "feilian-beringal", v)
	v, err = f.GetCellValue(SheetEchoes, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Crit DMG", v)
	v, err = f.GetCellValue(SheetEchoes, "I6")
	require.NoError(t, err)
	assert.NotEmpty(t, v)
	v, err = f.GetCellValue(SheetEchoes, "A8")
	require.NoError(t, err)
	assert.Equal(t, "Sierra Gale (2)", v)

	v, err = f.GetCellValue(SheetMaterials, "B2")
	require.NoError(t, err)
	assert.Equal(t, services.MaterialCharacterCore, v)
	v, err = f.GetCellValue(SheetMaterials, "C3", raw())
	require.NoError(t, err)
	assert.Equal(t, "90000", v)
}

func TestWriteBuildSheetNothingToFarm(t *testing.T) {
	ss := newSimulator(t)
	result, err := ss.EvaluateStateless(services.EvaluateRequest{ResonatorID: "chixia"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBuildSheet(&buf, result))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SheetMaterials, "A2")
	require.NoError(t, err)
	assert.Equal(t, "No materials needed at current levels", v)

	v, err = f.GetCellValue(SheetEchoes, "A2")
	require.NoError(t, err)
	assert.Empty(t, v)

	assert.Equal(t, "I", colName(9))
	assert.Equal(t, "AA", colName(27))
}

func TestCellWriterKeepsFirstError(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	w := &cellWriter{f: f, sheet: "Sheet1"}
	w.set("A0", "bad cell")
	require.Error(t, w.err)
	first := w.err

	w.set("A1", "after")
	w.style("A1", "A1", 0)
	assert.Equal(t, first, w.err)

	v, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Empty(t, v)

	missing := &cellWriter{f: f, sheet: "Missing"}
	missing.setf("A", 1, "x")
	assert.ErrorContains(t, missing.err, "Missing")
}
