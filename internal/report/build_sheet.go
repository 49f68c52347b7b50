package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/aiwuxian/resonance-wiki/internal/models"
	"github.com/aiwuxian/resonance-wiki/internal/services"
)

const (
	SheetStats     = "Stats"
	SheetEchoes    = "Echoes"
	SheetMaterials = "Materials"

	statsHeaderRow = 5
)

// WriteBuildSheet 把配装计算结果写成 xlsx
func WriteBuildSheet(w io.Writer, result *services.BuildResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetStats); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetEchoes); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetMaterials); err != nil {
		return err
	}

	headerStyleID, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	pctFmt := `0.0"%"`
	pctStyleID, err := f.NewStyle(&excelize.Style{CustomNumFmt: &pctFmt})
	if err != nil {
		return err
	}

	if err := writeStats(f, result, headerStyleID, pctStyleID); err != nil {
		return fmt.Errorf("写入属性表失败: %w", err)
	}
	if err := writeEchoes(f, result, headerStyleID); err != nil {
		return fmt.Errorf("写入声骸表失败: %w", err)
	}
	if err := writeMaterials(f, result, headerStyleID); err != nil {
		return fmt.Errorf("写入材料表失败: %w", err)
	}

	if idx, err := f.GetSheetIndex(SheetStats); err == nil {
		f.SetActiveSheet(idx)
	}

	return f.Write(w)
}

// cellWriter 记录第一个写入错误，之后的写入直接跳过
type cellWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *cellWriter) set(cell string, value any) {
	if w.err == nil {
		w.err = w.f.SetCellValue(w.sheet, cell, value)
	}
}

func (w *cellWriter) setf(col string, row int, value any) {
	w.set(fmt.Sprintf("%s%d", col, row), value)
}

func (w *cellWriter) style(from, to string, styleID int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, from, to, styleID)
	}
}

func writeStats(f *excelize.File, result *services.BuildResult, headerStyleID, pctStyleID int) error {
	w := &cellWriter{f: f, sheet: SheetStats}

	weapon := "-"
	if result.Weapon != nil {
		weapon = result.Weapon.Name
	}
	w.set("A1", "Resonator")
	w.set("B1", result.Resonator.Name)
	w.set("A2", "Weapon")
	w.set("B2", weapon)
	w.set("A3", "Crit Value")
	w.set("B3", result.CritValue.Total)

	w.setf("A", statsHeaderRow, "Stat")
	w.setf("B", statsHeaderRow, "Value")
	w.setf("C", statsHeaderRow, "Efficiency")
	w.style(fmt.Sprintf("A%d", statsHeaderRow), fmt.Sprintf("C%d", statsHeaderRow), headerStyleID)

	row := statsHeaderRow
	for k := services.StatKind(0); k < services.StatCount; k++ {
		row++
		value := fmt.Sprintf("B%d", row)
		w.setf("A", row, k.String())
		w.set(value, result.Stats.Get(k))
		if k.IsPercent() {
			w.style(value, value, pctStyleID)
		}
		if eff, ok := result.Efficiency[k.Key()]; ok {
			cell := fmt.Sprintf("C%d", row)
			w.set(cell, eff)
			w.style(cell, cell, pctStyleID)
		}
	}
	if w.err != nil {
		return w.err
	}

	return f.SetColWidth(SheetStats, "A", "A", 28)
}

func writeEchoes(f *excelize.File, result *services.BuildResult, headerStyleID int) error {
	w := &cellWriter{f: f, sheet: SheetEchoes}

	headers := []string{"Slot", "Cost", "Echo", "Main Stat", "Value"}
	for i := 0; i < services.SubStatsPerEcho; i++ {
		headers = append(headers, fmt.Sprintf("Sub %d", i+1))
	}
	for i, h := range headers {
		w.setf(colName(i+1), 1, h)
	}
	w.style("A1", fmt.Sprintf("%s1", colName(len(headers))), headerStyleID)

	if result.Build == nil {
		return w.err
	}
	for i, slot := range result.Build.Slots {
		row := i + 2
		w.setf("A", row, i+1)
		w.setf("B", row, slot.Cost)
		w.setf("C", row, slot.EchoID)
		w.setf("D", row, slot.MainStat)
		if slot.MainStat != "" {
			w.setf("E", row, slot.MainStatValue)
		}
		for j, sub := range slot.SubStats {
			w.setf(colName(6+j), row, fmt.Sprintf("%s %g", sub.Stat, sub.Value))
		}
	}

	// 套装效果放在槽位下方
	row := len(result.Build.Slots) + 3
	for _, set := range result.ActiveSets {
		w.setf("A", row, fmt.Sprintf("%s (%d)", set.Name, set.Pieces))
		w.setf("C", row, set.TwoPiece)
		if set.FivePiece != "" {
			w.setf("D", row, set.FivePiece)
		}
		row++
	}
	return w.err
}

func writeMaterials(f *excelize.File, result *services.BuildResult, headerStyleID int) error {
	w := &cellWriter{f: f, sheet: SheetMaterials}

	w.set("A1", "Category")
	w.set("B1", "Material")
	w.set("C1", "Amount")
	w.style("A1", "C1", headerStyleID)

	m := result.Materials
	if m.Empty() {
		w.set("A2", "No materials needed at current levels")
		if w.err != nil {
			return w.err
		}
		return f.MergeCell(SheetMaterials, "A2", "C2")
	}

	row := 1
	groups := []struct {
		name string
		mats []models.MaterialRequirement
	}{
		{name: "Character", mats: m.CharacterMats},
		{name: "Weapon", mats: m.WeaponMats},
		{name: "Skill", mats: m.SkillMats},
	}
	for _, g := range groups {
		for _, mat := range g.mats {
			row++
			w.setf("A", row, g.name)
			w.setf("B", row, mat.Name)
			w.setf("C", row, mat.Amount)
		}
	}
	return w.err
}

// colName 1 -> A, 27 -> AA
func colName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}
