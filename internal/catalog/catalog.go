package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/aiwuxian/resonance-wiki/internal/models"
)

//go:embed data/catalog.yml
var defaultCatalog []byte

// validCosts 声骸 cost 只有 1、3、4 三档
var validCosts = map[int]bool{1: true, 3: true, 4: true}

// Default 解析内置的默认图鉴数据
func Default() (*models.CatalogData, error) {
	return Parse(defaultCatalog)
}

// Parse 解析 YAML 格式的图鉴数据，未知字段视为错误
func Parse(b []byte) (*models.CatalogData, error) {
	var data models.CatalogData
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("解析图鉴数据失败: %w", err)
	}
	return &data, nil
}

// Catalog 只读图鉴索引，创建后不再修改，可并发读取
type Catalog struct {
	data *models.CatalogData

	resonators map[string]*models.Resonator
	weapons    map[string]*models.Weapon
	echoes     map[string]*models.Echo
	sets       map[string]*models.EchoSet
}

// New 校验数据并建立索引
func New(data *models.CatalogData) (*Catalog, error) {
	c := &Catalog{
		data:       data,
		resonators: make(map[string]*models.Resonator, len(data.Resonators)),
		weapons:    make(map[string]*models.Weapon, len(data.Weapons)),
		echoes:     make(map[string]*models.Echo, len(data.Echoes)),
		sets:       make(map[string]*models.EchoSet, len(data.EchoSets)),
	}

	for i := range data.Resonators {
		r := &data.Resonators[i]
		if r.ID == "" {
			return nil, fmt.Errorf("第 %d 个共鸣者缺少 id", i)
		}
		if _, dup := c.resonators[r.ID]; dup {
			return nil, fmt.Errorf("共鸣者 id 重复: %s", r.ID)
		}
		c.resonators[r.ID] = r
	}

	for i := range data.Weapons {
		w := &data.Weapons[i]
		if w.ID == "" {
			return nil, fmt.Errorf("第 %d 把武器缺少 id", i)
		}
		if _, dup := c.weapons[w.ID]; dup {
			return nil, fmt.Errorf("武器 id 重复: %s", w.ID)
		}
		c.weapons[w.ID] = w
	}

	for i := range data.EchoSets {
		s := &data.EchoSets[i]
		if _, dup := c.sets[s.ID]; dup {
			return nil, fmt.Errorf("套装 id 重复: %s", s.ID)
		}
		for cost := range s.MainStats {
			if !validCosts[cost] {
				return nil, fmt.Errorf("套装 %s 的 cost 无效: %d", s.ID, cost)
			}
		}
		c.sets[s.ID] = s
	}

	for i := range data.Echoes {
		e := &data.Echoes[i]
		if _, dup := c.echoes[e.ID]; dup {
			return nil, fmt.Errorf("声骸 id 重复: %s", e.ID)
		}
		if !validCosts[e.Cost] {
			return nil, fmt.Errorf("声骸 %s 的 cost 无效: %d", e.ID, e.Cost)
		}
		if e.SetID != "" {
			if _, ok := c.sets[e.SetID]; !ok {
				return nil, fmt.Errorf("声骸 %s 引用了不存在的套装: %s", e.ID, e.SetID)
			}
		}
		c.echoes[e.ID] = e
	}

	for cost, ranges := range data.MainStatRanges {
		if !validCosts[cost] {
			return nil, fmt.Errorf("主词条区间的 cost 无效: %d", cost)
		}
		for name, r := range ranges {
			if r.Max <= r.Min {
				return nil, fmt.Errorf("主词条区间无效: cost %d %s [%v, %v)", cost, name, r.Min, r.Max)
			}
		}
	}
	for name, r := range data.SubStatRanges {
		if r.Max <= r.Min {
			return nil, fmt.Errorf("副词条区间无效: %s [%v, %v)", name, r.Min, r.Max)
		}
	}

	return c, nil
}

// Data 原始数据
func (c *Catalog) Data() *models.CatalogData {
	return c.data
}

// Resonators 全部共鸣者，保持数据顺序
func (c *Catalog) Resonators() []models.Resonator {
	return c.data.Resonators
}

// Resonator 按 id 查找共鸣者
func (c *Catalog) Resonator(id string) (*models.Resonator, bool) {
	r, ok := c.resonators[id]
	return r, ok
}

// Weapons 全部武器
func (c *Catalog) Weapons() []models.Weapon {
	return c.data.Weapons
}

// Weapon 按 id 查找武器
func (c *Catalog) Weapon(id string) (*models.Weapon, bool) {
	w, ok := c.weapons[id]
	return w, ok
}

// WeaponsOfType 指定类型的武器，保持数据顺序
func (c *Catalog) WeaponsOfType(weaponType string) []models.Weapon {
	out := make([]models.Weapon, 0)
	for _, w := range c.data.Weapons {
		if w.Type == weaponType {
			out = append(out, w)
		}
	}
	return out
}

// Echoes 全部声骸
func (c *Catalog) Echoes() []models.Echo {
	return c.data.Echoes
}

// Echo 按 id 查找声骸
func (c *Catalog) Echo(id string) (*models.Echo, bool) {
	e, ok := c.echoes[id]
	return e, ok
}

// EchoesOfCost 指定 cost 的声骸
func (c *Catalog) EchoesOfCost(cost int) []models.Echo {
	out := make([]models.Echo, 0)
	for _, e := range c.data.Echoes {
		if e.Cost == cost {
			out = append(out, e)
		}
	}
	return out
}

// EchoSets 全部套装
func (c *Catalog) EchoSets() []models.EchoSet {
	return c.data.EchoSets
}

// EchoSet 按 id 查找套装
func (c *Catalog) EchoSet(id string) (*models.EchoSet, bool) {
	s, ok := c.sets[id]
	return s, ok
}

// MainStatRanges 主词条数值区间 cost -> 名称 -> 区间
func (c *Catalog) MainStatRanges() map[int]map[string]models.StatRange {
	return c.data.MainStatRanges
}

// SubStatRanges 副词条数值区间
func (c *Catalog) SubStatRanges() map[string]models.StatRange {
	return c.data.SubStatRanges
}

// MainStatOptions 某个 cost 槽位可选的主词条
// 选了套装时使用套装的列表，否则使用该 cost 下有数值区间的全部主词条
func (c *Catalog) MainStatOptions(cost int, setID string) []string {
	if setID != "" {
		s, ok := c.sets[setID]
		if !ok {
			return []string{}
		}
		return append([]string{}, s.MainStats[cost]...)
	}
	return sortedKeys(c.data.MainStatRanges[cost])
}

// SubStatNames 有数值区间的全部副词条名
func (c *Catalog) SubStatNames() []string {
	return sortedKeys(c.data.SubStatRanges)
}

func sortedKeys(m map[string]models.StatRange) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
