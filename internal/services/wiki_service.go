package services

import (
	"errors"

	"github.com/aiwuxian/resonance-wiki/internal/catalog"
	"github.com/aiwuxian/resonance-wiki/internal/models"
)

var (
	ErrResonatorNotFound = errors.New("共鸣者不存在")
	ErrEchoSetNotFound   = errors.New("套装不存在")
)

// ResonatorSummary 列表页使用的共鸣者概要
type ResonatorSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Element string `json:"element"`
	Weapon  string `json:"weapon"`
	Rarity  int    `json:"rarity"`
}

// ResonatorDetail 详情页：共鸣者和可用武器
type ResonatorDetail struct {
	*models.Resonator
	Weapons []models.Weapon `json:"weapons"`
}

// StatRanges 词条数值区间表
type StatRanges struct {
	MainStats map[int]map[string]models.StatRange `json:"mainStats"`
	SubStats  map[string]models.StatRange         `json:"subStats"`
}

// WikiService 图鉴查询
type WikiService struct {
	catalog *catalog.Catalog
}

func NewWikiService(cat *catalog.Catalog) *WikiService {
	return &WikiService{catalog: cat}
}

// ListResonators 共鸣者列表，可按元素和武器类型过滤
func (ws *WikiService) ListResonators(element, weaponType string) []ResonatorSummary {
	out := make([]ResonatorSummary, 0)
	for _, r := range ws.catalog.Resonators() {
		if element != "" && r.Element != element {
			continue
		}
		if weaponType != "" && r.Weapon != weaponType {
			continue
		}
		out = append(out, ResonatorSummary{
			ID:      r.ID,
			Name:    r.Name,
			Element: r.Element,
			Weapon:  r.Weapon,
			Rarity:  r.Rarity,
		})
	}
	return out
}

// GetResonator 共鸣者详情
func (ws *WikiService) GetResonator(id string) (*ResonatorDetail, error) {
	r, ok := ws.catalog.Resonator(id)
	if !ok {
		return nil, ErrResonatorNotFound
	}
	return &ResonatorDetail{
		Resonator: r,
		Weapons:   ws.catalog.WeaponsOfType(r.Weapon),
	}, nil
}

// ListWeapons 武器列表，weaponType 为空时返回全部
func (ws *WikiService) ListWeapons(weaponType string) []models.Weapon {
	if weaponType == "" {
		return ws.catalog.Weapons()
	}
	return ws.catalog.WeaponsOfType(weaponType)
}

// ListEchoes 声骸列表，cost 为 0 时返回全部
func (ws *WikiService) ListEchoes(cost int) []models.Echo {
	if cost == 0 {
		return ws.catalog.Echoes()
	}
	return ws.catalog.EchoesOfCost(cost)
}

// ListEchoSets 套装列表
func (ws *WikiService) ListEchoSets() []models.EchoSet {
	return ws.catalog.EchoSets()
}

// GetEchoSet 套装详情
func (ws *WikiService) GetEchoSet(id string) (*models.EchoSet, error) {
	set, ok := ws.catalog.EchoSet(id)
	if !ok {
		return nil, ErrEchoSetNotFound
	}
	return set, nil
}

// GetStatRanges 词条数值区间
func (ws *WikiService) GetStatRanges() StatRanges {
	return StatRanges{
		MainStats: ws.catalog.MainStatRanges(),
		SubStats:  ws.catalog.SubStatRanges(),
	}
}
