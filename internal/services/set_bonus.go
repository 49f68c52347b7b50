package services

import (
	"sort"

	"github.com/aiwuxian/resonance-wiki/internal/catalog"
	"github.com/aiwuxian/resonance-wiki/internal/models"
)

const (
	twoPieceThreshold  = 2
	fivePieceThreshold = 5
)

// ActiveSets 统计槽位所属套装，返回件数达到 2 的套装效果
// 槽位装了声骸时按声骸的套装计，否则按配装选择的套装计
func ActiveSets(cat *catalog.Catalog, slots []models.EchoSlot, buildSetID string) []models.ActiveSet {
	counts := make(map[string]int)
	for _, slot := range slots {
		setID := buildSetID
		if slot.EchoID != "" {
			setID = ""
			if e, ok := cat.Echo(slot.EchoID); ok {
				setID = e.SetID
			}
		}
		if setID != "" {
			counts[setID]++
		}
	}

	active := make([]models.ActiveSet, 0)
	for id, pieces := range counts {
		if pieces < twoPieceThreshold {
			continue
		}
		set, ok := cat.EchoSet(id)
		if !ok {
			continue
		}
		as := models.ActiveSet{
			ID:       set.ID,
			Name:     set.Name,
			Pieces:   pieces,
			TwoPiece: set.Bonuses.TwoPiece,
		}
		if pieces >= fivePieceThreshold {
			as.FivePiece = set.Bonuses.FivePiece
		}
		active = append(active, as)
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].Pieces != active[j].Pieces {
			return active[i].Pieces > active[j].Pieces
		}
		return active[i].ID < active[j].ID
	})
	return active
}
