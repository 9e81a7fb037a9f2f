package ladder

import (
	"sort"

	"github.com/Dosada05/pyramid-ladder/models"
)

// Grid is a snapshot of which team sits in which slot of one pyramid.
type Grid struct {
	bySlot map[models.Slot]int
	byTeam map[int]models.Slot
}

func NewGrid(positions []*models.Position) Grid {
	g := Grid{
		bySlot: make(map[models.Slot]int, len(positions)),
		byTeam: make(map[int]models.Slot, len(positions)),
	}
	for _, p := range positions {
		if p == nil {
			continue
		}
		g.bySlot[p.Slot()] = p.TeamID
		g.byTeam[p.TeamID] = p.Slot()
	}
	return g
}

// TeamAt returns the team occupying s.
func (g Grid) TeamAt(s models.Slot) (int, bool) {
	teamID, ok := g.bySlot[s]
	return teamID, ok
}

// SlotOf returns the slot held by teamID.
func (g Grid) SlotOf(teamID int) (models.Slot, bool) {
	s, ok := g.byTeam[teamID]
	return s, ok
}

// Occupied lists occupied slots ordered top to bottom, left to right.
func (g Grid) Occupied() []models.Slot {
	slots := make([]models.Slot, 0, len(g.bySlot))
	for s := range g.bySlot {
		slots = append(slots, s)
	}
	sortSlots(slots)
	return slots
}

func sortSlots(slots []models.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Row != slots[j].Row {
			return slots[i].Row < slots[j].Row
		}
		return slots[i].Col < slots[j].Col
	})
}
