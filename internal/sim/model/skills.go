package model

type Skill uint8

const (
	SkillWoodcutting Skill = iota
	SkillMining
	SkillForaging
	SkillBuilding
	SkillHunting
	SkillCrafting

	skillCount
)

var skillNames = [skillCount]string{"woodcutting", "mining", "foraging", "building", "hunting", "crafting"}

func (s Skill) String() string {
	if s < skillCount {
		return skillNames[s]
	}
	return "unknown"
}

// Skills tracks a level and the XP accumulated toward the next one.
// Reaching level L+1 from L costs 100*(L+1) XP.
type Skills struct {
	Level [skillCount]int     `json:"level"`
	XP    [skillCount]float64 `json:"xp"`
}

func (s *Skills) LevelOf(k Skill) int {
	if k >= skillCount {
		return 0
	}
	return s.Level[k]
}

// AddXP returns true when at least one level was gained.
func (s *Skills) AddXP(k Skill, xp float64) bool {
	if k >= skillCount || xp <= 0 {
		return false
	}
	s.XP[k] += xp
	up := false
	for s.XP[k] >= xpToNext(s.Level[k]) {
		s.XP[k] -= xpToNext(s.Level[k])
		s.Level[k]++
		up = true
	}
	return up
}

func xpToNext(level int) float64 { return 100 * float64(level+1) }
