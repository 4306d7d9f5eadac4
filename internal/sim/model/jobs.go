package model

// Job names one of the player-toggled work permissions.
type Job uint8

const (
	JobGatherWood Job = iota
	JobGatherStone
	JobGatherFood
	JobPerformBuilding
	JobHuntAnimals
	JobCraftItems
	JobHaulToStorage
	JobTendCrops

	jobCount
)

var jobNames = [jobCount]string{
	"gatherWood", "gatherStone", "gatherFood", "performBuilding",
	"huntAnimals", "craftItems", "haulToStorage", "tendCrops",
}

func (j Job) String() string {
	if j < jobCount {
		return jobNames[j]
	}
	return "unknown"
}

// JobFlags is the set of enabled jobs. New agents start with all false.
type JobFlags struct {
	GatherWood      bool `json:"gatherWood"`
	GatherStone     bool `json:"gatherStone"`
	GatherFood      bool `json:"gatherFood"`
	PerformBuilding bool `json:"performBuilding"`
	HuntAnimals     bool `json:"huntAnimals"`
	CraftItems      bool `json:"craftItems"`
	HaulToStorage   bool `json:"haulToStorage"`
	TendCrops       bool `json:"tendCrops"`
}

func (f *JobFlags) ptr(j Job) *bool {
	switch j {
	case JobGatherWood:
		return &f.GatherWood
	case JobGatherStone:
		return &f.GatherStone
	case JobGatherFood:
		return &f.GatherFood
	case JobPerformBuilding:
		return &f.PerformBuilding
	case JobHuntAnimals:
		return &f.HuntAnimals
	case JobCraftItems:
		return &f.CraftItems
	case JobHaulToStorage:
		return &f.HaulToStorage
	case JobTendCrops:
		return &f.TendCrops
	}
	return nil
}

func (f JobFlags) Enabled(j Job) bool {
	if p := f.ptr(j); p != nil {
		return *p
	}
	return false
}

func (f *JobFlags) Set(j Job, on bool) {
	if p := f.ptr(j); p != nil {
		*p = on
	}
}

// JobEdges is the difference between two flag snapshots.
type JobEdges struct {
	Rising  []Job
	Falling []Job
}

func (e JobEdges) Empty() bool { return len(e.Rising) == 0 && len(e.Falling) == 0 }

// Diff returns which jobs turned on or off going from prev to f.
func (f JobFlags) Diff(prev JobFlags) JobEdges {
	var e JobEdges
	for j := Job(0); j < jobCount; j++ {
		now, was := f.Enabled(j), prev.Enabled(j)
		switch {
		case now && !was:
			e.Rising = append(e.Rising, j)
		case !now && was:
			e.Falling = append(e.Falling, j)
		}
	}
	return e
}

// JobForState maps a work state to the flag that drives it.
func JobForState(s State) (Job, bool) {
	switch s {
	case StateChopping:
		return JobGatherWood, true
	case StateMining:
		return JobGatherStone, true
	case StateGathering:
		return JobGatherFood, true
	case StateBuilding:
		return JobPerformBuilding, true
	case StateHunting, StateMovingToSkin, StateSkinning:
		return JobHuntAnimals, true
	case StateCrafting:
		return JobCraftItems, true
	case StateHauling:
		return JobHaulToStorage, true
	}
	return 0, false
}
