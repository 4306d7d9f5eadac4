package model

// State is the single active activity of an agent.
type State uint8

const (
	StateIdle State = iota
	StateMoving
	StateChopping
	StateMining
	StateGathering
	StateBuilding
	StateHauling
	StateMovingToStorage
	StateDepositing
	StateSearchingForFood
	StateMovingToFood
	StateEating
	StateMovingToBed
	StateSleeping
	StatePickingUp
	StateCrafting
	StateHunting
	StateMovingToSkin
	StateSkinning
	StateWaiting
	StateWander

	stateCount
)

var stateNames = [stateCount]string{
	StateIdle:             "IDLE",
	StateMoving:           "MOVING",
	StateChopping:         "CHOPPING",
	StateMining:           "MINING",
	StateGathering:        "GATHERING",
	StateBuilding:         "BUILDING",
	StateHauling:          "HAULING",
	StateMovingToStorage:  "MOVING_TO_STORAGE",
	StateDepositing:       "DEPOSITING",
	StateSearchingForFood: "SEARCHING_FOR_FOOD",
	StateMovingToFood:     "MOVING_TO_FOOD",
	StateEating:           "EATING",
	StateMovingToBed:      "MOVING_TO_BED",
	StateSleeping:         "SLEEPING",
	StatePickingUp:        "PICKING_UP",
	StateCrafting:         "CRAFTING",
	StateHunting:          "HUNTING",
	StateMovingToSkin:     "MOVING_TO_SKIN",
	StateSkinning:         "SKINNING",
	StateWaiting:          "WAITING",
	StateWander:           "WANDER",
}

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return "UNKNOWN"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseState is the inverse of String.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return StateIdle, false
}

// AllStates lists every state in declaration order.
func AllStates() []State {
	out := make([]State, 0, stateCount)
	for s := State(0); s < stateCount; s++ {
		out = append(out, s)
	}
	return out
}

// IsSurvival reports the states only a natural completion or a needs exit
// threshold may end.
func (s State) IsSurvival() bool {
	switch s {
	case StateEating, StateSleeping, StateSearchingForFood, StateMovingToBed, StateMovingToFood:
		return true
	}
	return false
}

// IsInterruptible reports whether a job flag change may snap the agent to
// IDLE immediately. MOVING counts only when not heading to a critical target.
func (s State) IsInterruptible(movingToCritical bool) bool {
	switch s {
	case StateIdle, StateWander, StateWaiting:
		return true
	case StateMoving:
		return !movingToCritical
	}
	return false
}
