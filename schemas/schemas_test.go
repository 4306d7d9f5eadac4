package schemas

import "testing"

func TestTuningSchema(t *testing.T) {
	if err := ValidateYAML(Tuning, []byte("sim:\n  tick_rate_hz: 20\nneeds:\n  sleep_enter: 25\n")); err != nil {
		t.Fatalf("valid tuning rejected: %v", err)
	}
	if err := ValidateYAML(Tuning, []byte("needs:\n  sleep_enter: -1\n")); err == nil {
		t.Fatalf("negative threshold accepted")
	}
	if err := ValidateYAML(Tuning, []byte("bogus: 1\n")); err == nil {
		t.Fatalf("unknown section accepted")
	}
	if err := ValidateYAML(Tuning, []byte("")); err != nil {
		t.Fatalf("empty tuning rejected: %v", err)
	}
}

func TestScenarioSchema(t *testing.T) {
	ok := []byte(`{
	  "name": "camp",
	  "trees": [{"pos": [3, 0, 3], "wood": 10}],
	  "settlers": [{"name": "Ada", "pos": [0, 0, 0], "jobs": {"gatherWood": true}}]
	}`)
	if err := ValidateJSON(Scenario, ok); err != nil {
		t.Fatalf("valid scenario rejected: %v", err)
	}
	bad := []byte(`{"name": "camp", "settlers": [{"name": "Ada", "pos": [0, 0]}]}`)
	if err := ValidateJSON(Scenario, bad); err == nil {
		t.Fatalf("two-component position accepted")
	}
	if err := ValidateJSON(Scenario, []byte(`{"name": "camp", "settlers": []}`)); err == nil {
		t.Fatalf("scenario without settlers accepted")
	}
}
