package sim

import (
	"testing"
)

func TestSyntheticRestsUntilGrasped(t *testing.T) {
	s, err := NewSynthetic(SyntheticConfig{Dt: 0.01})
	if err != nil {
		t.Fatal(err)
	}

	h, err := s.ObjectHeight()
	if err != nil {
		t.Fatal(err)
	}
	if h != RestHeight {
		t.Errorf("initial height = %v, want %v", h, RestHeight)
	}

	// An open gripper at the grasp pose does not latch.
	s.SetArmTarget(graspPoint)
	s.SetGripperTarget(0.04)
	s.Step()
	if h, _ := s.ObjectHeight(); h != RestHeight {
		t.Errorf("height with open gripper = %v, want %v", h, RestHeight)
	}
}

func TestSyntheticGraspAndCarry(t *testing.T) {
	s, err := NewSynthetic(SyntheticConfig{Dt: 0.01})
	if err != nil {
		t.Fatal(err)
	}

	s.SetArmTarget(graspPoint)
	s.SetGripperTarget(0.0)
	s.Step()

	// Still at the grasp pose: object barely lifted.
	h, _ := s.ObjectHeight()
	if h < RestHeight || h > RestHeight+0.01 {
		t.Errorf("height at grasp pose = %v, want ~%v", h, RestHeight)
	}

	// Carried to the lift pose: full carry height.
	s.SetArmTarget(liftPoint)
	s.Step()
	h, _ = s.ObjectHeight()
	if h != CarryHeight {
		t.Errorf("height at lift pose = %v, want %v", h, CarryHeight)
	}
}

func TestSyntheticRelease(t *testing.T) {
	s, err := NewSynthetic(SyntheticConfig{Dt: 0.01, ReleaseAt: 0.05})
	if err != nil {
		t.Fatal(err)
	}

	s.SetArmTarget(graspPoint)
	s.SetGripperTarget(0.0)
	for i := 0; i < 10; i++ {
		s.Step()
	}
	h, _ := s.ObjectHeight()
	if h != RestHeight {
		t.Errorf("height after release = %v, want %v", h, RestHeight)
	}
}

func TestSyntheticCaptureFIFO(t *testing.T) {
	s, err := NewSynthetic(SyntheticConfig{Dt: 0.01})
	if err != nil {
		t.Fatal(err)
	}

	frames, err := s.Completed()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 0 {
		t.Errorf("completed frames = %d, want 0", len(frames))
	}

	for i := 0; i < 3; i++ {
		if err := s.RequestCapture(); err != nil {
			t.Fatal(err)
		}
	}
	frames, err = s.Completed()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 3 {
		t.Errorf("completed frames = %d, want 3", len(frames))
	}
}

func TestSyntheticClosed(t *testing.T) {
	s, err := NewSynthetic(SyntheticConfig{Dt: 0.01})
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	if err := s.Step(); err == nil {
		t.Error("Step() after Close should fail")
	}
	if _, err := s.ObjectHeight(); err == nil {
		t.Error("ObjectHeight() after Close should fail")
	}
}
