package core

import "testing"

func TestStateMachineHappyPath(t *testing.T) {
	m := NewStateMachine()
	const vp, feat = Viewport(0), Feature(1)

	if got := m.State(vp, feat); got != Unconfigured {
		t.Fatalf("got initial state %v, want Unconfigured", got)
	}

	if s, err := m.Apply(vp, feat, TransitionSetOptions); err != nil || s != Configured {
		t.Fatalf("SetOptions: got (%v, %v), want (Configured, nil)", s, err)
	}
	if s, err := m.Apply(vp, feat, TransitionFirstEvaluate); err != nil || s != Active {
		t.Fatalf("FirstEvaluate: got (%v, %v), want (Active, nil)", s, err)
	}
	if s, err := m.Apply(vp, feat, TransitionFreeResources); err != nil || s != Configured {
		t.Fatalf("FreeResources: got (%v, %v), want (Configured, nil)", s, err)
	}
}

func TestStateMachineInvalidTransition(t *testing.T) {
	m := NewStateMachine()
	const vp, feat = Viewport(0), Feature(1)

	_, err := m.Apply(vp, feat, TransitionFirstEvaluate)
	if err == nil {
		t.Fatal("expected ErrInvalidTransition from Unconfigured via FirstEvaluate")
	}
	if _, ok := err.(*ErrInvalidTransition); !ok {
		t.Fatalf("got %T, want *ErrInvalidTransition", err)
	}
}

func TestStateMachineDestroyFromAnyState(t *testing.T) {
	m := NewStateMachine()
	const vp, feat = Viewport(0), Feature(1)

	if s, err := m.Apply(vp, feat, TransitionDestroy); err != nil || s != Terminal {
		t.Fatalf("Destroy from Unconfigured: got (%v, %v), want (Terminal, nil)", s, err)
	}
}

func TestStateMachineSetOptionsRecreateFromActive(t *testing.T) {
	m := NewStateMachine()
	const vp, feat = Viewport(0), Feature(1)

	_, _ = m.Apply(vp, feat, TransitionSetOptions)
	_, _ = m.Apply(vp, feat, TransitionFirstEvaluate)

	s, err := m.Apply(vp, feat, TransitionSetOptionsRecreate)
	if err != nil || s != Configured {
		t.Fatalf("got (%v, %v), want (Configured, nil)", s, err)
	}
}

func TestStateMachineIndependentPerViewport(t *testing.T) {
	m := NewStateMachine()
	const feat = Feature(1)

	_, _ = m.Apply(0, feat, TransitionSetOptions)
	if got := m.State(1, feat); got != Unconfigured {
		t.Fatalf("viewport 1 got %v, want Unconfigured (unaffected by viewport 0)", got)
	}
}
