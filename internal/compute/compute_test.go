package compute

import "testing"

func TestSmoothIterationCombinesWholeAndFraction(t *testing.T) {
	d := Data{Iterations: 40, SmoothFraction: 0.37}
	got := d.SmoothIteration()
	want := 40.37
	if got < want-1e-9 || got > want+1e-9 {
		t.Errorf("SmoothIteration() = %v, want %v", got, want)
	}
}

func TestSmoothIterationZeroFraction(t *testing.T) {
	d := Data{Iterations: 100}
	if got := d.SmoothIteration(); got != 100 {
		t.Errorf("SmoothIteration() = %v, want 100", got)
	}
}
