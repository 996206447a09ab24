package models

import "testing"

func TestDirectionOpposite(t *testing.T) {
	cases := []struct {
		dir, want Direction
	}{
		{DirUp, DirDown},
		{DirDown, DirUp},
		{DirLeft, DirRight},
		{DirRight, DirLeft},
	}
	for _, c := range cases {
		if got := c.dir.Opposite(); !got.Equal(c.want) {
			t.Errorf("Opposite(%v) = %v, want %v", c.dir, got, c.want)
		}
	}
}

func TestIsValidDirection(t *testing.T) {
	valid := []Direction{DirUp, DirDown, DirLeft, DirRight}
	for _, d := range valid {
		if !IsValidDirection(d) {
			t.Errorf("expected %v to be valid", d)
		}
	}
	if IsValidDirection(Direction{DX: 1, DY: 1}) {
		t.Error("diagonal direction should not be valid")
	}
	if IsValidDirection(Direction{DX: 0, DY: 0}) {
		t.Error("zero direction should not be valid")
	}
}

func TestPositionInBounds(t *testing.T) {
	if !(Position{X: 0, Y: 0}).InBounds(20) {
		t.Error("origin should be in bounds")
	}
	if !(Position{X: 19, Y: 19}).InBounds(20) {
		t.Error("(19,19) should be in bounds of a 20-wide board")
	}
	if (Position{X: 20, Y: 0}).InBounds(20) {
		t.Error("x == boardSize should be out of bounds")
	}
	if (Position{X: -1, Y: 0}).InBounds(20) {
		t.Error("negative x should be out of bounds")
	}
}

func TestPositionAdd(t *testing.T) {
	got := (Position{X: 5, Y: 5}).Add(DirRight)
	if got != (Position{X: 6, Y: 5}) {
		t.Errorf("Add(DirRight) = %v, want (6,5)", got)
	}
}
