package acid

import "testing"

func TestCodonIndexOrdering(t *testing.T) {
	idx, err := CodonIndex('T', 'T', 'T')
	if err != nil || idx != 0 {
		t.Fatalf("CodonIndex(T,T,T) = %d, %v; want 0, nil", idx, err)
	}
	idx, err = CodonIndex('G', 'G', 'G')
	if err != nil || idx != 63 {
		t.Fatalf("CodonIndex(G,G,G) = %d, %v; want 63, nil", idx, err)
	}
	idx, err = CodonIndex('A', 'T', 'G')
	if err != nil || idx != 35 {
		t.Fatalf("CodonIndex(A,T,G) = %d, %v; want 35, nil", idx, err)
	}
}

func TestCodonIndexInvalidBase(t *testing.T) {
	if _, err := CodonIndex('T', 'X', 'A'); err == nil {
		t.Fatal("expected error for invalid base")
	}
}

func TestDefaultTableStopCodons(t *testing.T) {
	tbl := DefaultTable()
	for _, codon := range StopCodons {
		acidType, err := tbl.AcidFor(codon[0], codon[1], codon[2])
		if err != nil {
			t.Fatalf("AcidFor(%s): %v", codon, err)
		}
		if acidType != Stop {
			t.Errorf("AcidFor(%s) = %s; want Stop", codon, acidType)
		}
	}
}

func TestDefaultTableStartCodonIsNotStop(t *testing.T) {
	tbl := DefaultTable()
	acidType, err := tbl.AcidFor(StartCodon[0], StartCodon[1], StartCodon[2])
	if err != nil {
		t.Fatal(err)
	}
	if acidType == Stop {
		t.Fatal("start codon must not map to Stop in the acid table")
	}
}

func TestDefaultTableCoversEveryAcid(t *testing.T) {
	if err := DefaultTable().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestOverrideOutOfRange(t *testing.T) {
	tbl := DefaultTable()
	if err := tbl.Override(-1, Nshort); err == nil {
		t.Fatal("expected error for negative codon index")
	}
	if err := tbl.Override(0, Type(NumTypes)); err == nil {
		t.Fatal("expected error for out-of-range acid type")
	}
}

func TestVectorMagnitudesMatchAcrossAxes(t *testing.T) {
	cases := []struct {
		cardinal, diagonal Type
	}{
		{Nshort, NEshort},
		{Nmedium, NEmedium},
	}
	for _, c := range cases {
		if got, want := c.diagonal.Magnitude(), c.cardinal.Magnitude(); !closeEnough(got, want) {
			t.Errorf("%s magnitude = %f; want %f (== %s)", c.diagonal, got, want, c.cardinal)
		}
	}
}

func closeEnough(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
