package acid

import "github.com/pkg/errors"

// Bases is the four-letter alphabet a gene's base sequence is drawn from.
const Bases = "TCAG"

// baseIndex maps a base letter to its position within a codon index,
// matching the original engine's codon table ordering (T=0,C=1,A=2,G=3).
func baseIndex(b byte) (int, bool) {
	switch b {
	case 'T':
		return 0, true
	case 'C':
		return 1, true
	case 'A':
		return 2, true
	case 'G':
		return 3, true
	}
	return 0, false
}

// IsBase reports whether b is one of T, C, A, G.
func IsBase(b byte) bool {
	_, ok := baseIndex(b)
	return ok
}

// IsPurine reports whether b is a purine (A or G).
func IsPurine(b byte) bool { return b == 'A' || b == 'G' }

// IsPyrimidine reports whether b is a pyrimidine (T or C).
func IsPyrimidine(b byte) bool { return b == 'T' || b == 'C' }

// CodonIndex returns the [0,64) index of the codon formed by three bases,
// in the same order the default codon table is laid out.
func CodonIndex(b1, b2, b3 byte) (int, error) {
	i1, ok1 := baseIndex(b1)
	i2, ok2 := baseIndex(b2)
	i3, ok3 := baseIndex(b3)
	if !ok1 || !ok2 || !ok3 {
		return 0, errors.Errorf("acid: invalid codon %c%c%c", b1, b2, b3)
	}
	return i1*16 + i2*4 + i3, nil
}

// NumCodons is the size of the codon table (4^3).
const NumCodons = 64

// codonNames lists the 64 codons in table order (T=0,C=1,A=2,G=3 per
// position), reproduced from the original engine for diagnostics.
var codonNames = [NumCodons]string{
	"TTT", "TTC", "TTA", "TTG",
	"TCT", "TCC", "TCA", "TCG",
	"TAT", "TAC", "TAA", "TAG",
	"TGT", "TGC", "TGA", "TGG",
	"CTT", "CTC", "CTA", "CTG",
	"CCT", "CCC", "CCA", "CCG",
	"CAT", "CAC", "CAA", "CAG",
	"CGT", "CGC", "CGA", "CGG",
	"ATT", "ATC", "ATA", "ATG",
	"ACT", "ACC", "ACA", "ACG",
	"AAT", "AAC", "AAA", "AAG",
	"AGT", "AGC", "AGA", "AGG",
	"GTT", "GTC", "GTA", "GTG",
	"GCT", "GCC", "GCA", "GCG",
	"GAT", "GAC", "GAA", "GAG",
	"GGT", "GGC", "GGA", "GGG",
}

// defaultMapping is the stock codon->acid table, reproduced verbatim from
// the original engine (CodonTable::s_mapCodonToType).
var defaultMapping = [NumCodons]Type{
	Nlong, Nlong, Nmedium, Nmedium, // TTT TTC TTA TTG
	SEmedium, SEmedium, SEmedium, SEmedium, // TCT TCC TCA TCG
	Slong, Slong, Stop, Stop, // TAT TAC TAA TAG
	NWmedium, NWmedium, Stop, NWmedium, // TGT TGC TGA TGG
	Nshort, Nshort, Nshort, Nshort, // CTT CTC CTA CTG
	SEshort, SEshort, SEshort, SEshort, // CCT CCC CCA CCG
	Smedium, Smedium, Sshort, Sshort, // CAT CAC CAA CAG
	NWshort, NWshort, NWshort, NWshort, // CGT CGC CGA CGG
	NEmedium, NEmedium, NEmedium, NEmedium, // ATT ATC ATA ATG
	Elong, Elong, Emedium, Emedium, // ACT ACC ACA ACG
	SWmedium, SWmedium, SWmedium, SWmedium, // AAT AAC AAA AAG
	Wlong, Wlong, Wmedium, Wmedium, // AGT AGC AGA AGG
	NEshort, NEshort, NEshort, NEshort, // GTT GTC GTA GTG
	Eshort, Eshort, Eshort, Eshort, // GCT GCC GCA GCG
	SWshort, SWshort, SWshort, SWshort, // GAT GAC GAA GAG
	Wshort, Wshort, Wshort, Wshort, // GGT GGC GGA GGG
}

// StartCodon is the sole start-codon identity.
const StartCodon = "ATG"

// StopCodons lists the three stop-codon identities.
var StopCodons = [3]string{"TAA", "TAG", "TGA"}

// Table is a (possibly overridden) codon->acid mapping, immutable for the
// lifetime of the genome that loaded it.
type Table struct {
	mapping [NumCodons]Type
}

// DefaultTable returns the stock codon table.
func DefaultTable() *Table {
	t := &Table{mapping: defaultMapping}
	return t
}

// Override replaces the acid assigned to a codon. Used while loading a
// genome's optional <codonTable> overrides; the table is immutable once
// loading completes.
func (t *Table) Override(codonIndex int, acidType Type) error {
	if codonIndex < 0 || codonIndex >= NumCodons {
		return errors.Errorf("acid: codon index %d out of range", codonIndex)
	}
	if acidType < 0 || int(acidType) >= NumTypes {
		return errors.Errorf("acid: acid type %d out of range", acidType)
	}
	t.mapping[codonIndex] = acidType
	return nil
}

// Validate checks that every acid type appears at least once in the table,
// as required by the data model invariants.
func (t *Table) Validate() error {
	seen := make([]bool, NumTypes)
	for _, a := range t.mapping {
		seen[a] = true
	}
	for a := 0; a < NumTypes; a++ {
		if !seen[a] {
			return errors.Errorf("acid: acid type %s does not appear in codon table", Type(a))
		}
	}
	return nil
}

// AcidAt returns the acid type for the codon at the given table index.
func (t *Table) AcidAt(codonIndex int) Type { return t.mapping[codonIndex] }

// AcidFor returns the acid type for the codon formed by three bases.
func (t *Table) AcidFor(b1, b2, b3 byte) (Type, error) {
	idx, err := CodonIndex(b1, b2, b3)
	if err != nil {
		return Stop, err
	}
	return t.mapping[idx], nil
}

// Name returns the canonical three-letter codon string for a table index.
func Name(codonIndex int) string { return codonNames[codonIndex] }
