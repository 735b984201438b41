// Package xmlio reads and writes the three document kinds the engine
// exchanges at its public boundary (genome, plan, globals XML), per
// spec.md §6. Han reference documents have their own loader in
// internal/hanref; everything else funnels through here.
package xmlio

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/biologic/stylus/biosimd"
	"github.com/biologic/stylus/internal/acid"
	"github.com/biologic/stylus/internal/gene"
	"github.com/biologic/stylus/internal/genome"
	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/hanref"
	"github.com/biologic/stylus/internal/stylerr"
)

type xmlSeed struct {
	ProcessorID string `xml:"processorId,attr"`
	Text        string `xml:",chardata"`
}

type xmlCodonEntry struct {
	Codon  string `xml:"codon,attr"`
	Vector string `xml:"vector,attr"`
}

type xmlCodonTable struct {
	UUID         string          `xml:"uuid,attr"`
	Author       string          `xml:"author,attr"`
	CreationDate string          `xml:"creationDate,attr"`
	CreationTool string          `xml:"creationTool,attr"`
	Entries      []xmlCodonEntry `xml:"entry"`
}

type xmlTermination struct {
	TerminationCode string `xml:"terminationCode,attr"`
	ReasonCode      string `xml:"reasonCode,attr"`
	Description     string `xml:"description,attr"`
}

type xmlOrigin struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

type xmlGeneHanStroke struct {
	BaseFirst     int `xml:"baseFirst,attr"`
	BaseLast      int `xml:"baseLast,attr"`
	CorrespondsTo int `xml:"correspondsTo,attr"`
}

type xmlGeneHanReference struct {
	Unicode string             `xml:"unicode,attr"`
	Strokes []xmlGeneHanStroke `xml:"stroke"`
}

type xmlGene struct {
	BaseFirst     int                   `xml:"baseFirst,attr"`
	BaseLast      int                   `xml:"baseLast,attr"`
	Units         float64               `xml:"units,attr"`
	Origin        xmlOrigin             `xml:"origin"`
	HanReferences []xmlGeneHanReference `xml:"hanReferences>hanReference"`
}

type xmlGenome struct {
	XMLName      xml.Name        `xml:"genome"`
	UUID         string          `xml:"uuid,attr"`
	Author       string          `xml:"author,attr"`
	CreationTool string          `xml:"creationTool,attr"`
	CreationDate string          `xml:"creationDate,attr"`
	Seed         xmlSeed         `xml:"seed"`
	CodonTable   *xmlCodonTable  `xml:"codonTable"`
	Bases        string          `xml:"bases"`
	Termination  *xmlTermination `xml:"termination"`
	Genes        []xmlGene       `xml:"genes>gene"`
}

// HanResolver fetches the Han reference document named by unicode (the
// caller's scope URL plus schema, per spec.md §6's setScope); xmlio never
// performs I/O itself.
type HanResolver func(unicode string) (*hanref.HanRef, error)

// ReadGenome parses a genome document from r. resolver is consulted once
// per gene, for the han reference its hanReferences element names; codon
// table overrides, if present, are applied to a copy of the default table
// and returned alongside the genome so the caller can use the right table
// for compilation.
func ReadGenome(r io.Reader, resolver HanResolver) (*genome.Genome, string, *acid.Table, error) {
	var doc xmlGenome
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, "", nil, stylerr.XML("genome", "malformed genome document: %s", err)
	}
	if doc.UUID == "" {
		return nil, "", nil, stylerr.XML("uuid", "genome missing required uuid attribute")
	}

	bases := []byte(strings.TrimSpace(doc.Bases))
	// biosimd.IsNonACGTPresent is a single SIMD-friendly pass over the whole
	// buffer; only fall back to a byte-by-byte scan (to name the offending
	// byte) when it reports a hit.
	if biosimd.IsNonACGTPresent(bases) {
		for _, b := range bases {
			if !acid.IsBase(b) {
				return nil, "", nil, stylerr.XML("bases", "genome bases contain non-T/C/A/G byte %q", b)
			}
		}
	}

	table := acid.DefaultTable()
	if doc.CodonTable != nil {
		for _, e := range doc.CodonTable.Entries {
			idx, err := codonEntryIndex(e.Codon)
			if err != nil {
				return nil, "", nil, stylerr.XML("entry", "codon table entry %q: %s", e.Codon, err)
			}
			at, err := vectorToAcid(e.Vector)
			if err != nil {
				return nil, "", nil, stylerr.XML("entry", "codon table entry %q: %s", e.Codon, err)
			}
			if err := table.Override(idx, at); err != nil {
				return nil, "", nil, stylerr.XML("entry", "codon table entry %q: %s", e.Codon, err)
			}
		}
		if err := table.Validate(); err != nil {
			return nil, "", nil, stylerr.XML("codonTable", "codon table invalid after overrides: %s", err)
		}
	}

	gn := genome.New(doc.Author, bases)

	for gi, xg := range doc.Genes {
		baseRange := geom.Range{Start: xg.BaseFirst - 1, End: xg.BaseLast - 1}
		origin := geom.Point{X: xg.Origin.X, Y: xg.Origin.Y}

		if len(xg.HanReferences) == 0 {
			return nil, "", nil, stylerr.XML("gene", "gene %d has no hanReferences element", gi)
		}
		href := xg.HanReferences[0]
		han, err := resolver(href.Unicode)
		if err != nil {
			return nil, "", nil, stylerr.Wrap(stylerr.XMLError, err, "resolving Han reference %q for gene %d", href.Unicode, gi)
		}

		g := gn.AddGene(baseRange, origin, han)
		for _, xs := range href.Strokes {
			g.Strokes = append(g.Strokes, gene.Stroke{
				HanStrokeID: xs.CorrespondsTo,
				Range:       geom.Range{Start: xs.BaseFirst - 1, End: xs.BaseLast - 1},
			})
			g.StrokeToHan[len(g.Strokes)-1] = xs.CorrespondsTo
			g.HanToStroke[xs.CorrespondsTo] = len(g.Strokes) - 1
		}
		for hgi, hgrp := range han.Groups {
			var indices []int
			for si, st := range g.Strokes {
				for _, sid := range hgrp.StrokeIDs {
					if st.HanStrokeID == sid {
						indices = append(indices, si)
					}
				}
			}
			g.Groups = append(g.Groups, gene.Group{HanGroupID: hgrp.ID, StrokeIndices: indices})
			for _, si := range indices {
				g.StrokeToGroup[si] = hgi
			}
		}
	}

	if doc.Termination != nil {
		gn.Termination = genome.Termination{
			Code:        doc.Termination.TerminationCode,
			ReasonCode:  doc.Termination.ReasonCode,
			Description: doc.Termination.Description,
		}
	}

	return gn, doc.Seed.Text, table, nil
}

// codonEntryIndex converts a "TCA"-style codon attribute to its table
// index, reusing acid.CodonIndex.
func codonEntryIndex(codon string) (int, error) {
	if len(codon) != 3 {
		return 0, fmt.Errorf("codon %q is not 3 bases", codon)
	}
	return acid.CodonIndex(codon[0], codon[1], codon[2])
}

// vectorToAcid maps a codon table entry's named vector (its abbreviated
// code, e.g. "Nos", "STP") to its acid.Type, the inverse of acid.Type.String.
func vectorToAcid(vector string) (acid.Type, error) {
	for i := 0; i < acid.NumTypes; i++ {
		t := acid.Type(i)
		if strings.EqualFold(t.String(), vector) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unrecognized acid vector %q", vector)
}

// WriteGenome serializes gn (plus the live seed text) to w in the genome
// XML shape ReadGenome accepts, so round-tripping through a snapshot file
// reproduces the same document.
func WriteGenome(w io.Writer, gn *genome.Genome, uuid, creationTool, creationDate, seedText string) error {
	doc := xmlGenome{
		UUID:         uuid,
		Author:       gn.Author,
		CreationTool: creationTool,
		CreationDate: creationDate,
		Seed:         xmlSeed{Text: seedText},
		Bases:        string(gn.Bases),
	}
	if gn.Termination.Code != "" {
		doc.Termination = &xmlTermination{
			TerminationCode: gn.Termination.Code,
			ReasonCode:      gn.Termination.ReasonCode,
			Description:     gn.Termination.Description,
		}
	}
	for _, g := range gn.Genes {
		xg := xmlGene{
			BaseFirst: g.Range.Start + 1,
			BaseLast:  g.Range.End + 1,
			Units:     g.Units(),
			Origin:    xmlOrigin{X: g.Origin.X, Y: g.Origin.Y},
		}
		href := xmlGeneHanReference{}
		if g.Han != nil {
			href.Unicode = g.Han.Unicode
		}
		for _, st := range g.Strokes {
			href.Strokes = append(href.Strokes, xmlGeneHanStroke{
				BaseFirst:     st.Range.Start + 1,
				BaseLast:      st.Range.End + 1,
				CorrespondsTo: st.HanStrokeID,
			})
		}
		xg.HanReferences = []xmlGeneHanReference{href}
		doc.Genes = append(doc.Genes, xg)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return stylerr.Wrap(stylerr.XMLError, err, "serializing genome")
	}
	return nil
}
