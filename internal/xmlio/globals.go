package xmlio

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/biologic/stylus/internal/scoring"
	"github.com/biologic/stylus/internal/stylerr"
	"github.com/biologic/stylus/internal/unit"
)

type xmlWeightSetpoint struct {
	Weight   float64 `xml:"weight,attr"`
	Setpoint float64 `xml:"setpoint,attr"`
}

type xmlGeneComponents struct {
	Scale           xmlWeightSetpoint `xml:"scale"`
	Placement       xmlWeightSetpoint `xml:"placement"`
	IllegalOverlaps xmlWeightSetpoint `xml:"illegalOverlaps"`
	MissingOverlaps xmlWeightSetpoint `xml:"missingOverlaps"`
	Marks           xmlWeightSetpoint `xml:"marks"`
}

type xmlGroupComponents struct {
	Scale           xmlWeightSetpoint `xml:"scale"`
	Placement       xmlWeightSetpoint `xml:"placement"`
	IllegalOverlaps xmlWeightSetpoint `xml:"illegalOverlaps"`
	MissingOverlaps xmlWeightSetpoint `xml:"missingOverlaps"`
	Deviation       xmlWeightSetpoint `xml:"deviation"`
	ExtraLength     xmlWeightSetpoint `xml:"extraLength"`
	Dropouts        xmlWeightSetpoint `xml:"dropouts"`
}

type xmlGlobals struct {
	XMLName        xml.Name           `xml:"globals"`
	GroupScoreMode string             `xml:"groupScoreMode,attr"`
	Gene           xmlGeneComponents  `xml:"gene"`
	Group          xmlGroupComponents `xml:"group"`
}

// ReadGlobals parses a globals document from r into scoring.Globals,
// falling back to scoring.Default()'s weight/setpoint for any component
// the document omits (a component element is optional; absence means
// "use the engine default for this component").
func ReadGlobals(r io.Reader) (scoring.Globals, error) {
	g := scoring.Default()

	var doc xmlGlobals
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return scoring.Globals{}, stylerr.XML("globals", "malformed globals document: %s", err)
	}

	if strings.EqualFold(doc.GroupScoreMode, "average") {
		g.GroupScoreMode = scoring.GroupScoreAverage
	} else if strings.EqualFold(doc.GroupScoreMode, "minimum") {
		g.GroupScoreMode = scoring.GroupScoreMinimum
	}

	applyWS := func(ws xmlWeightSetpoint, weight, setpoint *unit.Unit) {
		if ws.Weight != 0 {
			*weight = unit.Of(ws.Weight)
		}
		*setpoint = unit.Of(ws.Setpoint)
	}

	applyWS(doc.Gene.Scale, &g.GeneWeights.Scale, &g.GeneSetpoints.Scale)
	applyWS(doc.Gene.Placement, &g.GeneWeights.Placement, &g.GeneSetpoints.Placement)
	applyWS(doc.Gene.IllegalOverlaps, &g.GeneWeights.IllegalOverlaps, &g.GeneSetpoints.IllegalOverlaps)
	applyWS(doc.Gene.MissingOverlaps, &g.GeneWeights.MissingOverlaps, &g.GeneSetpoints.MissingOverlaps)
	applyWS(doc.Gene.Marks, &g.GeneWeights.Marks, &g.GeneSetpoints.Marks)

	applyWS(doc.Group.Scale, &g.GroupWeights.Scale, &g.GroupSetpoints.Scale)
	applyWS(doc.Group.Placement, &g.GroupWeights.Placement, &g.GroupSetpoints.Placement)
	applyWS(doc.Group.IllegalOverlaps, &g.GroupWeights.IllegalOverlaps, &g.GroupSetpoints.IllegalOverlaps)
	applyWS(doc.Group.MissingOverlaps, &g.GroupWeights.MissingOverlaps, &g.GroupSetpoints.MissingOverlaps)
	applyWS(doc.Group.Deviation, &g.GroupWeights.Deviation, &g.GroupSetpoints.Deviation)
	applyWS(doc.Group.ExtraLength, &g.GroupWeights.ExtraLength, &g.GroupSetpoints.ExtraLength)
	applyWS(doc.Group.Dropouts, &g.GroupWeights.Dropouts, &g.GroupSetpoints.Dropouts)

	return g, nil
}
