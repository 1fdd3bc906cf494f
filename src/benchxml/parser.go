// Package benchxml parses the benchmark report XML produced by the engine
// benchmark job (bench-report.xml).
package benchxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"bench-harvester/src/logger"
)

// ErrMalformedReport is returned when the report does not follow the
// <cases><case><label/><scores><score/>...</scores></case></cases> shape.
var ErrMalformedReport = errors.New("malformed benchmark report")

// element is a generic XML node; the report is walked by element name.
type element struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []element `xml:",any"`
}

// child returns the first direct child called name.
func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

// Parser decodes benchmark reports into label -> score mappings.
type Parser struct {
	logger logger.Logger
}

// NewParser creates a parser that reports duplicate scores through log.
func NewParser(log logger.Logger) *Parser {
	return &Parser{logger: log}
}

// ParseFile reads and parses the report at path on fs.
func (p *Parser) ParseFile(fs afero.Fs, path string) (map[string]float64, error) {
	p.logger.Debug("Parsing bench report from %s", path)

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	scores, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scores, nil
}

// Parse parses report XML. The root either is a <cases> element or holds
// <cases> children. When a case lists several scores the last one (the
// newest) wins and a warning is logged.
func (p *Parser) Parse(data []byte) (map[string]float64, error) {
	var root element
	decoder := xml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}

	groups := root.Children
	if root.XMLName.Local == "cases" {
		groups = []element{root}
	}

	scores := make(map[string]float64)
	for _, cases := range groups {
		if cases.XMLName.Local != "cases" {
			return nil, fmt.Errorf("%w: expected <cases>, got <%s>", ErrMalformedReport, cases.XMLName.Local)
		}

		for _, c := range cases.Children {
			label, score, err := p.parseCase(c)
			if err != nil {
				return nil, err
			}
			scores[label] = score
		}
	}

	return scores, nil
}

func (p *Parser) parseCase(c element) (string, float64, error) {
	if c.XMLName.Local != "case" {
		return "", 0, fmt.Errorf("%w: expected <case>, got <%s>", ErrMalformedReport, c.XMLName.Local)
	}

	labelElem := c.child("label")
	if labelElem == nil {
		return "", 0, fmt.Errorf("%w: case without <label>", ErrMalformedReport)
	}
	label := strings.TrimSpace(labelElem.Text)

	scoresElem := c.child("scores")
	if scoresElem == nil || len(scoresElem.Children) == 0 {
		return "", 0, fmt.Errorf("%w: case %q has no scores", ErrMalformedReport, label)
	}

	values := make([]float64, 0, len(scoresElem.Children))
	for _, v := range scoresElem.Children {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return "", 0, fmt.Errorf("%w: case %q: %v", ErrMalformedReport, label, err)
		}
		values = append(values, f)
	}

	if len(values) > 1 {
		p.logger.Warn("More than one score for benchmark %s, using the last one (the newest one).", label)
	}

	return label, values[len(values)-1], nil
}
