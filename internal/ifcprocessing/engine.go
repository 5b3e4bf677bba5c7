// Package ifcprocessing drives the IFC-to-WexBIM conversion and property
// extraction orchestration (spec §4.11, component C11). The geometry
// engine and property extractor are external collaborators (spec §1
// out-of-scope); this package only depends on their interfaces.
package ifcprocessing

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// GeometryEngine converts raw IFC bytes into WexBIM tessellated
// geometry bytes. A real implementation wraps a native geometry kernel;
// it is opaque to this package.
type GeometryEngine interface {
	ConvertToWexBim(ctx context.Context, ifcBytes io.Reader) ([]byte, error)
}

// ExtractedElement is one parsed IFC entity with its property and
// quantity sets, as produced by a PropertyExtractor.
type ExtractedElement struct {
	EntityLabel    int
	GlobalID       string
	Name           string
	TypeName       string
	Description    string
	ObjectType     string
	TypeObjectName string
	TypeObjectType string
	PropertySets   []ExtractedPropertySet
	QuantitySets   []ExtractedQuantitySet
}

type ExtractedPropertySet struct {
	Name              string
	GlobalID          string
	IsTypePropertySet bool
	Properties        []ExtractedProperty
}

type ExtractedProperty struct {
	Name      string
	Value     string
	ValueType string
	Unit      string
}

type ExtractedQuantitySet struct {
	Name       string
	GlobalID   string
	Quantities []ExtractedQuantity
}

type ExtractedQuantity struct {
	Name  string
	Value string
	Unit  string
}

// PropertyExtractor produces the element/property/quantity index from
// raw IFC bytes. A real implementation wraps a native IFC parser.
type PropertyExtractor interface {
	ExtractProperties(ctx context.Context, ifcBytes io.Reader) ([]ExtractedElement, error)
}

// StubGeometryEngine is a deterministic stand-in that fabricates a
// minimal WexBIM-shaped payload from the entity count in the source
// bytes, sufficient to exercise the orchestrator end-to-end without a
// real geometry kernel.
type StubGeometryEngine struct{}

func (StubGeometryEngine) ConvertToWexBim(ctx context.Context, ifcBytes io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(ifcBytes)
	if err != nil {
		return nil, fmt.Errorf("ifcprocessing: read source bytes: %w", err)
	}
	entityCount := bytes.Count(raw, []byte("\n#"))
	var buf bytes.Buffer
	buf.WriteString("WEXBIM")
	fmt.Fprintf(&buf, "\x00entities=%d\x00", entityCount)
	return buf.Bytes(), nil
}

var ifcEntityLine = regexp.MustCompile(`^#(\d+)\s*=\s*(IFC[A-Z0-9_]+)\s*\((.*)\)\s*;?\s*$`)

// StubPropertyExtractor parses the simplified IFC-STEP-like text
// encoding used by this platform's fixtures: one entity per line of the
// form `#<label>=IFCWALL('<globalId>','<name>',...)`. It produces one
// ExtractedElement per matching entity line, in input order and with no
// nested sets; a label that appears on several lines yields several
// elements (the orchestrator deduplicates them). Pset/qset construction
// is left to a richer extractor in production.
type StubPropertyExtractor struct{}

func (StubPropertyExtractor) ExtractProperties(ctx context.Context, ifcBytes io.Reader) ([]ExtractedElement, error) {
	scanner := bufio.NewScanner(ifcBytes)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var elements []ExtractedElement
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		m := ifcEntityLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		label, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		fields := splitIfcArgs(m[3])
		el := ExtractedElement{
			EntityLabel: label,
			TypeName:    m[2],
			GlobalID:    stringField(fields, 0),
			Name:        stringField(fields, 1),
			Description: stringField(fields, 2),
		}
		elements = append(elements, el)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ifcprocessing: scan source bytes: %w", err)
	}
	return elements, nil
}

// splitIfcArgs splits a STEP-style argument list on top-level commas,
// respecting single-quoted strings (which may contain escaped quotes).
func splitIfcArgs(s string) []string {
	var args []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && (i == 0 || s[i-1] != '\\'):
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ',' && !inQuote:
			args = append(args, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	args = append(args, cur.String())
	return args
}

// stringField returns the unquoted i'th argument, or "" if absent or
// the IFC null token `$`.
func stringField(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	f := strings.TrimSpace(fields[i])
	if f == "$" || f == "" {
		return ""
	}
	return strings.Trim(f, "'")
}
