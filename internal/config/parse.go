// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrParse is the sentinel error wrapped by ParseError.
var ErrParse = errors.New("config parse error")

// ParseError reports a layer that could not be parsed into a Value.
// Layer identifies the failing document (file path or layer name); Line and
// Column point at the offending node when the decoder provides them.
type ParseError struct {
	Layer  string
	Line   int
	Column int
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d:%d: %v", e.Layer, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Layer, e.Err)
}

// Unwrap returns ErrParse so callers can use errors.Is for detection.
func (e *ParseError) Unwrap() error { return ErrParse }

// ParseYAML parses one configuration layer into a Value. The layer name is
// carried into any ParseError for diagnostics.
func ParseYAML(layer string, data []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Null(), &ParseError{Layer: layer, Err: err}
	}
	// An empty document decodes to a zero node; treat it as null.
	if root.Kind == 0 || len(root.Content) == 0 {
		return Null(), nil
	}
	v, err := fromNode(layer, root.Content[0])
	if err != nil {
		return Null(), err
	}
	return v, nil
}

func fromNode(layer string, n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return fromScalar(layer, n)
	case yaml.SequenceNode:
		elems := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			e, err := fromNode(layer, c)
			if err != nil {
				return Null(), err
			}
			elems = append(elems, e)
		}
		return Array(elems...), nil
	case yaml.MappingNode:
		fields := make(map[string]Value, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return Null(), &ParseError{
					Layer: layer, Line: key.Line, Column: key.Column,
					Err: fmt.Errorf("non-scalar mapping key"),
				}
			}
			f, err := fromNode(layer, n.Content[i+1])
			if err != nil {
				return Null(), err
			}
			fields[key.Value] = f
		}
		return Object(fields), nil
	case yaml.AliasNode:
		return fromNode(layer, n.Alias)
	default:
		return Null(), &ParseError{
			Layer: layer, Line: n.Line, Column: n.Column,
			Err: fmt.Errorf("unsupported node kind %d", n.Kind),
		}
	}
}

func fromScalar(layer string, n *yaml.Node) (Value, error) {
	switch n.Tag {
	case "!!null", "":
		if n.Tag == "" && n.Value != "" {
			return String(n.Value), nil
		}
		return Null(), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return Null(), &ParseError{Layer: layer, Line: n.Line, Column: n.Column, Err: err}
		}
		return Bool(b), nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return Null(), &ParseError{Layer: layer, Line: n.Line, Column: n.Column, Err: err}
		}
		return Number(f), nil
	case "!!str":
		return String(n.Value), nil
	default:
		return Null(), &ParseError{
			Layer: layer, Line: n.Line, Column: n.Column,
			Err: fmt.Errorf("unsupported scalar tag %s", n.Tag),
		}
	}
}
