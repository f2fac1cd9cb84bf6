package nsapi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Node is a generic XML element as returned by the API and the dumps.
// Every record is decoded into a Node first and converted into a typed
// model afterwards.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []Node     `xml:",any"`
}

// NewDecoder returns an xml decoder that understands the legacy charsets
// the game declares on some responses.
func NewDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

// ParseNode decodes a whole document into its root Node.
func ParseNode(r io.Reader) (Node, error) {
	var root Node
	err := NewDecoder(r).Decode(&root)
	if err != nil {
		return Node{}, err
	}
	return root, nil
}

func ParseNodeBytes(body []byte) (Node, error) {
	return ParseNode(bytes.NewReader(body))
}

func (n Node) Tag() string {
	return n.XMLName.Local
}

func (n Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n Node) AttrOr(name, fallback string) string {
	v, ok := n.Attr(name)
	if !ok {
		return fallback
	}
	return v
}

// First returns the first child with the given tag.
func (n Node) First(tag string) (Node, bool) {
	for _, c := range n.Children {
		if c.XMLName.Local == tag {
			return c, true
		}
	}
	return Node{}, false
}

// All returns every child with the given tag, in document order.
func (n Node) All(tag string) []Node {
	var out []Node
	for _, c := range n.Children {
		if c.XMLName.Local == tag {
			out = append(out, c)
		}
	}
	return out
}

func (n Node) Has(tag string) bool {
	_, ok := n.First(tag)
	return ok
}

// Simple returns the text of the first child with the given tag, or the
// empty string when there is no such child.
func (n Node) Simple(tag string) string {
	c, ok := n.First(tag)
	if !ok {
		return ""
	}
	return c.Text
}

// Texts returns the text of every direct child.
func (n Node) Texts() []string {
	out := make([]string, len(n.Children))
	for i, c := range n.Children {
		out[i] = c.Text
	}
	return out
}

// ParseError reports a field of a record that could not be converted.
type ParseError struct {
	Record string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s.%s (%q): %s", e.Record, e.Field, e.Value, e.Err.Error())
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// fields reads typed values out of a node, remembering the first failure
// so converters can read every field and check once at the end.
type fields struct {
	node   Node
	record string
	err    error
}

func newFields(n Node) *fields {
	return &fields{node: n, record: n.Tag()}
}

func (f *fields) fail(field, value string, err error) {
	if f.err != nil {
		return
	}
	f.err = &ParseError{Record: f.record, Field: field, Value: value, Err: err}
}

func (f *fields) str(tag string) string {
	return f.node.Simple(tag)
}

func (f *fields) int(tag string) int {
	raw := strings.TrimSpace(f.node.Simple(tag))
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		f.fail(tag, raw, err)
		return 0
	}
	return v
}

func (f *fields) int64(tag string) int64 {
	raw := strings.TrimSpace(f.node.Simple(tag))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f.fail(tag, raw, err)
		return 0
	}
	return v
}

// optInt64 returns nil for a missing or empty field.
func (f *fields) optInt64(tag string) *int64 {
	raw := strings.TrimSpace(f.node.Simple(tag))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f.fail(tag, raw, err)
		return nil
	}
	return &v
}

func (f *fields) float(tag string) float64 {
	raw := strings.TrimSpace(f.node.Simple(tag))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		f.fail(tag, raw, err)
		return 0
	}
	return v
}

func (f *fields) attrInt(name string) int {
	raw, ok := f.node.Attr(name)
	if !ok || raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		f.fail("@"+name, raw, err)
		return 0
	}
	return v
}

func (f *fields) child(tag string) Node {
	c, _ := f.node.First(tag)
	return c
}
