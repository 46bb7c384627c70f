package depot

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

var _ Reader = &Document{}

var nullNode = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}

// Document is a Reader over a parsed YAML (or JSON) tree. It keeps a cursor
// stack; Enter pushes the named child and the returned func pops it.
type Document struct {
	stack []*yaml.Node
}

// NewDocument parses data. An empty input reads as null.
func NewDocument(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	node := &root
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			node = nullNode
		} else {
			node = root.Content[0]
		}
	}
	if node.Kind == 0 {
		node = nullNode
	}
	return &Document{stack: []*yaml.Node{node}}, nil
}

func (d *Document) current() *yaml.Node {
	n := d.stack[len(d.stack)-1]
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func (d *Document) push(n *yaml.Node) func() {
	d.stack = append(d.stack, n)
	depth := len(d.stack)
	return func() {
		d.stack = d.stack[:depth-1]
	}
}

func (d *Document) IsNull() bool {
	n := d.current()
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func (d *Document) IsObject() bool { return d.current().Kind == yaml.MappingNode }

func (d *Document) IsArray() bool { return d.current().Kind == yaml.SequenceNode }

func (d *Document) IsString() bool { return d.scalarTag() == "!!str" }

func (d *Document) IsNumber() bool {
	tag := d.scalarTag()
	return tag == "!!int" || tag == "!!float"
}

func (d *Document) IsBool() bool { return d.scalarTag() == "!!bool" }

func (d *Document) scalarTag() string {
	n := d.current()
	if n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.ShortTag()
}

// Size is the number of elements of an object or array, zero otherwise.
func (d *Document) Size() int {
	n := d.current()
	switch n.Kind {
	case yaml.MappingNode:
		return len(n.Content) / 2
	case yaml.SequenceNode:
		return len(n.Content)
	}
	return 0
}

func (d *Document) Enter(key string) func() {
	n := d.current()
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				return d.push(n.Content[i+1])
			}
		}
	}
	return d.push(nullNode)
}

func (d *Document) EnterIndex(index int) func() {
	n := d.current()
	if n.Kind == yaml.SequenceNode && index >= 0 && index < len(n.Content) {
		return d.push(n.Content[index])
	}
	return d.push(nullNode)
}

func (d *Document) ForEachInObject(fn func(key string) bool) bool {
	n := d.current()
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		exit := d.push(n.Content[i+1])
		stop := fn(n.Content[i].Value)
		exit()
		if stop {
			return true
		}
	}
	return false
}

func (d *Document) ForEachInArray(fn func(index int) bool) bool {
	n := d.current()
	if n.Kind != yaml.SequenceNode {
		return false
	}
	for i, child := range n.Content {
		exit := d.push(child)
		stop := fn(i)
		exit()
		if stop {
			return true
		}
	}
	return false
}

func (d *Document) ReadString(fallback string) string {
	if !d.IsString() {
		return fallback
	}
	return d.current().Value
}

func (d *Document) ReadInt(fallback int64) int64 {
	var v int64
	if !d.IsNumber() || d.current().Decode(&v) != nil {
		return fallback
	}
	return v
}

func (d *Document) ReadFloat(fallback float64) float64 {
	var v float64
	if !d.IsNumber() || d.current().Decode(&v) != nil {
		return fallback
	}
	return v
}

func (d *Document) ReadBool(fallback bool) bool {
	var v bool
	if !d.IsBool() || d.current().Decode(&v) != nil {
		return fallback
	}
	return v
}

// Decode fills out from the current element. Fields absent from the element
// keep their values; a null element leaves out untouched.
func (d *Document) Decode(out any) error {
	if d.IsNull() {
		return nil
	}
	return d.current().Decode(out)
}
