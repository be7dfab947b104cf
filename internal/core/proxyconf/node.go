// Package proxyconf models a hierarchical reverse proxy configuration
// (directives, nested blocks and comments) and serializes it to nginx syntax.
package proxyconf

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidNode is returned when a node cannot be placed in the tree.
var ErrInvalidNode = errors.New("invalid node")

// Node is one of *Directive, *Block or *Comment.
type Node interface {
	node()
}

// Directive is a single `key value;` line.
type Directive struct {
	Key   string
	Value string
}

// Block is a named, ordered collection of child nodes. A Block with an empty
// name is a document and only appears at the top of a tree.
type Block struct {
	Name     string
	Children []Node
}

// Comment is a `# text` line. Multi-line text renders one comment per line.
type Comment struct {
	Text string
}

func (*Directive) node() {}
func (*Block) node()     {}
func (*Comment) node()   {}

// NewDocument returns an empty top-level document.
func NewDocument() *Block {
	return &Block{}
}

// NewDirective returns a directive node.
func NewDirective(key, value string) *Directive {
	return &Directive{Key: key, Value: value}
}

// NewBlock returns an empty named block.
func NewBlock(name string) *Block {
	return &Block{Name: name}
}

// NewComment returns a comment node.
func NewComment(text string) *Comment {
	return &Comment{Text: text}
}

// Add appends child to parent. Parent must be a block, and child must be a
// well-formed node: directives need a key, nested blocks need a name.
func Add(parent, child Node) error {
	block, ok := parent.(*Block)
	if !ok || block == nil {
		return fmt.Errorf("%w: parent %T is not a block", ErrInvalidNode, parent)
	}
	if err := validate(child); err != nil {
		return err
	}
	block.Children = append(block.Children, child)
	return nil
}

// Add appends child to b. See the package-level Add.
func (b *Block) Add(child Node) error {
	return Add(b, child)
}

// CheckKey reports whether key can be serialized as a directive key.
func CheckKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, " \t\r\n;{}#") {
		return fmt.Errorf("%w: directive key %q", ErrInvalidNode, key)
	}
	return nil
}

// CheckValue reports whether value fits on a single directive line.
func CheckValue(value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: directive value %q", ErrInvalidNode, value)
	}
	return nil
}

// CheckBlockName reports whether name can open a nested block.
func CheckBlockName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: nested block must be named", ErrInvalidNode)
	}
	if strings.ContainsAny(name, "\r\n;{}") {
		return fmt.Errorf("%w: block name %q", ErrInvalidNode, name)
	}
	return nil
}

func validate(n Node) error {
	switch v := n.(type) {
	case *Directive:
		if v == nil {
			break
		}
		if err := CheckKey(v.Key); err != nil {
			return err
		}
		if err := CheckValue(v.Value); err != nil {
			return fmt.Errorf("directive %s: %w", v.Key, err)
		}
		return nil
	case *Block:
		if v == nil {
			break
		}
		return CheckBlockName(v.Name)
	case *Comment:
		if v == nil {
			break
		}
		return nil
	}
	return fmt.Errorf("%w: %T", ErrInvalidNode, n)
}
