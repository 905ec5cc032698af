// Package confignode holds generic config trees decoded from YAML, JSON or
// TOML and resolves typed values out of them by JSON pointer.
package confignode

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound       = errors.New("path not found")
	ErrInvalidPointer = errors.New("invalid pointer")
)

// QueryError reports a failed lookup or decode at Path.
type QueryError struct {
	Path string
	Type string
	Err  error
}

func (e *QueryError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("config query %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config query %q as %s: %v", e.Path, e.Type, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Format is a config serialization format.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	TOML Format = "toml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(p string) (Format, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".yml", ".yaml":
		return YAML, nil
	case ".json":
		return JSON, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("no config format for %q", p)
}

// Node is an immutable config tree.
type Node struct {
	root *yaml.Node
}

// Parse decodes data in the given format. JSON goes through the YAML
// decoder, which accepts it as a subset.
func Parse(data []byte, format Format) (Node, error) {
	switch format {
	case YAML, JSON:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Node{}, fmt.Errorf("parse %s: %w", format, err)
		}
		if len(doc.Content) == 0 {
			return Node{root: &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}}, nil
		}
		return Node{root: doc.Content[0]}, nil
	case TOML:
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return Node{}, fmt.Errorf("parse toml: %w", err)
		}
		return FromValue(m)
	}
	return Node{}, fmt.Errorf("unknown config format %q", format)
}

// FromValue builds a node from any value yaml can encode.
func FromValue(v any) (Node, error) {
	var root yaml.Node
	if err := root.Encode(v); err != nil {
		return Node{}, fmt.Errorf("encode config value: %w", err)
	}
	return Node{root: &root}, nil
}

// QueryRaw resolves an RFC 6901 pointer. "" is the whole document.
func (n Node) QueryRaw(pointer string) (*yaml.Node, error) {
	cur := n.root
	if cur == nil {
		return nil, &QueryError{Path: pointer, Err: ErrNotFound}
	}
	if pointer == "" {
		return cur, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, &QueryError{Path: pointer, Err: ErrInvalidPointer}
	}
	for _, tok := range strings.Split(pointer[1:], "/") {
		tok = strings.NewReplacer("~1", "/", "~0", "~").Replace(tok)
		for cur.Kind == yaml.AliasNode {
			cur = cur.Alias
		}
		next := child(cur, tok)
		if next == nil {
			return nil, &QueryError{Path: pointer, Err: ErrNotFound}
		}
		cur = next
	}
	for cur.Kind == yaml.AliasNode {
		cur = cur.Alias
	}
	return cur, nil
}

func child(n *yaml.Node, tok string) *yaml.Node {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == tok {
				return n.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		if tok != "0" && strings.HasPrefix(tok, "0") {
			return nil
		}
		i, err := strconv.Atoi(tok)
		if err != nil || i < 0 || i >= len(n.Content) {
			return nil
		}
		return n.Content[i]
	}
	return nil
}

// Has reports whether pointer resolves.
func (n Node) Has(pointer string) bool {
	_, err := n.QueryRaw(pointer)
	return err == nil
}

// Query resolves pointer and decodes the subtree into a T.
func Query[T any](n Node, pointer string) (T, error) {
	var out T
	raw, err := n.QueryRaw(pointer)
	if err != nil {
		return out, err
	}
	if err := raw.Decode(&out); err != nil {
		return out, &QueryError{Path: pointer, Type: reflect.TypeFor[T]().String(), Err: err}
	}
	return out, nil
}
