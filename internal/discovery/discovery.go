// Package discovery carries host facts gathered by a discovery agent as
// facts framesets.
package discovery

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/schema"
	"gopkg.in/yaml.v3"
)

type Facts struct {
	Discovery string
	Host      string
	Collected time.Time
	Values    map[string]string
}

// Keys returns the fact keys in wire order.
func (f Facts) Keys() []string {
	keys := make([]string, 0, len(f.Values))
	for k := range f.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseDocument reads a YAML or JSON document and flattens it into dotted
// keys. Sequence elements are keyed by index.
func ParseDocument(r io.Reader) (map[string]string, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("discovery: parse document: %w", err)
	}
	out := make(map[string]string)
	if err := flatten(&doc, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(n *yaml.Node, prefix string, out map[string]string) error {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			if err := flatten(c, prefix, out); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return fmt.Errorf("discovery: line %d: non-scalar mapping key", k.Line)
			}
			if err := flatten(n.Content[i+1], join(prefix, k.Value), out); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			if err := flatten(c, join(prefix, strconv.Itoa(i)), out); err != nil {
				return err
			}
		}
	case yaml.AliasNode:
		return flatten(n.Alias, prefix, out)
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("discovery: line %d: document is a bare scalar", n.Line)
		}
		if n.ShortTag() == "!!null" {
			out[prefix] = ""
			return nil
		}
		out[prefix] = n.Value
	}
	return nil
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Encode builds a facts frameset. Key/value pairs are written sorted by key.
func Encode(f Facts) (*frameset.Frameset, error) {
	disc, err := frame.NewCstring(f.Discovery)
	if err != nil {
		return nil, fmt.Errorf("discovery name: %w", err)
	}
	host, err := frame.NewCstring(f.Host)
	if err != nil {
		return nil, fmt.Errorf("discovery host: %w", err)
	}
	var ms uint64
	if v := f.Collected.UnixMilli(); v > 0 {
		ms = uint64(v)
	}
	fs := frameset.New(schema.MsgFacts)
	if err := fs.AppendAll(disc, host, frame.NewUint64(ms)); err != nil {
		return nil, err
	}
	for _, k := range f.Keys() {
		kf, err := frame.NewCstring(k)
		if err != nil {
			return nil, fmt.Errorf("fact key %q: %w", k, err)
		}
		vf, err := frame.NewCstring(f.Values[k])
		if err != nil {
			return nil, fmt.Errorf("fact %q value: %w", k, err)
		}
		if err := fs.AppendAll(kf, vf); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// Decode reverses Encode. A key repeated within one frameset is malformed.
func Decode(fs *frameset.Frameset) (Facts, error) {
	if err := schema.Validate(fs); err != nil {
		return Facts{}, err
	}
	frames := fs.Frames()
	disc, err := frame.AsString(frames[0])
	if err != nil {
		return Facts{}, err
	}
	host, err := frame.AsString(frames[1])
	if err != nil {
		return Facts{}, err
	}
	ms, err := frame.AsUint(frames[2])
	if err != nil {
		return Facts{}, err
	}
	if ms > uint64(1<<63-1) {
		return Facts{}, fmt.Errorf("%w: collected time %d out of range", protocol.ErrMalformed, ms)
	}
	f := Facts{
		Discovery: disc,
		Host:      host,
		Collected: time.UnixMilli(int64(ms)).UTC(),
		Values:    make(map[string]string, (len(frames)-3)/2),
	}
	for i := 3; i+1 < len(frames); i += 2 {
		k, err := frame.AsString(frames[i])
		if err != nil {
			return Facts{}, err
		}
		v, err := frame.AsString(frames[i+1])
		if err != nil {
			return Facts{}, err
		}
		if _, dup := f.Values[k]; dup {
			return Facts{}, fmt.Errorf("%w: duplicate fact key %q", protocol.ErrMalformed, k)
		}
		f.Values[k] = v
	}
	return f, nil
}
