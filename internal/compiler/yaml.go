package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/baboon/internal/ir"
)

// stringList decodes either a scalar string or a sequence of strings.
type stringList []string

func (l *stringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*l = []string{}
			return nil
		}
		*l = []string{n.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: list elements must be strings", item.Line)
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: must be a string or a list of strings", n.Line)
	}
}

// topicDoc is the on-disk shape of a topic in YAML or JSON files.
type topicDoc struct {
	Name           string       `yaml:"name"`
	Permission     *stringList  `yaml:"permission"`
	GuardCallbacks []stringList `yaml:"guardCallbacks"`
	FireCallbacks  stringList   `yaml:"fireCallbacks"`
}

// topicFile is the mapping form of a topic file. The sequence form (a bare
// list of topics) is also accepted.
type topicFile struct {
	Topics []topicDoc  `yaml:"topics"`
	Net    *ir.NetSpec `yaml:"net"`
}

// DecodeSpec decodes a YAML or JSON topic file. Unknown fields are
// rejected so typos such as "guardCallback" fail loudly.
//
// Accepted shapes:
//
//	- name: topic1
//	  permission: p1
//
// or
//
//	topics:
//	  - name: topic1
//	    permission: [p1]
//	net: { ... }
func DecodeSpec(data []byte) (*Spec, error) {
	var probe yaml.Node
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(probe.Content) == 0 {
		return &Spec{}, nil
	}

	var file topicFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if probe.Content[0].Kind == yaml.SequenceNode {
		var docs []topicDoc
		if err := dec.Decode(&docs); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		file.Topics = docs
	} else {
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	spec := &Spec{Net: file.Net}
	for i, doc := range file.Topics {
		t, err := doc.toTopic(i)
		if err != nil {
			return nil, err
		}
		spec.Topics = append(spec.Topics, t)
	}
	return spec, nil
}

func (d topicDoc) toTopic(index int) (ir.Topic, error) {
	if d.Name == "" {
		return ir.Topic{}, &CompileError{
			Field:   fmt.Sprintf("topics[%d].name", index),
			Message: "name is required",
		}
	}
	if d.Permission == nil {
		return ir.Topic{}, &CompileError{
			Field:   fmt.Sprintf("topics[%d].permission", index),
			Message: fmt.Sprintf("topic %q: permission is required", d.Name),
		}
	}

	t := ir.Topic{
		Name:          d.Name,
		Permission:    []string(*d.Permission),
		FireCallbacks: []string(d.FireCallbacks),
	}
	if d.GuardCallbacks != nil {
		t.GuardCallbacks = make([][]string, len(d.GuardCallbacks))
		for i, set := range d.GuardCallbacks {
			t.GuardCallbacks[i] = []string(set)
		}
	}
	return ir.NormalizeTopic(t), nil
}
