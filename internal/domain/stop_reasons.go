package domain

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// StopReasonsConfigKey is the config document holding the hierarchy
const StopReasonsConfigKey = "stop_reasons"

// MaxStopReasonDepth bounds how deep categories may nest
const MaxStopReasonDepth = 4

// StopReasonNode is one label in the stop reason tree
type StopReasonNode struct {
	Label    string           `bson:"label" json:"label" yaml:"label"`
	Children []StopReasonNode `bson:"children,omitempty" json:"children,omitempty" yaml:"children,omitempty"`
}

// StopReasonHierarchy is the full category tree, replaced as a whole on edit
type StopReasonHierarchy []StopReasonNode

//go:embed stop_reasons_default.yaml
var defaultStopReasonsYAML []byte

// DefaultStopReasons returns the built-in tree used until an admin saves one
func DefaultStopReasons() StopReasonHierarchy {
	var h StopReasonHierarchy
	if err := yaml.Unmarshal(defaultStopReasonsYAML, &h); err != nil {
		panic(fmt.Sprintf("embedded stop reasons are invalid: %v", err))
	}
	return h
}

// Validate checks labels are non-empty, unique among siblings, and the tree
// is at most MaxStopReasonDepth deep
func (h StopReasonHierarchy) Validate() error {
	return validateLevel(h, 1, "")
}

func validateLevel(nodes []StopReasonNode, depth int, path string) error {
	if depth > MaxStopReasonDepth {
		return fmt.Errorf("%w: %q nests deeper than %d levels", ErrInvalidStopReasons, path, MaxStopReasonDepth)
	}

	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		label := strings.TrimSpace(n.Label)
		if label == "" {
			return fmt.Errorf("%w: empty label under %q", ErrInvalidStopReasons, path)
		}
		key := strings.ToLower(label)
		if seen[key] {
			return fmt.Errorf("%w: duplicate label %q under %q", ErrInvalidStopReasons, label, path)
		}
		seen[key] = true

		if err := validateLevel(n.Children, depth+1, joinPath(path, label)); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(parent, label string) string {
	if parent == "" {
		return label
	}
	return parent + " > " + label
}

// Flatten lists every selectable label as "Category > Sub". Only leaves are
// selectable; a category without children is a leaf itself.
func (h StopReasonHierarchy) Flatten() []string {
	var out []string
	var walk func(nodes []StopReasonNode, path string)
	walk = func(nodes []StopReasonNode, path string) {
		for _, n := range nodes {
			p := joinPath(path, strings.TrimSpace(n.Label))
			if len(n.Children) == 0 {
				out = append(out, p)
				continue
			}
			walk(n.Children, p)
		}
	}
	walk(h, "")
	return out
}
