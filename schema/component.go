package schema

import (
	"errors"
	"fmt"
)

// ComponentType is the closed set of node kinds in an analysis tree.
type ComponentType string

// Report types describe a scanned project, views types describe portfolios.
const (
	ProjectType     ComponentType = "PROJECT"
	ModuleType      ComponentType = "MODULE"
	DirectoryType   ComponentType = "DIRECTORY"
	FileType        ComponentType = "FILE"
	ViewType        ComponentType = "VIEW"
	SubviewType     ComponentType = "SUBVIEW"
	ProjectViewType ComponentType = "PROJECT_VIEW"
)

// Qualifiers stored alongside persisted components.
var componentQualifiers = map[ComponentType]string{
	ProjectType:     "TRK",
	ModuleType:      "BRC",
	DirectoryType:   "DIR",
	FileType:        "FIL",
	ViewType:        "VW",
	SubviewType:     "SVW",
	ProjectViewType: "TRK",
}

// IsReportType reports whether t belongs to the scanner report hierarchy.
func (t ComponentType) IsReportType() bool {
	switch t {
	case ProjectType, ModuleType, DirectoryType, FileType:
		return true
	default:
		return false
	}
}

// IsViewsType reports whether t belongs to the views hierarchy.
func (t ComponentType) IsViewsType() bool {
	switch t {
	case ViewType, SubviewType, ProjectViewType:
		return true
	default:
		return false
	}
}

// IsLeaf reports whether components of type t never have children.
func (t ComponentType) IsLeaf() bool {
	return t == FileType || t == ProjectViewType
}

// IsRoot reports whether t may be the root of a tree.
func (t ComponentType) IsRoot() bool {
	return t == ProjectType || t == ViewType
}

// Qualifier returns the short code persisted for t.
func (t ComponentType) Qualifier() string {
	return componentQualifiers[t]
}

// Valid reports whether t is a known component type.
func (t ComponentType) Valid() bool {
	return t.IsReportType() || t.IsViewsType()
}

// ReportAttributes holds what only report components carry.
type ReportAttributes struct {
	Ref     int    `json:"ref"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// FileAttributes holds what only FILE components carry.
type FileAttributes struct {
	IsUnitTest bool   `json:"is_unit_test"`
	Language   string `json:"language,omitempty"`
	Lines      int    `json:"lines"`
}

// Component is a node of the analysis tree. It is immutable once the tree holder owns it.
type Component struct {
	Type             ComponentType     `json:"type"`
	UUID             string            `json:"uuid"`
	Key              string            `json:"key"`
	PublicKey        string            `json:"public_key"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	ReportAttributes *ReportAttributes `json:"report_attributes,omitempty"`
	FileAttributes   *FileAttributes   `json:"file_attributes,omitempty"`
	Children         []*Component      `json:"children,omitempty"`
}

// Ref returns the report ref, or 0 for views components.
func (c *Component) Ref() int {
	if c.ReportAttributes == nil {
		return 0
	}
	return c.ReportAttributes.Ref
}

// Path returns the project relative path of directories and files.
func (c *Component) Path() string {
	if c.ReportAttributes == nil {
		return ""
	}
	return c.ReportAttributes.Path
}

// IsUnitTest reports whether c is a unit test file.
func (c *Component) IsUnitTest() bool {
	return c.FileAttributes != nil && c.FileAttributes.IsUnitTest
}

// String implements fmt.Stringer for log lines.
func (c *Component) String() string {
	return fmt.Sprintf("%s(ref=%d, key=%s, uuid=%s)", c.Type, c.Ref(), c.Key, c.UUID)
}

// WalkOrder selects when a node is visited relative to its children.
type WalkOrder int

// Supported traversal orders.
const (
	PreOrder WalkOrder = iota
	PostOrder
)

// ErrStopWalk stops a traversal early without being reported as an error.
var ErrStopWalk = errors.New("stop walk")

// Walk visits every component under root in the given order.
func Walk(root *Component, order WalkOrder, fn func(c *Component) error) error {
	err := walk(root, order, fn)
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

func walk(c *Component, order WalkOrder, fn func(c *Component) error) error {
	if c == nil {
		return nil
	}
	if order == PreOrder {
		if err := fn(c); err != nil {
			return err
		}
	}
	for _, child := range c.Children {
		if err := walk(child, order, fn); err != nil {
			return err
		}
	}
	if order == PostOrder {
		return fn(c)
	}
	return nil
}

// Leaves returns the leaf components under root in tree order.
func Leaves(root *Component) []*Component {
	var leaves []*Component
	_ = Walk(root, PreOrder, func(c *Component) error {
		if c.Type.IsLeaf() {
			leaves = append(leaves, c)
		}
		return nil
	})
	return leaves
}

// FindByKey returns the first component with the given key.
func FindByKey(root *Component, key string) *Component {
	var found *Component
	_ = Walk(root, PreOrder, func(c *Component) error {
		if c.Key == key {
			found = c
			return ErrStopWalk
		}
		return nil
	})
	return found
}

// FindByRef returns the report component with the given ref.
func FindByRef(root *Component, ref int) *Component {
	var found *Component
	_ = Walk(root, PreOrder, func(c *Component) error {
		if c.ReportAttributes != nil && c.ReportAttributes.Ref == ref {
			found = c
			return ErrStopWalk
		}
		return nil
	})
	return found
}

// ValidateTree checks the structural invariants of a fully built tree.
func ValidateTree(root *Component) error {
	if root == nil {
		return errors.New("tree has no root")
	}
	if !root.Type.IsRoot() {
		return fmt.Errorf("root must be PROJECT or VIEW, got %s", root.Type)
	}
	reportTree := root.Type.IsReportType()
	refs := make(map[int]struct{})
	return Walk(root, PreOrder, func(c *Component) error {
		if c != root && c.Type.IsRoot() {
			return fmt.Errorf("component %s cannot be nested under another root", c)
		}
		if c.Type.IsReportType() != reportTree {
			return fmt.Errorf("component %s mixes report and views types", c)
		}
		if c.Type.IsLeaf() && len(c.Children) > 0 {
			return fmt.Errorf("leaf component %s has children", c)
		}
		if reportTree {
			if _, ok := refs[c.Ref()]; ok {
				return fmt.Errorf("duplicate ref %d", c.Ref())
			}
			refs[c.Ref()] = struct{}{}
		}
		return nil
	})
}
