package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/iancoleman/orderedmap"
	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct"
)

type (
	// node is one line of the tree. Children are nil for scalars.
	node struct {
		key      string
		value    any
		children []*node
		expanded bool
	}

	// row is a node placed on screen.
	row struct {
		node  *node
		depth int
	}

	TreeViewer struct {
		title    string
		root     *node
		rows     []row
		cursor   int
		offset   int
		height   int
		quitting bool
	}
)

func buildNode(key string, value any) *node {
	n := &node{key: key, value: value}
	switch v := value.(type) {
	case *orderedmap.OrderedMap:
		n.children = make([]*node, 0, len(v.Keys()))
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			n.children = append(n.children, buildNode(k, item))
		}
	case []any:
		n.children = lo.Map(v, func(item any, i int) *node {
			return buildNode(fmt.Sprintf("[%d]", i), item)
		})
	}
	return n
}

// CreateTreeViewer shows the values of tag with the root expanded.
func CreateTreeViewer(tag *bstruct.Tag) (TreeViewer, error) {
	values, err := tag.Values()
	if err != nil {
		return TreeViewer{}, err
	}
	root := buildNode(tag.Root.Name(), values)
	root.expanded = true
	title := tag.Root.Name()
	if tag.Path != "" {
		title += " (" + tag.Path + ")"
	}
	s := TreeViewer{title: title, root: root, height: 20}
	s.flatten()
	return s, nil
}

func (s *TreeViewer) flatten() {
	s.rows = s.rows[:0]
	var walk func(n *node, depth int)
	walk = func(n *node, depth int) {
		s.rows = append(s.rows, row{node: n, depth: depth})
		if !n.expanded {
			return
		}
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(s.root, 0)
	if s.cursor >= len(s.rows) {
		s.cursor = len(s.rows) - 1
	}
}

func (s *TreeViewer) scroll() {
	lines := s.visibleLines()
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+lines {
		s.offset = s.cursor - lines + 1
	}
}

func (s TreeViewer) visibleLines() int {
	// title, blank line and help line
	return lo.Max([]int{s.height - 3, 1})
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		bs, _ := json.Marshal(x)
		return string(bs)
	}
	return fmt.Sprint(v)
}

func (r row) String() string {
	indent := strings.Repeat("  ", r.depth)
	n := r.node
	if n.children == nil {
		return fmt.Sprintf("%s  %s: %s", indent, n.key, formatValue(n.value))
	}
	marker := "+"
	if n.expanded {
		marker = "-"
	}
	return fmt.Sprintf("%s%s %s (%d)", indent, marker, n.key, len(n.children))
}

func (s TreeViewer) View() string {
	if s.quitting {
		return ""
	}
	output := s.title + "\n\n"
	end := lo.Min([]int{s.offset + s.visibleLines(), len(s.rows)})
	for i := s.offset; i < end; i++ {
		cursor := "  "
		if i == s.cursor {
			cursor = "> "
		}
		output += cursor + s.rows[i].String() + "\n"
	}
	output += "\nj/k move, enter toggle, h collapse, q quit"
	return output
}

func (s TreeViewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			s.quitting = true
			return s, tea.Quit
		case "up", "k":
			s.cursor = lo.Max([]int{s.cursor - 1, 0})
		case "down", "j":
			s.cursor = lo.Min([]int{s.cursor + 1, len(s.rows) - 1})
		case "enter", " ", "right", "l":
			if n := s.rows[s.cursor].node; n.children != nil {
				n.expanded = !n.expanded
				s.flatten()
			}
		case "left", "h":
			s.collapse()
		}
	}
	s.scroll()
	return s, nil
}

// collapse folds the node under the cursor, or its parent when it is
// already folded.
func (s *TreeViewer) collapse() {
	r := s.rows[s.cursor]
	if r.node.children != nil && r.node.expanded {
		r.node.expanded = false
		s.flatten()
		return
	}
	for i := s.cursor - 1; i >= 0; i-- {
		if s.rows[i].depth < r.depth {
			s.rows[i].node.expanded = false
			s.cursor = i
			s.flatten()
			return
		}
	}
}

func (s TreeViewer) Init() tea.Cmd {
	return nil
}
