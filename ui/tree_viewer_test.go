package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/thanhnguyen2187/bindef/bstruct"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
)

type TreeViewerTestSuite struct {
	Viewer TreeViewer
	R      *require.Assertions
	suite.Suite
}

func (suite *TreeViewerTestSuite) SetupTest() {
	suite.R = suite.Require()
	desc := bdesc.MustSanitize(bdesc.Container("save",
		bdesc.Struct("header", bdesc.UInt8("count"), bdesc.UInt8("flags")),
		bdesc.StrAscii("name", bdesc.Size(4)),
	), bdesc.Options{})
	tag, err := bstruct.ParseBytes(desc, []byte{2, 0, 'h', 'e', 'r', 'o'})
	suite.R.NoError(err)
	suite.Viewer, err = CreateTreeViewer(tag)
	suite.R.NoError(err)
}

func (suite *TreeViewerTestSuite) press(key string) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	model, _ := suite.Viewer.Update(msg)
	suite.Viewer = model.(TreeViewer)
}

func (suite *TreeViewerTestSuite) TestInitialView() {
	view := suite.Viewer.View()
	suite.R.Contains(view, "> - save (2)")
	suite.R.Contains(view, "+ header (2)")
	suite.R.Contains(view, `name: "hero"`)
	suite.R.NotContains(view, "count")
}

func (suite *TreeViewerTestSuite) TestExpandAndCollapse() {
	suite.press("j")
	suite.press("enter")
	view := suite.Viewer.View()
	suite.R.Contains(view, ">   - header (2)")
	suite.R.Contains(view, "count: 2")

	suite.press("j")
	suite.press("h")
	view = suite.Viewer.View()
	suite.R.Contains(view, ">   + header (2)")
	suite.R.NotContains(view, "count")
}

func (suite *TreeViewerTestSuite) TestQuit() {
	model, cmd := suite.Viewer.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	suite.R.NotNil(cmd)
	suite.R.Empty(model.View())
}

func (suite *TreeViewerTestSuite) TestScroll() {
	model, _ := suite.Viewer.Update(tea.WindowSizeMsg{Width: 80, Height: 4})
	suite.Viewer = model.(TreeViewer)
	suite.press("j")
	suite.press("j")
	view := suite.Viewer.View()
	suite.R.Contains(view, `>     name: "hero"`)
	suite.R.NotContains(view, "header (2)")
}

func TestTreeViewerTestSuite(t *testing.T) {
	suite.Run(t, new(TreeViewerTestSuite))
}
