package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/thanhnguyen2187/bindef/bstruct"
)

func Start(tag *bstruct.Tag) error {
	viewer, err := CreateTreeViewer(tag)
	if err != nil {
		return err
	}
	if err := tea.NewProgram(&viewer).Start(); err != nil {
		return err
	}
	return nil
}
