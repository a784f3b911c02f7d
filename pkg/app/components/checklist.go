package components

import (
	"strings"

	"github.com/kerbaras/skypack/pkg/app/styles"
	"github.com/kerbaras/skypack/pkg/config"
)

type ChecklistItem struct {
	Label   string
	Checked bool
}

// Checklist is a cursor over boolean options.
type Checklist struct {
	Items         []ChecklistItem
	SelectedIndex int
}

func NewChecklist(items ...ChecklistItem) *Checklist {
	return &Checklist{Items: items}
}

// Toggle labels, in form order.
const (
	LabelArchive = "Create Zip Archive"
	LabelLog     = "Create Output Log"
	LabelVerbose = "Verbose Log (Debug)"
)

// NewToggleChecklist builds the run options form from t.
func NewToggleChecklist(t config.Toggles) *Checklist {
	return NewChecklist(
		ChecklistItem{Label: LabelArchive, Checked: t.CreateArchive},
		ChecklistItem{Label: LabelLog, Checked: t.CreateLog},
		ChecklistItem{Label: LabelVerbose, Checked: t.VerboseLog},
	)
}

// Toggles reads the form back. It expects the layout of NewToggleChecklist.
func (c *Checklist) Toggles() config.Toggles {
	get := func(label string) bool {
		for _, item := range c.Items {
			if item.Label == label {
				return item.Checked
			}
		}
		return false
	}
	return config.Toggles{
		CreateArchive: get(LabelArchive),
		CreateLog:     get(LabelLog),
		VerboseLog:    get(LabelVerbose),
	}
}

func (c *Checklist) Next() {
	if len(c.Items) == 0 {
		return
	}
	c.SelectedIndex++
	if c.SelectedIndex >= len(c.Items) {
		c.SelectedIndex = 0
	}
}

func (c *Checklist) Prev() {
	if len(c.Items) == 0 {
		return
	}
	c.SelectedIndex--
	if c.SelectedIndex < 0 {
		c.SelectedIndex = len(c.Items) - 1
	}
}

// Toggle flips the item under the cursor.
func (c *Checklist) Toggle() {
	if len(c.Items) == 0 {
		return
	}
	c.Items[c.SelectedIndex].Checked = !c.Items[c.SelectedIndex].Checked
}

func (c *Checklist) View() string {
	var b strings.Builder
	for i, item := range c.Items {
		box := "[ ] "
		if item.Checked {
			box = "[x] "
		}
		line := box + item.Label
		if i == c.SelectedIndex {
			b.WriteString(styles.SelectedStyle.Render("> " + line))
		} else {
			b.WriteString(styles.TextStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
