// Package ui renders command output: styled headers, plan listings,
// tables and markdown reports.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/satishbabariya/godal/migrate/plan"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SecondaryColor = lipgloss.Color("#6C757D")

	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	addColor     = color.New(color.FgGreen)
	dropColor    = color.New(color.FgRed, color.Bold)
	changeColor  = color.New(color.FgCyan)
	pendingColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// Printer writes command output to one writer.
type Printer struct {
	w io.Writer
}

// New returns a printer writing to w.
func New(w io.Writer) *Printer { return &Printer{w: w} }

// Header prints a boxed title.
func (p *Printer) Header(title, subtitle string) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			TitleStyle.Render(title),
			SecondaryStyle.Render(subtitle),
		))
	fmt.Fprintln(p.w, box)
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, addColor.Sprint("✓ "+fmt.Sprintf(format, args...)))
}

// Warn prints a warning.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, pendingColor.Sprint("⚠ "+fmt.Sprintf(format, args...)))
}

// Error prints an error message.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, errorColor.Sprint("✗ "+fmt.Sprintf(format, args...)))
}

// Info prints a plain message.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Plan lists the scheduled and pending steps of pl, with their SQL when
// showSQL is set.
func (p *Printer) Plan(pl *plan.Plan, showSQL bool) {
	if pl.Empty() {
		p.Success("schema is up to date")
		return
	}
	for _, step := range pl.Steps {
		fmt.Fprintln(p.w, StepColor(step.Op).Sprint(Symbol(step.Op)+" "+step.String()))
		if showSQL {
			for _, stmt := range step.SQL {
				fmt.Fprintln(p.w, SecondaryStyle.Render("    "+stmt+";"))
			}
		}
	}
	for _, step := range pl.Pending {
		fmt.Fprintln(p.w, pendingColor.Sprint("! "+step.String()+" (pending: destructive)"))
	}
	for _, w := range pl.Warnings {
		p.Warn("%s", w)
	}
}

// Symbol marks a step as an addition, a change or a removal.
func Symbol(op plan.Op) string {
	switch op.(type) {
	case plan.CreateTable, plan.AddColumn, plan.AddIndex, plan.AddConstraint:
		return "+"
	case plan.DropTable, plan.DropColumn, plan.DropIndex, plan.DropConstraint:
		return "-"
	}
	return "~"
}

// StepColor returns the color a step is printed in.
func StepColor(op plan.Op) *color.Color {
	switch Symbol(op) {
	case "+":
		return addColor
	case "-":
		return dropColor
	}
	return changeColor
}

// Table prints rows under headers.
func (p *Printer) Table(headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.w, out)
	return nil
}

// Markdown renders a markdown document for the terminal.
func (p *Printer) Markdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(content)
	if err != nil {
		return err
	}
	fmt.Fprint(p.w, out)
	return nil
}

// PlanReport describes a plan as a markdown document.
func PlanReport(dialect string, pl *plan.Plan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Migration plan (%s)\n\n", dialect)
	if pl.Empty() {
		sb.WriteString("The schema is up to date.\n")
		return sb.String()
	}
	if len(pl.Steps) > 0 {
		sb.WriteString("## Steps\n\n")
		for i, step := range pl.Steps {
			fmt.Fprintf(&sb, "%d. `%s`", i+1, step.String())
			if step.NonTransactional {
				sb.WriteString(" *(not transactional)*")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n```sql\n")
		for _, stmt := range pl.SQL() {
			sb.WriteString(stmt + ";\n")
		}
		sb.WriteString("```\n\n")
	}
	if len(pl.Pending) > 0 {
		sb.WriteString("## Pending destructive changes\n\n")
		for _, step := range pl.Pending {
			fmt.Fprintf(&sb, "- `%s`\n", step.String())
		}
		sb.WriteString("\n")
	}
	if len(pl.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range pl.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}
	return sb.String()
}

// Confirm asks a yes/no question on the terminal.
func Confirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}

// Ask prompts for a line of text.
func Ask(message, def string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &answer, survey.WithValidator(survey.Required))
	return answer, err
}

// Choose prompts for one of options.
func Choose(message string, options []string, def string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Select{Message: message, Options: options, Default: def}, &answer)
	return answer, err
}
