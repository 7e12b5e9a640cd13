// Package tui - терминальный интерфейс taskflow поверх TaskListController
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/St1cky1/taskflow/internal/usecase"
)

const (
	noteTimeout = 4 * time.Second
	barWidth    = 30
)

type focus int

const (
	focusList focus = iota
	focusTitle
	focusDescription
	focusPriority
)

type Model struct {
	controller *usecase.TaskListController
	notes      <-chan usecase.Notification

	focus       focus
	title       string
	description string
	priority    entity.Priority

	cursor       int
	confirmClear bool

	note    *usecase.Notification
	noteSeq int

	width  int
	height int
}

// loadedMsg - Load завершился, состояние читается из контроллера
type loadedMsg struct{ err error }

// opDoneMsg - операция над задачей завершилась
type opDoneMsg struct{ err error }

type notificationMsg usecase.Notification

type clearNoteMsg struct{ seq int }

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeSectionStyle = sectionStyle.
				BorderForeground(lipgloss.Color("62"))

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))

	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))

	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))

	priorityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	priorityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	priorityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// New - notes должен быть каналом, в который пишет Notifier контроллера
func New(controller *usecase.TaskListController, notes <-chan usecase.Notification) Model {
	return Model{
		controller: controller,
		notes:      notes,
		focus:      focusList,
		priority:   entity.PriorityMedium,
	}
}

// ChannelNotifier - Notifier, который не блокирует контроллер при переполнении буфера
func ChannelNotifier(ch chan<- usecase.Notification) usecase.Notifier {
	return usecase.NotifierFunc(func(n usecase.Notification) {
		select {
		case ch <- n:
		default:
		}
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForNote())
}

func (m Model) load() tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		return loadedMsg{err: controller.Load(context.Background())}
	}
}

func (m Model) waitForNote() tea.Cmd {
	if m.notes == nil {
		return nil
	}
	notes := m.notes
	return func() tea.Msg {
		n, ok := <-notes
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

func (m Model) run(op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: op(context.Background())}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg, opDoneMsg:
		m.clampCursor()
		return m, nil

	case notificationMsg:
		n := usecase.Notification(msg)
		m.note = &n
		m.noteSeq++
		seq := m.noteSeq
		return m, tea.Batch(
			m.waitForNote(),
			tea.Tick(noteTimeout, func(time.Time) tea.Msg { return clearNoteMsg{seq: seq} }),
		)

	case clearNoteMsg:
		if msg.seq == m.noteSeq {
			m.note = nil
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.focus != focusList {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmClear {
		m.confirmClear = false
		if msg.String() == "y" {
			return m, m.run(func(ctx context.Context) error {
				_, err := m.controller.ClearCompleted(ctx)
				return err
			})
		}
		return m, nil
	}

	visible := m.visibleTasks()

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
	case "n", "a", "i":
		m.focus = focusTitle
	case "tab", "f":
		m.cycleFilter(1)
	case "shift+tab", "F":
		m.cycleFilter(-1)
	case "1", "2", "3":
		m.controller.SetFilter(entity.Filters[int(msg.String()[0]-'1')])
		m.cursor = 0
	case "r":
		return m, m.load()
	case "c":
		if m.controller.Counts().Completed > 0 {
			m.confirmClear = true
		}
	case " ", "enter", "x":
		if len(visible) > 0 {
			id := visible[m.cursor].ID
			return m, m.run(func(ctx context.Context) error {
				return m.controller.ToggleComplete(ctx, id)
			})
		}
	case "d", "delete":
		if len(visible) > 0 {
			id := visible[m.cursor].ID
			return m, m.run(func(ctx context.Context) error {
				return m.controller.DeleteTask(ctx, id)
			})
		}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.focus = focusList
		return m, nil
	case tea.KeyTab:
		m.focus = m.focus%focusPriority + 1
		return m, nil
	case tea.KeyShiftTab:
		m.focus--
		if m.focus == focusList {
			m.focus = focusPriority
		}
		return m, nil
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyBackspace:
		m.editField(func(s string) string {
			r := []rune(s)
			if len(r) == 0 {
				return s
			}
			return string(r[:len(r)-1])
		})
		return m, nil
	case tea.KeyLeft, tea.KeyRight:
		if m.focus == focusPriority {
			m.priority = m.priority.Next()
		}
		return m, nil
	case tea.KeySpace:
		if m.focus == focusPriority {
			m.priority = m.priority.Next()
			return m, nil
		}
		m.editField(func(s string) string { return s + " " })
		return m, nil
	case tea.KeyRunes:
		m.editField(func(s string) string { return s + string(msg.Runes) })
		return m, nil
	}
	return m, nil
}

func (m *Model) editField(edit func(string) string) {
	switch m.focus {
	case focusTitle:
		m.title = edit(m.title)
	case focusDescription:
		m.description = edit(m.description)
	}
}

// submit - пустой заголовок не отправляется в хранилище
func (m Model) submit() (tea.Model, tea.Cmd) {
	if strings.TrimSpace(m.title) == "" {
		n := usecase.Notification{Level: usecase.LevelError, Message: "Please enter a task title"}
		return m, func() tea.Msg { return notificationMsg(n) }
	}

	req := &entity.CreateTaskRequest{
		Title:       strings.TrimSpace(m.title),
		Description: strings.TrimSpace(m.description),
		Priority:    string(m.priority),
	}
	m.title = ""
	m.description = ""
	m.priority = entity.PriorityMedium
	m.focus = focusList
	m.cursor = 0

	return m, m.run(func(ctx context.Context) error {
		_, err := m.controller.AddTask(ctx, req)
		return err
	})
}

func (m *Model) cycleFilter(step int) {
	i := slices.Index(entity.Filters, m.controller.Filter())
	n := len(entity.Filters)
	m.controller.SetFilter(entity.Filters[((i+step)%n+n)%n])
	m.cursor = 0
}

func (m *Model) clampCursor() {
	if n := len(m.visibleTasks()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m Model) visibleTasks() []entity.Task {
	return slices.Collect(m.controller.FilteredTasks())
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" ✓ TaskFlow "))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render("Organize your day, one task at a time"))
	b.WriteString("\n\n")

	if m.controller.Loading() {
		b.WriteString("  Loading tasks...\n")
		return b.String()
	}

	if err := m.controller.LastError(); err != nil {
		b.WriteString(errorStyle.Render("  Oops!"))
		b.WriteString("\n  " + err.Error() + "\n\n")
		b.WriteString(helpStyle.Render("  r: try again | q: quit"))
		return b.String()
	}

	b.WriteString(m.renderForm())
	b.WriteString("\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderForm() string {
	field := func(f focus, label, value, placeholder string) string {
		marker := "  "
		if m.focus == f {
			marker = cursorStyle.Render("> ")
			value += "█"
		}
		if value == "" {
			value = dimStyle.Render(placeholder)
		}
		return fmt.Sprintf("%s%-12s %s", marker, label, value)
	}

	lines := []string{
		headerStyle.Render("New task"),
		field(focusTitle, "Title", m.title, "What needs to be done?"),
		field(focusDescription, "Description", m.description, "Add more details..."),
		field(focusPriority, "Priority", priorityBadge(m.priority), ""),
	}

	style := sectionStyle
	if m.focus != focusList {
		style = activeSectionStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStats() string {
	counts := m.controller.Counts()
	pct := counts.CompletionPercentage()

	filled := barWidth * pct / 100
	bar := barStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", barWidth-filled))

	lines := []string{
		headerStyle.Render("Your Progress") + fmt.Sprintf("  %d%%", pct),
		fmt.Sprintf("%d of %d tasks completed", counts.Completed, counts.All),
		bar,
		fmt.Sprintf("Total %d   Active %d   Done %d", counts.All, counts.Active, counts.Completed),
	}
	if m.confirmClear {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Clear %d completed tasks? (y/n)", counts.Completed)))
	} else if counts.Completed > 0 {
		lines = append(lines, dimStyle.Render("c: clear completed tasks"))
	}
	return sectionStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderTabs() string {
	counts := m.controller.Counts()
	current := m.controller.Filter()

	tabs := make([]string, 0, len(entity.Filters))
	for _, f := range entity.Filters {
		label := fmt.Sprintf("%s (%d)", filterLabel(f), counts.Of(f))
		if f == current {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderList() string {
	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		title, message := emptyState(m.controller.Filter())
		return "  " + headerStyle.Render(title) + "\n  " + dimStyle.Render(message) + "\n"
	}

	var b strings.Builder
	for i, task := range tasks {
		marker := "  "
		if i == m.cursor && m.focus == focusList {
			marker = cursorStyle.Render("> ")
		}

		check := "[ ]"
		title := task.Title
		if task.Completed {
			check = successStyle.Render("[✓]")
			title = doneStyle.Render(title)
		}

		b.WriteString(fmt.Sprintf("%s%s %s  %s  %s\n",
			marker, check, title, priorityBadge(task.Priority),
			dimStyle.Render(task.CreatedAt.Local().Format("Jan 2, 15:04"))))
		if task.Description != "" {
			b.WriteString("      " + dimStyle.Render(task.Description) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderFooter() string {
	var b strings.Builder
	if m.note != nil {
		style := successStyle
		if m.note.Level == usecase.LevelError {
			style = errorStyle
		}
		b.WriteString(style.Render("  " + m.note.Message))
		b.WriteString("\n")
	}

	help := "n: new task | space: toggle | d: delete | tab/1-3: filter | r: reload | q: quit"
	if m.focus != focusList {
		help = "tab: next field | ←/→: priority | enter: add task | esc: back"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func priorityBadge(p entity.Priority) string {
	switch p {
	case entity.PriorityHigh:
		return priorityHigh.Render("● high")
	case entity.PriorityLow:
		return priorityLow.Render("● low")
	default:
		return priorityMedium.Render("● medium")
	}
}

func filterLabel(f entity.Filter) string {
	switch f {
	case entity.FilterActive:
		return "Active"
	case entity.FilterCompleted:
		return "Completed"
	default:
		return "All"
	}
}

func emptyState(f entity.Filter) (string, string) {
	switch f {
	case entity.FilterActive:
		return "All caught up!", "You've completed all your tasks. Time to add some new ones!"
	case entity.FilterCompleted:
		return "No completed tasks yet", "Start checking off tasks to see them here."
	default:
		return "Ready to get things done?", "Add your first task above to start organizing your day!"
	}
}
