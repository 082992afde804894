// Package tui drives a workflow session from the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/workflow"
)

// screen is the step currently shown
type screen int

const (
	screenOwners screen = iota
	screenRepositories
	screenBase
	screenHead
	screenCommits
	screenDraft
	screenSubmitted
)

func (s screen) String() string {
	switch s {
	case screenOwners:
		return "Owners"
	case screenRepositories:
		return "Repositories"
	case screenBase:
		return "Base branch"
	case screenHead:
		return "Head branch"
	case screenCommits:
		return "Commits"
	case screenDraft:
		return "Draft"
	case screenSubmitted:
		return "Submitted"
	default:
		return "?"
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("cyan")).
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Padding(0, 1)

	busyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow")).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("blue")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Faint(true)
)

// Messages
type ownersLoadedMsg struct{ err error }

type repositoriesLoadedMsg struct{ err error }

type branchesLoadedMsg struct{ err error }

type commitsFetchedMsg struct{ err error }

type draftGeneratedMsg struct{ err error }

type submittedMsg struct {
	pr  *github.PullRequest
	err error
}

type resumedMsg struct{ err error }

// list items

type ownerItem struct{ o github.Owner }

func (i ownerItem) Title() string       { return i.o.Login }
func (i ownerItem) Description() string { return string(i.o.Kind) }
func (i ownerItem) FilterValue() string { return i.o.Login }

type repositoryItem struct{ r github.Repository }

func (i repositoryItem) Title() string { return i.r.FullName }
func (i repositoryItem) Description() string {
	desc := "default " + i.r.DefaultBranch
	if i.r.Private {
		desc += " · private"
	}
	return desc
}
func (i repositoryItem) FilterValue() string { return i.r.FullName }

type branchItem string

func (i branchItem) Title() string       { return string(i) }
func (i branchItem) Description() string { return "" }
func (i branchItem) FilterValue() string { return string(i) }

type commitItem struct{ c github.Commit }

func (i commitItem) Title() string { return i.c.ShortSHA() + " " + i.c.Subject() }
func (i commitItem) Description() string {
	return i.c.Author + " · " + i.c.CommittedAt.Format("2006-01-02 15:04")
}
func (i commitItem) FilterValue() string { return i.c.Message }

// Option configures an App
type Option func(*App)

// WithResume starts the app from a resume link instead of the owner list
func WithResume(p workflow.ResumeParams) Option {
	return func(a *App) {
		a.resume = &p
	}
}

// WithLinkBase sets the base URL used for shareable links
func WithLinkBase(base string) Option {
	return func(a *App) {
		a.linkBase = base
	}
}

// App is the TUI application state
type App struct {
	ctx     context.Context
	cancel  context.CancelFunc
	session *workflow.Session
	tracer  *tuiDebugTracer
	unsub   func()

	screen   screen
	state    workflow.State
	base     string
	resume   *workflow.ResumeParams
	linkBase string
	notice   string
	err      error
	busy     bool
	quitting bool
	width    int
	height   int

	list    list.Model
	spinner spinner.Model
	title   textinput.Model
	body    textarea.Model
	focus   int
}

// NewApp creates a TUI bound to session
func NewApp(session *workflow.Session, opts ...Option) *App {
	ctx, cancel := context.WithCancel(context.Background())

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle

	ti := textinput.New()
	ti.Placeholder = "Pull request title"
	ti.CharLimit = 256

	ta := textarea.New()
	ta.Placeholder = "Pull request description"
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Line

	a := &App{
		ctx:      ctx,
		cancel:   cancel,
		session:  session,
		tracer:   newTUIDebugTracerFromEnv(),
		linkBase: "http://localhost/",
		list:     l,
		spinner:  sp,
		title:    ti,
		body:     ta,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.unsub = session.Subscribe(func(st workflow.State) {
		a.tracer.trace("state", traceFieldsFromState(st))
	})
	a.state = session.Snapshot()
	a.setScreen(screenOwners)
	return a
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	if a.resume != nil {
		p := *a.resume
		return a.run(func(ctx context.Context) tea.Msg {
			return resumedMsg{err: a.session.Resume(ctx, p)}
		})
	}
	return a.run(func(ctx context.Context) tea.Msg {
		_, err := a.session.LoadOwners(ctx)
		return ownersLoadedMsg{err: err}
	})
}

// run executes fn off the event loop while the spinner turns
func (a *App) run(fn func(context.Context) tea.Msg) tea.Cmd {
	a.busy = true
	a.err = nil
	a.notice = ""
	ctx := a.ctx
	return tea.Batch(func() tea.Msg { return fn(ctx) }, a.spinner.Tick)
}

// settle records the outcome of a finished command
func (a *App) settle(err error) bool {
	a.busy = false
	a.state = a.session.Snapshot()
	if err != nil {
		a.err = err
		return false
	}
	return true
}

// Update handles messages and updates state
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case ownersLoadedMsg:
		if a.settle(msg.err) {
			a.setScreen(screenOwners)
		}
		return a, nil

	case repositoriesLoadedMsg:
		if a.settle(msg.err) {
			a.setScreen(screenRepositories)
		}
		return a, nil

	case branchesLoadedMsg:
		if a.settle(msg.err) {
			a.base = ""
			a.setScreen(screenBase)
		}
		return a, nil

	case commitsFetchedMsg:
		if a.settle(msg.err) {
			a.setScreen(screenCommits)
		}
		return a, nil

	case resumedMsg:
		if a.settle(msg.err) {
			a.base = a.state.BaseBranch
			a.setScreen(screenCommits)
		}
		return a, nil

	case draftGeneratedMsg:
		if a.settle(msg.err) && a.state.Draft != nil {
			a.setScreen(screenDraft)
		}
		return a, nil

	case submittedMsg:
		if a.settle(msg.err) {
			a.notice = "Created " + msg.pr.URL
			a.setScreen(screenSubmitted)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.forward(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a.quit()
	case "esc":
		a.back()
		return a, nil
	}

	if a.busy {
		return a, nil
	}

	if a.screen == screenDraft {
		return a.handleDraftKey(msg)
	}

	switch msg.String() {
	case "q":
		return a.quit()
	case "enter":
		return a, a.choose()
	case "ctrl+r":
		a.session.Reset()
		a.state = a.session.Snapshot()
		a.base = ""
		a.err = nil
		a.notice = ""
		return a, a.Init()
	}

	switch a.screen {
	case screenBase, screenHead:
		if msg.String() == "r" {
			return a, a.run(func(ctx context.Context) tea.Msg {
				return branchesLoadedMsg{err: a.session.ReloadBranches(ctx)}
			})
		}
	case screenCommits:
		switch msg.String() {
		case "g":
			return a, a.generate()
		case "l":
			a.showLink()
			return a, nil
		}
	case screenSubmitted:
		if msg.String() == "n" {
			a.base = a.state.BaseBranch
			a.notice = ""
			a.setScreen(screenHead)
			return a, nil
		}
	}

	return a.forward(msg)
}

func (a *App) handleDraftKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		a.toggleFocus()
		return a, nil
	case "ctrl+g":
		return a, a.generate()
	case "ctrl+s":
		title := a.title.Value()
		description := a.body.Value()
		return a, a.run(func(ctx context.Context) tea.Msg {
			if err := a.session.EditDraft(&title, &description); err != nil {
				return submittedMsg{err: err}
			}
			pr, err := a.session.Submit(ctx)
			return submittedMsg{pr: pr, err: err}
		})
	}
	return a.forward(msg)
}

func (a *App) generate() tea.Cmd {
	if len(a.state.Commits) == 0 {
		a.notice = "No commits between " + a.state.BaseBranch + " and " + a.state.HeadBranch + " to describe"
		return nil
	}
	return a.run(func(ctx context.Context) tea.Msg {
		return draftGeneratedMsg{err: a.session.GenerateDraft(ctx)}
	})
}

// forward passes msg to the focused component
func (a *App) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if a.screen == screenDraft {
		if a.focus == 0 {
			a.title, cmd = a.title.Update(msg)
		} else {
			a.body, cmd = a.body.Update(msg)
		}
		return a, cmd
	}
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

// choose acts on the selected list item
func (a *App) choose() tea.Cmd {
	switch item := a.list.SelectedItem().(type) {
	case ownerItem:
		owner := item.o
		return a.run(func(ctx context.Context) tea.Msg {
			_, err := a.session.LoadRepositories(ctx, owner)
			return repositoriesLoadedMsg{err: err}
		})
	case repositoryItem:
		repo := item.r
		return a.run(func(ctx context.Context) tea.Msg {
			return branchesLoadedMsg{err: a.session.SelectRepository(ctx, repo)}
		})
	case branchItem:
		if a.screen == screenBase {
			a.base = string(item)
			a.setScreen(screenHead)
			return nil
		}
		base, head := a.base, string(item)
		return a.run(func(ctx context.Context) tea.Msg {
			if err := a.session.SelectBranches(base, head); err != nil {
				return commitsFetchedMsg{err: err}
			}
			return commitsFetchedMsg{err: a.session.FetchCommits(ctx)}
		})
	case commitItem:
		return a.generate()
	}
	return nil
}

// back returns to the previous step without touching the session
func (a *App) back() {
	if a.busy {
		return
	}
	a.err = nil
	switch a.screen {
	case screenRepositories:
		a.setScreen(screenOwners)
	case screenBase:
		if len(a.state.Repositories) > 0 {
			a.setScreen(screenRepositories)
		}
	case screenHead:
		a.setScreen(screenBase)
	case screenCommits:
		a.setScreen(screenHead)
	case screenDraft:
		a.setScreen(screenCommits)
	}
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.quitting = true
	a.cancel()
	if a.unsub != nil {
		a.unsub()
	}
	_ = a.tracer.close()
	return a, tea.Quit
}

func (a *App) showLink() {
	st := a.state
	if st.Repository == nil || st.HeadBranch == "" {
		return
	}
	link, err := workflow.BuildResumeLink(a.linkBase, workflow.ResumeParams{
		Repository: st.Repository.FullName,
		Base:       st.BaseBranch,
		Head:       st.HeadBranch,
	})
	if err != nil {
		a.err = err
		return
	}
	a.notice = link
}

func (a *App) toggleFocus() {
	if a.focus == 0 {
		a.focus = 1
		a.title.Blur()
		a.body.Focus()
		return
	}
	a.focus = 0
	a.body.Blur()
	a.title.Focus()
}

// setScreen switches screens and rebuilds the list from the snapshot
func (a *App) setScreen(s screen) {
	a.screen = s
	st := a.state

	var items []list.Item
	switch s {
	case screenOwners:
		for _, o := range st.Owners {
			items = append(items, ownerItem{o})
		}
	case screenRepositories:
		for _, r := range st.Repositories {
			items = append(items, repositoryItem{r})
		}
	case screenBase, screenHead:
		for _, b := range st.Branches {
			items = append(items, branchItem(b))
		}
	case screenCommits:
		for _, c := range st.Commits {
			items = append(items, commitItem{c})
		}
	case screenDraft:
		if st.Draft != nil {
			a.title.SetValue(st.Draft.Title)
			a.body.SetValue(st.Draft.Description)
		}
		a.focus = 0
		a.body.Blur()
		a.title.Focus()
	}

	a.list.Title = s.String()
	a.list.SetItems(items)
	a.list.ResetSelected()
	if s == screenHead {
		for i, b := range st.Branches {
			if b == st.HeadBranch {
				a.list.Select(i)
			}
		}
	}
}

func (a *App) resize() {
	w := a.width - 6
	if w < 20 {
		w = 20
	}
	h := a.height - 10
	if h < 5 {
		h = 5
	}
	a.list.SetSize(w, h)
	a.title.Width = w - 4
	a.body.SetWidth(w)
	a.body.SetHeight(h - 3)
}

// View renders the UI
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("prgen"))
	b.WriteString(labelStyle.Render(a.breadcrumb()))
	b.WriteString("\n\n")

	if a.screen == screenDraft {
		b.WriteString(borderStyle.Render(a.renderDraft()))
	} else if a.screen == screenSubmitted {
		b.WriteString(borderStyle.Render(a.renderSubmitted()))
	} else {
		b.WriteString(a.list.View())
	}
	b.WriteString("\n\n")

	b.WriteString(a.renderStatus())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(a.help()))
	return b.String()
}

func (a *App) breadcrumb() string {
	st := a.state
	parts := []string{}
	if st.Owner != nil {
		parts = append(parts, st.Owner.Login)
	}
	if st.Repository != nil {
		parts = append(parts, st.Repository.FullName)
	}
	if a.base != "" {
		branches := a.base
		if st.HeadBranch != "" {
			branches += "..." + st.HeadBranch
		}
		parts = append(parts, branches)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " › ")
}

func (a *App) renderDraft() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Title"))
	b.WriteString("\n")
	b.WriteString(a.title.View())
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Description"))
	b.WriteString("\n")
	b.WriteString(a.body.View())
	return b.String()
}

func (a *App) renderSubmitted() string {
	pr := a.state.Submission
	if pr == nil {
		return "No pull request submitted"
	}
	return fmt.Sprintf("#%d %s\n%s", pr.Number, pr.Title, pr.URL)
}

func (a *App) renderStatus() string {
	switch {
	case a.busy:
		op := string(a.state.Operation)
		if op == "" {
			op = "working"
		}
		return busyStyle.Render(a.spinner.View() + " " + op + "...")
	case a.err != nil:
		return errorStyle.Render("Error: " + a.err.Error())
	case a.notice != "":
		return statusStyle.Render(a.notice)
	}
	return ""
}

func (a *App) help() string {
	switch a.screen {
	case screenDraft:
		return "[Tab] Switch field | [Ctrl+S] Submit | [Ctrl+G] Regenerate | [Esc] Back | [Ctrl+C] Quit"
	case screenCommits:
		return "[g/Enter] Generate draft | [l] Share link | [Esc] Back | [q] Quit"
	case screenBase, screenHead:
		return "[Enter] Select | [r] Reload branches | [Esc] Back | [q] Quit"
	case screenSubmitted:
		return "[n] New pull request from this base | [Ctrl+R] Start over | [q] Quit"
	}
	return "[Enter] Select | [Esc] Back | [Ctrl+R] Start over | [q] Quit"
}

// Run starts the program and blocks until the user quits
func Run(session *workflow.Session, opts ...Option) error {
	app := NewApp(session, opts...)
	defer app.cancel()
	_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	return err
}
