package tui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stoqlib/pkg/database"
	"stoqlib/pkg/migration"
)

// MigrateMode represents the current mode of the migration UI
type MigrateMode int

const (
	ModeList MigrateMode = iota
	ModeExecuting
	ModeComplete
	ModeError
)

// MigrateModel is the Bubbletea model for interactive migrations
type MigrateModel struct {
	mode    MigrateMode
	list    list.Model
	err     error
	width   int
	height  int
	dbURL   string
	sqlDir  string
	db      *database.DB
	driver  *migration.Driver
	status  []migration.Status
	applied int
	target  int
}

// scriptItem is one migration script in the list
type scriptItem struct {
	status migration.Status
}

func (i scriptItem) Title() string {
	icon := warningStyle.Render("○")
	if i.status.Applied {
		icon = successStyle.Render("✓")
	}
	return fmt.Sprintf("%s %s", icon, i.status.Name)
}

func (i scriptItem) Description() string {
	if i.status.AppliedAt != nil {
		return "applied " + i.status.AppliedAt.Format("2006-01-02 15:04:05")
	}
	return "pending"
}

func (i scriptItem) FilterValue() string { return i.status.Name }

// NewMigrateModel creates a new migration UI model
func NewMigrateModel(dbURL, sqlDir string) MigrateModel {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Schema Migrations"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle

	return MigrateModel{
		mode:   ModeList,
		list:   l,
		dbURL:  dbURL,
		sqlDir: sqlDir,
	}
}

// Init initializes the model
func (m MigrateModel) Init() tea.Cmd {
	return tea.Batch(
		loadStatusCmd(m.dbURL, m.sqlDir),
		tea.EnterAltScreen,
	)
}

// Messages
type statusLoadedMsg struct {
	status []migration.Status
	db     *database.DB
	driver *migration.Driver
}

type migratedMsg struct {
	version int
	err     error
}

type errorMsg struct {
	err error
}

// Commands
func loadStatusCmd(dbURL, sqlDir string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		db, err := database.Connect(ctx, dbURL)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to connect to database: %w", err)}
		}
		driver := migration.New(db, os.DirFS(sqlDir))
		if err := driver.EnsureSystemTable(ctx); err != nil {
			db.Close()
			return errorMsg{err: err}
		}
		status, err := driver.StatusList(ctx)
		if err != nil {
			db.Close()
			return errorMsg{err: err}
		}
		return statusLoadedMsg{status: status, db: db, driver: driver}
	}
}

func migrateToCmd(driver *migration.Driver, version int) tea.Cmd {
	return func() tea.Msg {
		err := driver.Up(context.Background(), version)
		return migratedMsg{version: version, err: err}
	}
}

// Update handles messages
func (m MigrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case statusLoadedMsg:
		m.status = msg.status
		m.db = msg.db
		m.driver = msg.driver
		items := make([]list.Item, len(msg.status))
		for i, s := range msg.status {
			items[i] = scriptItem{status: s}
		}
		m.list.SetItems(items)
		return m, nil

	case migratedMsg:
		if msg.err != nil {
			m.mode = ModeError
			m.err = msg.err
			return m, nil
		}
		m.applied++
		m.mode = ModeComplete
		return m, nil

	case errorMsg:
		m.mode = ModeError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			switch msg.String() {
			case "ctrl+c", "q":
				m.close()
				return m, tea.Quit
			case "enter":
				idx := m.list.Index()
				if idx < 0 || idx >= len(m.status) || m.status[idx].Applied {
					return m, nil
				}
				m.mode = ModeExecuting
				m.target = m.status[idx].Version
				return m, migrateToCmd(m.driver, m.target)
			case "a":
				// apply everything pending
				if m.driver == nil {
					return m, nil
				}
				m.mode = ModeExecuting
				m.target = -1
				return m, migrateToCmd(m.driver, -1)
			}

		case ModeComplete, ModeError:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				m.close()
				return m, tea.Quit
			}
		}
	}

	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *MigrateModel) close() {
	if m.db != nil {
		m.db.Close()
	}
}

// View renders the UI
func (m MigrateModel) View() string {
	switch m.mode {
	case ModeList:
		help := helpStyle.Render(
			FormatKey("↑/↓", "navigate") + " • " +
				FormatKey("enter", "migrate to version") + " • " +
				FormatKey("a", "apply all") + " • " +
				FormatKey("q", "quit"),
		)
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), help)

	case ModeExecuting:
		target := "latest"
		if m.target >= 0 {
			target = fmt.Sprintf("version %d", m.target)
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			boxStyle.Render("Migrating to "+target+"..."))

	case ModeComplete:
		msg := titleStyle.Render("Migration Complete") + "\n\n" +
			successStyle.Render("database schema is up to date") + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			boxStyle.Render(msg))

	case ModeError:
		msg := titleStyle.Render("Migration Failed") + "\n\n" +
			dangerStyle.Render(m.err.Error()) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			boxStyle.Render(msg))
	}
	return ""
}

// RunMigrateUI starts the interactive migration UI
func RunMigrateUI(dbURL, sqlDir string) error {
	p := tea.NewProgram(NewMigrateModel(dbURL, sqlDir))
	_, err := p.Run()
	return err
}
