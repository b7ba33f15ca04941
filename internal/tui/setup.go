// ABOUTME: Interactive TUI wizard for pointing adboard at a board API and signing in.
// ABOUTME: 3-step bubbletea model collecting API URL, user name, and password.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/adboard/internal/config"
	"github.com/2389-research/adboard/internal/models"
)

// DefaultAPIURL is the board API used when none is entered.
const DefaultAPIURL = config.DefaultAPIURL

// Step represents the current wizard step.
type Step int

const (
	StepAPIURL Step = iota
	StepUserName
	StepPassword
	StepValidating
	StepDone
	StepFailed
)

// validationResultMsg carries the result of an async sign-in attempt.
type validationResultMsg struct {
	login models.LoginResult
	err   error
}

// ValidateFn signs in against apiURL and returns the session on success.
type ValidateFn func(ctx context.Context, apiURL, username, password string) (models.LoginResult, error)

// cancelHolder shares a cancel function across bubbletea model copies.
// This MUST be stored as a pointer field on SetupModel so that value-receiver
// methods (required by tea.Model) can store the cancel func and have it
// visible to all copies of the model.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step          Step
	inputs        [3]textinput.Model
	spinner       spinner.Model
	validateFn    ValidateFn
	cancelCtx     *cancelHolder
	validationErr error
	login         models.LoginResult
	quitting      bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewSetupModel creates a new setup wizard model, pre-filling the API URL and user name.
func NewSetupModel(apiURL, username string) SetupModel {
	urlInput := textinput.New()
	urlInput.Placeholder = DefaultAPIURL
	urlInput.Focus()
	urlInput.Width = 50
	if apiURL != "" {
		urlInput.SetValue(apiURL)
	}

	userInput := textinput.New()
	userInput.Placeholder = "your-user-name"
	userInput.Width = 50
	if username != "" {
		userInput.SetValue(username)
	}

	passInput := textinput.New()
	passInput.Placeholder = "password"
	passInput.EchoMode = textinput.EchoPassword
	passInput.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step:       StepAPIURL,
		inputs:     [3]textinput.Model{urlInput, userInput, passInput},
		spinner:    s,
		validateFn: ValidateLogin,
		cancelCtx:  &cancelHolder{},
	}
}

// NormalizeAPIURL strips trailing slashes and a trailing /api segment.
func NormalizeAPIURL(val string) string {
	val = strings.TrimRight(strings.TrimSpace(val), "/")
	return strings.TrimSuffix(val, "/api")
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case StepAPIURL, StepUserName, StepPassword:
			return m.updateInput(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case validationResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.login = msg.login
			m.step = StepDone
			return m, tea.Quit
		}
		m.validationErr = msg.err
		m.step = StepFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == StepValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		idx := int(m.step)

		if m.step == StepAPIURL {
			val := NormalizeAPIURL(m.inputs[0].Value())
			if val == "" {
				val = DefaultAPIURL
			}
			m.inputs[0].SetValue(val)
		}

		// Don't advance on empty user name or password
		if m.step == StepUserName && strings.TrimSpace(m.inputs[1].Value()) == "" {
			return m, nil
		}
		if m.step == StepPassword && m.inputs[2].Value() == "" {
			return m, nil
		}

		m.inputs[idx].Blur()

		switch m.step {
		case StepAPIURL:
			m.step = StepUserName
			m.inputs[1].Focus()
			return m, textinput.Blink
		case StepUserName:
			m.step = StepPassword
			m.inputs[2].Focus()
			return m, textinput.Blink
		case StepPassword:
			m.step = StepValidating
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		}
	}

	// Forward to the active input
	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.step = StepValidating
			m.validationErr = nil
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		case 's':
			m.step = StepDone
			return m, tea.Quit
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SetupModel) startValidation() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	apiURL := m.inputs[0].Value()
	username := strings.TrimSpace(m.inputs[1].Value())
	password := m.inputs[2].Value()
	fn := m.validateFn
	return func() tea.Msg {
		res, err := fn(ctx, apiURL, username, password)
		return validationResultMsg{login: res, err: err}
	}
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   ADBOARD"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Connect to a listings board.\n\n")

	switch m.step {
	case StepAPIURL:
		b.WriteString(stepStyle.Render("Step 1 of 3: API URL"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(press Enter for default)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n")

	case StepUserName:
		b.WriteString(fmt.Sprintf("  API URL: %s\n\n", m.inputs[0].Value()))
		b.WriteString(stepStyle.Render("Step 2 of 3: User name"))
		b.WriteString("\n")
		b.WriteString(m.inputs[1].View())
		b.WriteString("\n")

	case StepPassword:
		b.WriteString(fmt.Sprintf("  API URL: %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  User:    %s\n\n", m.inputs[1].Value()))
		b.WriteString(stepStyle.Render("Step 3 of 3: Password"))
		b.WriteString("\n")
		b.WriteString(m.inputs[2].View())
		b.WriteString("\n")

	case StepValidating:
		b.WriteString(fmt.Sprintf("  API URL: %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  User:    %s\n\n", m.inputs[1].Value()))
		b.WriteString(m.spinner.View())
		b.WriteString(" Signing in...")
		b.WriteString("\n")

	case StepDone:
		if m.login.Token != "" {
			b.WriteString(successStyle.Render(fmt.Sprintf("✓ Signed in as %s", m.login.UserName)))
		} else {
			b.WriteString(successStyle.Render("✓ Saved"))
		}
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.validationErr != nil {
			errMsg = m.validationErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Sign-in failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [s]ave URL only  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

// Result returns the entered API URL and user name, plus the session if
// sign-in succeeded. The login is zero after "save URL only".
func (m SetupModel) Result() (apiURL, username string, login models.LoginResult) {
	return m.inputs[0].Value(), strings.TrimSpace(m.inputs[1].Value()), m.login
}

// ShouldSave returns true if the wizard completed (via sign-in or
// "save URL only") and the user did not cancel with Ctrl+C, Escape, or 'q'.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
