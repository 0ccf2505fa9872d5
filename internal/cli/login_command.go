package cli

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"baduanjin-watch/internal/api"
	"baduanjin-watch/internal/session"
)

func runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	server := fs.String("server", "", "backend base URL (defaults to settings/session value)")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when omitted)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}

	serverURL := strings.TrimSpace(*server)
	if serverURL == "" {
		serverURL = env.serverURL()
	}
	userEmail := strings.TrimSpace(*email)
	userPassword := *password

	// With no credentials on the command line and a TTY, use the form.
	if userEmail == "" && userPassword == "" && stdinIsTTY() && stdoutIsTTY() {
		serverURL, userEmail, userPassword, err = loginForm(serverURL)
		if err != nil {
			return err
		}
	} else {
		if serverURL == "" {
			serverURL, err = promptRequired("server URL")
			if err != nil {
				return err
			}
		}
		if userEmail == "" {
			userEmail, err = promptRequired("email")
			if err != nil {
				return err
			}
		}
		if userPassword == "" {
			userPassword, err = promptRequired("password")
			if err != nil {
				return err
			}
		}
	}

	client, err := api.New(serverURL, "")
	if err != nil {
		return err
	}
	res, err := client.Login(userEmail, userPassword)
	if err != nil {
		return err
	}

	env.sess = session.Session{
		ServerURL: client.BaseURL(),
		Token:     res.Token,
		UserID:    res.UserID,
		Email:     userEmail,
		SavedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := env.saveSession(); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(map[string]any{
			"server_url": client.BaseURL(),
			"user_id":    res.UserID,
			"email":      userEmail,
		})
	}
	fmt.Printf("logged in as %s (user %d) at %s\n", userEmail, res.UserID, client.BaseURL())
	return nil
}

func runLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	if err := session.Clear(env.dir); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

type loginFieldIndex int

const (
	loginFieldServer loginFieldIndex = iota
	loginFieldEmail
	loginFieldPassword
	loginFieldCount
)

type loginModel struct {
	inputs    [loginFieldCount]textinput.Model
	index     loginFieldIndex
	submitted bool
	cancelled bool
}

func newLoginModel(serverURL string) loginModel {
	var m loginModel

	server := textinput.New()
	server.Prompt = "> "
	server.Placeholder = "http://localhost:8000"
	server.CharLimit = 512
	server.SetValue(serverURL)
	m.inputs[loginFieldServer] = server

	email := textinput.New()
	email.Prompt = "> "
	email.CharLimit = 256
	m.inputs[loginFieldEmail] = email

	password := textinput.New()
	password.Prompt = "> "
	password.CharLimit = 256
	password.EchoMode = textinput.EchoPassword
	m.inputs[loginFieldPassword] = password

	m.inputs[loginFieldServer].Focus()
	return m
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.inputs[m.index], cmd = m.inputs[m.index].Update(msg)
		return m, cmd
	}

	switch keyMsg.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "tab", "down":
		m = m.focusField((m.index + 1) % loginFieldCount)
		return m, nil
	case "shift+tab", "up":
		m = m.focusField((m.index + loginFieldCount - 1) % loginFieldCount)
		return m, nil
	case "enter":
		if m.index < loginFieldCount-1 {
			m = m.focusField(m.index + 1)
			return m, nil
		}
		m.submitted = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.inputs[m.index], cmd = m.inputs[m.index].Update(msg)
	return m, cmd
}

func (m loginModel) focusField(idx loginFieldIndex) loginModel {
	m.inputs[m.index].Blur()
	m.index = idx
	m.inputs[m.index].Focus()
	return m
}

func (m loginModel) View() string {
	labels := [loginFieldCount]string{"Server URL", "Email", "Password"}
	var b strings.Builder
	b.WriteString(browseTitleStyle.Render("baduanjin-watch login") + "\n")
	b.WriteString(browseMutedStyle.Render("tab/shift+tab: move | enter: next/submit | esc: cancel") + "\n\n")
	for i := loginFieldIndex(0); i < loginFieldCount; i++ {
		marker := "  "
		if i == m.index {
			marker = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s\n", marker, labels[i]))
		b.WriteString("  " + m.inputs[i].View() + "\n")
	}
	return b.String()
}

func loginForm(serverURL string) (server, email, password string, err error) {
	p := tea.NewProgram(newLoginModel(serverURL))
	finalModel, err := p.Run()
	if err != nil {
		return "", "", "", err
	}
	m, ok := finalModel.(loginModel)
	if !ok || m.cancelled || !m.submitted {
		return "", "", "", fmt.Errorf("login cancelled")
	}

	server = strings.TrimSpace(m.inputs[loginFieldServer].Value())
	email = strings.TrimSpace(m.inputs[loginFieldEmail].Value())
	password = m.inputs[loginFieldPassword].Value()
	if server == "" || email == "" || password == "" {
		return "", "", "", fmt.Errorf("server URL, email and password are required")
	}
	return server, email, password, nil
}
