package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"baduanjin-watch/internal/api"
	"baduanjin-watch/internal/model"
)

type browseMode int

const (
	browseModeList browseMode = iota
	browseModeDeleteConfirm
)

const browseRefreshEvery = 5 * time.Second

type browseModel struct {
	client *api.Client
	userID int64

	videos []model.Video
	cursor int
	width  int
	height int
	mode   browseMode
	spin   spinner.Model
	busy   bool

	confirmDeleteID int64
	statusMessage   string
	watchIDs        []int64
	fatalErr        error
}

type browseLoadedMsg struct {
	videos []model.Video
	err    error
}

type browseActionMsg struct {
	message string
	err     error
}

type browseRefreshMsg struct{}

var (
	browseTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	browseMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	browseErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	browseOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	browsePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	browseSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func runBrowse(env appEnv, client *api.Client) error {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := browseModel{
		client: client,
		userID: env.sess.UserID,
		mode:   browseModeList,
		spin:   sp,
		busy:   true,
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := finalModel.(browseModel); ok {
		if len(fm.watchIDs) > 0 {
			args := make([]string, 0, len(fm.watchIDs))
			for _, id := range fm.watchIDs {
				args = append(args, strconv.FormatInt(id, 10))
			}
			fmt.Printf("watching %d job(s)...\n", len(fm.watchIDs))
			return runWatch(args)
		}
		return fm.fatalErr
	}
	return nil
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, loadVideosCmd(m.client, m.userID), browseRefreshTick())
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case browseRefreshMsg:
		if m.busy {
			return m, browseRefreshTick()
		}
		return m, tea.Batch(loadVideosCmd(m.client, m.userID), browseRefreshTick())
	case browseLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.videos = msg.videos
		if len(m.videos) == 0 {
			m.cursor = 0
		} else if m.cursor > len(m.videos)-1 {
			m.cursor = len(m.videos) - 1
		}
		return m, nil
	case browseActionMsg:
		m.busy = false
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.statusMessage = msg.message
		return m, loadVideosCmd(m.client, m.userID)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.mode {
	case browseModeDeleteConfirm:
		return m.updateDeleteConfirm(keyMsg)
	default:
		return m.updateList(keyMsg)
	}
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.videos)-1 {
			m.cursor++
		}
		return m, nil
	case "r":
		m.busy = true
		m.statusMessage = "refreshing..."
		return m, loadVideosCmd(m.client, m.userID)
	case "a":
		v, ok := m.selectedVideo()
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		m.statusMessage = fmt.Sprintf("starting analysis for video %d...", v.ID)
		return m, startJobCmd(m.client, v.ID, model.KindAnalysis)
	case "c":
		v, ok := m.selectedVideo()
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		m.statusMessage = fmt.Sprintf("starting audio conversion for video %d...", v.ID)
		return m, startJobCmd(m.client, v.ID, model.KindAudioConversion)
	case "w":
		v, ok := m.selectedVideo()
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		m.statusMessage = fmt.Sprintf("starting web conversion for video %d...", v.ID)
		return m, startJobCmd(m.client, v.ID, model.KindWebConversion)
	case "x":
		v, ok := m.selectedVideo()
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		m.statusMessage = fmt.Sprintf("resetting status for video %d...", v.ID)
		return m, resetStatusCmd(m.client, v.ID)
	case "enter", "p":
		v, ok := m.selectedVideo()
		if !ok {
			return m, nil
		}
		m.watchIDs = append(m.watchIDs, v.ID)
		return m, tea.Quit
	case "d":
		v, ok := m.selectedVideo()
		if !ok {
			m.statusMessage = "select a video to delete"
			return m, nil
		}
		m.mode = browseModeDeleteConfirm
		m.confirmDeleteID = v.ID
		return m, nil
	}
	return m, nil
}

func (m browseModel) updateDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "n":
		m.mode = browseModeList
		m.confirmDeleteID = 0
		m.statusMessage = "delete cancelled"
		return m, nil
	case "y", "enter":
		id := m.confirmDeleteID
		m.mode = browseModeList
		m.confirmDeleteID = 0
		if id == 0 {
			m.statusMessage = "delete cancelled"
			return m, nil
		}
		m.busy = true
		m.statusMessage = fmt.Sprintf("deleting video %d...", id)
		return m, deleteVideoCmd(m.client, id)
	}
	return m, nil
}

func (m browseModel) selectedVideo() (model.Video, bool) {
	if len(m.videos) == 0 || m.cursor < 0 || m.cursor >= len(m.videos) {
		return model.Video{}, false
	}
	return m.videos[m.cursor], true
}

func (m browseModel) View() string {
	if m.fatalErr != nil {
		return browseErrorStyle.Render("fatal: " + m.fatalErr.Error())
	}
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}
	if m.mode == browseModeDeleteConfirm {
		return m.viewDeleteConfirm()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	header := browseTitleStyle.Render("baduanjin-watch videos") + "\n" +
		browseMutedStyle.Render("up/down: move | a: analyze | c: convert audio | w: convert web | enter/p: watch | x: reset | d: delete | r: refresh | q: quit")

	if m.width < 90 {
		list := m.renderListPanel(m.width)
		details := m.renderDetailsPanel(m.width)
		body := lipgloss.JoinVertical(lipgloss.Left, list, details)
		return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(m.width))
	}

	leftW := clampInt(m.width/2, 34, 60)
	rightW := m.width - leftW - 1
	list := m.renderListPanel(leftW)
	details := m.renderDetailsPanel(rightW)
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, details)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(m.width))
}

func (m browseModel) renderListPanel(width int) string {
	total := len(m.videos)
	maxRows := clampInt(m.height-10, 4, 20)
	start, end := listWindow(total, m.cursor, maxRows)

	lines := make([]string, 0, maxRows+3)
	if total == 0 {
		lines = append(lines, browseMutedStyle.Render("No videos yet."))
		lines = append(lines, browseMutedStyle.Render("Upload one with 'baduanjin-watch upload'."))
	}
	if start > 0 {
		lines = append(lines, browseMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		v := m.videos[i]
		line := fmt.Sprintf("%d  %s  [%s]", v.ID, v.Title, v.ProcessingStatus)
		line = truncateRunes(line, maxInt(width-6, 10))
		if i == m.cursor {
			line = browseSelStyle.Width(maxInt(width-4, 6)).Render(line)
		}
		lines = append(lines, line)
	}
	if end < total {
		lines = append(lines, browseMutedStyle.Render("..."))
	}

	return browsePanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m browseModel) renderDetailsPanel(width int) string {
	lines := []string{}
	if v, ok := m.selectedVideo(); ok {
		lines = append(lines, "Video Details")
		lines = append(lines, "")
		lines = append(lines, kv("id", strconv.FormatInt(v.ID, 10)))
		lines = append(lines, kv("title", v.Title))
		lines = append(lines, kv("brocade", v.BrocadeType))
		lines = append(lines, kv("status", v.ProcessingStatus))
		lines = append(lines, kv("uploaded", v.UploadTimestamp))
		lines = append(lines, kv("analyzed_video", yesNo(strings.TrimSpace(v.AnalyzedVideoPath) != "")))
		lines = append(lines, kv("keypoints", yesNo(strings.TrimSpace(v.KeypointsPath) != "")))
		lines = append(lines, "")
		lines = append(lines, browseMutedStyle.Render("a analyzes, c/w convert, enter watches the running job."))
	} else {
		lines = append(lines, "No videos")
		lines = append(lines, "")
		lines = append(lines, "Upload a practice recording to get started.")
	}

	for i := range lines {
		lines[i] = wrapOrTrim(lines[i], maxInt(width-6, 12))
	}
	return browsePanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m browseModel) renderStatusLine(width int) string {
	msg := strings.TrimSpace(m.statusMessage)
	if m.busy {
		msg = m.spin.View() + " " + defaultIfEmpty(msg, "working...")
	}
	if msg == "" {
		msg = "Tip: the list refreshes every few seconds while a job is processing."
	}
	style := browseMutedStyle
	if strings.HasPrefix(strings.ToLower(msg), "error:") {
		style = browseErrorStyle
	} else if strings.HasPrefix(strings.ToLower(msg), "started") || strings.HasPrefix(strings.ToLower(msg), "deleted") {
		style = browseOKStyle
	}
	return style.Width(width).Render(truncateRunes(msg, maxInt(width-2, 10)))
}

func (m browseModel) viewDeleteConfirm() string {
	text := fmt.Sprintf(
		"Delete video %d?\n\nThis removes the recording, its analysis results\nand conversions from the server.\n\nPress y or Enter to confirm, n or Esc to cancel.",
		m.confirmDeleteID,
	)
	boxW := clampInt(m.width-8, 36, 80)
	boxH := clampInt(m.height-6, 9, 14)
	panel := browsePanelStyle.Width(boxW).Height(boxH).Render(text)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func browseRefreshTick() tea.Cmd {
	return tea.Tick(browseRefreshEvery, func(time.Time) tea.Msg {
		return browseRefreshMsg{}
	})
}

func loadVideosCmd(client *api.Client, userID int64) tea.Cmd {
	return func() tea.Msg {
		videos, err := client.ListVideos()
		if err != nil {
			return browseLoadedMsg{err: err}
		}
		return browseLoadedMsg{videos: ownVideos(videos, userID)}
	}
}

func startJobCmd(client *api.Client, videoID int64, kind model.Kind) tea.Cmd {
	return func() tea.Msg {
		var err error
		switch kind {
		case model.KindAnalysis:
			err = client.StartAnalysis(videoID)
		case model.KindAudioConversion:
			err = client.StartAudioConversion(videoID)
		case model.KindWebConversion:
			err = client.StartWebConversion(videoID)
		default:
			err = fmt.Errorf("unknown job kind %q", kind)
		}
		if err != nil {
			return browseActionMsg{err: err}
		}
		return browseActionMsg{message: fmt.Sprintf("started %s for video %d (enter/p to watch)", kind, videoID)}
	}
}

func resetStatusCmd(client *api.Client, videoID int64) tea.Cmd {
	return func() tea.Msg {
		if err := client.ResetStatus(videoID); err != nil {
			return browseActionMsg{err: err}
		}
		return browseActionMsg{message: fmt.Sprintf("reset status for video %d", videoID)}
	}
}

func deleteVideoCmd(client *api.Client, videoID int64) tea.Cmd {
	return func() tea.Msg {
		if err := client.DeleteVideo(videoID); err != nil {
			return browseActionMsg{err: err}
		}
		return browseActionMsg{message: fmt.Sprintf("deleted video %d", videoID)}
	}
}

func kv(k, v string) string {
	return fmt.Sprintf("%s: %s", k, v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func defaultIfEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func listWindow(total, cursor, maxRows int) (int, int) {
	if total <= maxRows {
		return 0, total
	}
	half := maxRows / 2
	start := cursor - half
	if start < 0 {
		start = 0
	}
	end := start + maxRows
	if end > total {
		end = total
		start = end - maxRows
	}
	return start, end
}

func wrapOrTrim(s string, width int) string {
	if width <= 0 {
		return s
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return truncateRunes(s, width)
}
