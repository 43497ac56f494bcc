// Package tui provides the terminal console for the partner registry.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mastera/partnerdesk/internal/attachment"
	"github.com/mastera/partnerdesk/internal/listing"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/session"
)

// viewLevel represents the current screen.
type viewLevel int

const (
	levelList viewLevel = iota
	levelDetail
)

// modalType represents the type of modal dialog.
type modalType int

const (
	modalNone modalType = iota
	modalFilter
	modalUploadPath
	modalUploadConfirm
	modalResult
	modalQuitConfirm
	modalHelp
)

// Options configures the console.
type Options struct {
	Version     string
	Email       string
	Role        string
	UploadRoles []string
	DownloadDir string
}

// pendingUpload is a validated file waiting for confirmation.
type pendingUpload struct {
	row     registry.PartnerRow
	name    string
	content []byte
}

// Model is the console model following the Elm architecture.
type Model struct {
	backend registry.Backend
	ctrl    *listing.Controller
	files   *attachment.Service

	version     string
	email       string
	role        string
	uploadRoles []string
	downloadDir string

	level        viewLevel
	cursor       int
	scrollOffset int
	pageSize     int // rows visible in the table

	// Detail view
	detailRow       registry.PartnerRow
	detailIndex     int // index of detailRow in the live page
	detailScroll    int
	detailRequestID uint64
	detailLoading   bool

	// The most recently issued page request.
	inflight listing.Request
	// keepCursorSeq is the seq of a same-page refresh whose response keeps
	// the row cursor. Any other response moves the cursor to the top.
	keepCursorSeq uint64

	// Modal state
	modal       modalType
	modalTitle  string
	modalResult string
	helpScroll  int
	filter      filterForm
	pathInput   textinput.Model
	upload      *pendingUpload

	width  int
	height int

	// busy counts uploads and downloads in flight. Page loads are tracked
	// by the controller.
	busy          int
	spinnerFrame  int
	spinnerActive bool

	flashMessage   string
	flashExpiresAt time.Time

	quitting bool
}

// New creates a console model over backend. Nothing is fetched until Init.
func New(backend registry.Backend, opts Options) Model {
	pi := textinput.New()
	pi.Placeholder = "path/to/file.pdf"
	pi.CharLimit = 1024
	pi.Width = 50

	return Model{
		backend:       backend,
		ctrl:          listing.NewController(backend),
		files:         attachment.NewService(backend, attachment.Confirmed),
		version:       opts.Version,
		email:         opts.Email,
		role:          opts.Role,
		uploadRoles:   opts.UploadRoles,
		downloadDir:   opts.DownloadDir,
		pageSize:      registry.PageSize,
		filter:        newFilterForm(),
		pathInput:     pi,
		spinnerActive: true,
	}
}

// Init implements tea.Model. It commits the empty filter set, which loads
// page 1.
func (m Model) Init() tea.Cmd {
	req := m.ctrl.Commit()
	return tea.Batch(m.fetchPage(req), spinnerTick())
}

// pageLoadedMsg carries a settled page request.
type pageLoadedMsg struct {
	resp listing.Response
}

// detailLoadedMsg is sent when a partner's full record is loaded.
type detailLoadedMsg struct {
	row       registry.PartnerRow
	err       error
	requestID uint64
}

// uploadDoneMsg is sent when an upload settles.
type uploadDoneMsg struct {
	partnerID int64
	replace   bool
	err       error
}

// fileSavedMsg is sent when an attachment has been downloaded.
type fileSavedMsg struct {
	path string
	err  error
}

// flashClearMsg clears the flash message after timeout.
type flashClearMsg struct{}

// spinnerTickMsg advances the loading spinner animation.
type spinnerTickMsg struct{}

// spinnerFrames are the Braille dots animation frames.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const (
	spinnerInterval = 80 * time.Millisecond
	flashDuration   = 4 * time.Second
)

// fetchPage runs req against the backend. The controller is not touched
// here; the response is settled in Update.
func (m Model) fetchPage(req listing.Request) tea.Cmd {
	backend := m.backend
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = pageLoadedMsg{resp: listing.Response{Request: req, Err: fmt.Errorf("list panic: %v", r)}}
			}
		}()
		return pageLoadedMsg{resp: listing.Fetch(context.Background(), backend, req)}
	}
}

// loadDetail fetches the full record for one partner.
func (m Model) loadDetail(id int64) tea.Cmd {
	backend := m.backend
	requestID := m.detailRequestID
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = detailLoadedMsg{err: fmt.Errorf("detail panic: %v", r), requestID: requestID}
			}
		}()
		raw, err := backend.GetPartner(context.Background(), id)
		if err != nil {
			return detailLoadedMsg{err: err, requestID: requestID}
		}
		return detailLoadedMsg{row: registry.Project(*raw), requestID: requestID}
	}
}

// uploadFile sends a confirmed upload.
func (m Model) uploadFile(p pendingUpload) tea.Cmd {
	files := m.files
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = uploadDoneMsg{partnerID: p.row.ID, err: fmt.Errorf("upload panic: %v", r)}
			}
		}()
		err := files.UploadContent(context.Background(), p.row, p.name, p.content)
		return uploadDoneMsg{partnerID: p.row.ID, replace: p.row.HasAttachment, err: err}
	}
}

// saveFile downloads a partner's attachment into the download directory.
func (m Model) saveFile(row registry.PartnerRow) tea.Cmd {
	files := m.files
	dir := m.downloadDir
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = fileSavedMsg{err: fmt.Errorf("download panic: %v", r)}
			}
		}()
		f, err := files.View(context.Background(), row.ID)
		if err != nil {
			return fileSavedMsg{err: err}
		}
		path, err := attachment.Save(dir, row, f)
		return fileSavedMsg{path: path, err: err}
	}
}

// spinnerTick returns a command that fires a spinnerTickMsg after the spinner interval.
func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already active,
// and marks it as active. Call this when loading begins.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// loading reports whether any request is outstanding.
func (m Model) loading() bool {
	return m.ctrl.Loading() || m.detailLoading || m.busy > 0
}

// issue starts req and the spinner.
func (m Model) issue(req listing.Request) (Model, tea.Cmd) {
	m.inflight = req
	m.keepCursorSeq = 0
	spin := m.startSpinner()
	return m, tea.Batch(spin, m.fetchPage(req))
}

// refresh reloads the live page, keeping the row cursor.
func (m Model) refresh() (Model, tea.Cmd) {
	m, cmd := m.issue(m.ctrl.Refresh())
	m.keepCursorSeq = m.inflight.Seq
	return m, cmd
}

// canUpload reports whether the signed-in role may upload attachments.
func (m Model) canUpload() bool {
	return session.CanUpload(m.role, m.uploadRoles)
}

// rows returns the live page's rows.
func (m Model) rows() []registry.PartnerRow {
	return m.ctrl.Result().Rows
}

// selectedRow returns the row the user is acting on: the detail record in
// detail view, the cursor row otherwise.
func (m Model) selectedRow() (registry.PartnerRow, bool) {
	if m.level == levelDetail {
		return m.detailRow, true
	}
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return registry.PartnerRow{}, false
	}
	return rows[m.cursor], true
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// header(2) + column header(1) + separator(1) + info(1) + footer(1)
		m.pageSize = m.height - 6
		if m.pageSize < 1 {
			m.pageSize = 1
		}
		m.ensureCursorVisible()
		return m, nil

	case pageLoadedMsg:
		if !m.ctrl.Apply(msg.resp) {
			// Superseded by a later request.
			return m, nil
		}
		if msg.resp.Err != nil {
			return m, nil
		}
		m.settleRows(msg.resp.Seq)
		return m, nil

	case detailLoadedMsg:
		if msg.requestID != m.detailRequestID {
			return m, nil
		}
		m.detailLoading = false
		if msg.err != nil {
			return m.showFlash(registry.UserMessage(msg.err))
		}
		if m.level == levelDetail && msg.row.ID == m.detailRow.ID {
			m.detailRow = msg.row
		}
		return m, nil

	case uploadDoneMsg:
		m.busy--
		if msg.err != nil {
			m.modal = modalResult
			m.modalTitle = "Upload Failed"
			m.modalResult = registry.UserMessage(msg.err)
			return m, nil
		}
		// A page load still in flight may predate the upload, so it is
		// reissued rather than overtaken by a refresh of the old page.
		var cmd tea.Cmd
		if m.ctrl.Loading() {
			keep := m.keepCursorSeq == m.inflight.Seq
			m, cmd = m.issue(m.ctrl.Reissue(m.inflight))
			if keep {
				m.keepCursorSeq = m.inflight.Seq
			}
		} else {
			m, cmd = m.refresh()
		}
		cmds := []tea.Cmd{cmd}
		if m.level == levelDetail && m.detailRow.ID == msg.partnerID {
			m.detailRequestID++
			m.detailLoading = true
			cmds = append(cmds, m.loadDetail(msg.partnerID))
		}
		text := "File uploaded"
		if msg.replace {
			text = "File replaced"
		}
		m2, flash := m.showFlash(text)
		return m2, tea.Batch(append(cmds, flash)...)

	case fileSavedMsg:
		m.busy--
		if msg.err != nil {
			return m.showFlash(registry.UserMessage(msg.err))
		}
		return m.showFlash("Saved " + filepath.Base(msg.path) + " to " + filepath.Dir(msg.path))

	case flashClearMsg:
		// Clear flash message if it hasn't been updated since the timer started
		if time.Now().After(m.flashExpiresAt) || m.flashExpiresAt.IsZero() {
			m.flashMessage = ""
		}
		return m, nil

	case spinnerTickMsg:
		if m.loading() {
			m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
			return m, spinnerTick()
		}
		m.spinnerActive = false
		return m, nil
	}

	return m, nil
}

// settleRows positions the cursor on the page applied for seq and keeps an
// open detail view in step with it.
func (m *Model) settleRows(seq uint64) {
	rows := m.rows()
	if seq != m.keepCursorSeq {
		m.cursor = 0
		m.scrollOffset = 0
	}
	m.keepCursorSeq = 0
	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureCursorVisible()

	if m.level != levelDetail {
		return
	}
	for i, r := range rows {
		if r.ID == m.detailRow.ID {
			m.detailIndex = i
			return
		}
	}
	m.level = levelList
}

// showFlash displays a temporary notification.
func (m Model) showFlash(message string) (tea.Model, tea.Cmd) {
	m.flashMessage = message
	m.flashExpiresAt = time.Now().Add(flashDuration)
	return m, tea.Tick(flashDuration, func(t time.Time) tea.Msg {
		return flashClearMsg{}
	})
}

// beginUpload opens the file prompt for row, or explains why it can't.
func (m Model) beginUpload(row registry.PartnerRow) (tea.Model, tea.Cmd) {
	if !m.canUpload() {
		return m.showFlash("Your role cannot upload files")
	}
	m.upload = &pendingUpload{row: row}
	m.pathInput.SetValue("")
	m.modal = modalUploadPath
	return m, m.pathInput.Focus()
}

// stageUpload reads and validates the chosen file. Nothing is sent until
// the user confirms.
func (m Model) stageUpload(path string) (tea.Model, tea.Cmd) {
	m.pathInput.Blur()
	if m.upload == nil {
		m.modal = modalNone
		return m, nil
	}
	data, err := attachment.ReadFile(expandHome(path))
	if err == nil {
		err = attachment.Validate(path, data)
	}
	if err != nil {
		m.upload = nil
		m.modal = modalResult
		m.modalTitle = "Upload"
		m.modalResult = uploadErrorText(err)
		return m, nil
	}
	m.upload.name = filepath.Base(path)
	m.upload.content = data
	m.modal = modalUploadConfirm
	return m, nil
}

// confirmUpload sends the staged file.
func (m Model) confirmUpload() (tea.Model, tea.Cmd) {
	m.modal = modalNone
	if m.upload == nil {
		return m, nil
	}
	p := *m.upload
	m.upload = nil
	m.busy++
	spin := m.startSpinner()
	return m, tea.Batch(spin, m.uploadFile(p))
}

// viewFile downloads the selected row's attachment.
func (m Model) viewFile(row registry.PartnerRow) (tea.Model, tea.Cmd) {
	// The row's attachment flag may be stale, so the backend decides.
	m.busy++
	spin := m.startSpinner()
	return m, tea.Batch(spin, m.saveFile(row))
}

func uploadErrorText(err error) string {
	if errors.Is(err, attachment.ErrNotPDF) {
		return attachment.NotPDFMessage
	}
	return registry.UserMessage(err)
}
