package internal

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"nexuschat/internal/storage"
)

const (
	sendLimitPerWindow = 8
	sendLimitWindow    = 10 * time.Second
)

type appMode int

const (
	modeLoginEmail appMode = iota
	modeLoginPassword
	modeSidebar
	modeChannelName
	modeChat
)

// sidebarItem is one selectable row: a contact or a channel.
type sidebarItem struct {
	ref   ConversationRef
	label string
}

// TUIModel holds the terminal UI state and the chat engine components it
// drives.
type TUIModel struct {
	textInput textinput.Model

	apiBaseURL  string
	socketURL   string
	downloadDir string

	api     *APIClient
	cache   *storage.Cache
	session Session

	conn     *Conn
	events   <-chan ConversationEvent
	router   *Router
	store    *ConversationStore
	recency  *RecencyList
	unread   *UnreadTracker
	throttle *SendThrottle
	metrics  *Metrics

	uploader   *ChunkedUploader
	downloader *Downloader
	transferCh chan transferMsg

	mode         appMode
	email        string
	sidebarIndex int
	loading      bool
	notice       string

	connectionError error
	isConnected     bool

	uploading        bool
	uploadProgress   int
	downloading      bool
	downloadProgress int
}

// NewTUIModel wires the engine together. The socket handle, router, store,
// and lists are all owned here and injected into each other; nothing is
// global.
func NewTUIModel(apiBaseURL, socketURL, downloadDir, email string, cache *storage.Cache) *TUIModel {
	input := textinput.New()
	input.Placeholder = "Email…"
	input.CharLimit = 0
	input.Prompt = "email> "
	input.Focus()

	metrics := NewMetrics()
	store := NewConversationStore()
	recency := NewRecencyList()
	unread := NewUnreadTracker()

	return &TUIModel{
		textInput:   input,
		apiBaseURL:  apiBaseURL,
		socketURL:   socketURL,
		downloadDir: downloadDir,
		api:         NewAPIClient(apiBaseURL, ""),
		cache:       cache,
		conn:        NewConn(socketURL),
		store:       store,
		recency:     recency,
		unread:      unread,
		throttle:    NewSendThrottle(sendLimitPerWindow, sendLimitWindow),
		metrics:     metrics,
		transferCh:  make(chan transferMsg),
		mode:        modeLoginEmail,
		email:       email,
	}
}

// Init tries to restore the saved session before asking for credentials.
func (model *TUIModel) Init() tea.Cmd {
	if model.email != "" {
		model.textInput.SetValue(model.email)
	}
	return model.restoreSessionCmd()
}

// startSession finishes login: it binds the router and transfer coordinators
// to the authenticated identity and kicks off the socket plus sidebar seed.
func (model *TUIModel) startSession(session Session) tea.Cmd {
	model.session = session
	model.api.SetToken(session.AuthToken)
	model.router = NewRouter(session.UserID, model.store, model.recency, model.unread, model.metrics)

	model.uploader = NewChunkedUploader(model.api, model.metrics)
	model.uploader.OnProgress(model.pushProgress)
	model.downloader = NewDownloader(hostRoot(model.apiBaseURL), session.AuthToken, model.downloadDir, model.metrics)
	model.downloader.OnProgress(model.pushProgress)

	model.mode = modeSidebar
	model.textInput.SetValue("")
	model.textInput.Blur()
	model.textInput.Prompt = ""
	model.textInput.Placeholder = ""
	return tea.Batch(model.connectCmd(), model.seedSidebarCmd())
}

// endSession tears down the socket and forgets the stored credentials.
func (model *TUIModel) endSession() {
	model.conn.Disconnect()
	model.store.Reset()
	model.isConnected = false
	model.session = Session{}
	model.api.SetToken("")
	model.mode = modeLoginEmail
	model.textInput.SetValue(model.email)
	model.textInput.Prompt = "email> "
	model.textInput.Placeholder = "Email…"
	model.textInput.EchoMode = textinput.EchoNormal
	model.textInput.Focus()
}

// sidebarItems flattens contacts then channels into the selectable rows.
func (model *TUIModel) sidebarItems() []sidebarItem {
	var items []sidebarItem
	for _, contact := range model.recency.Contacts() {
		items = append(items, sidebarItem{
			ref:   ContactRef(contact.ID),
			label: displayName(contact),
		})
	}
	for _, channel := range model.recency.Channels() {
		items = append(items, sidebarItem{
			ref:   ChannelRef(channel.ID),
			label: "#" + channel.Name,
		})
	}
	return items
}

func (model *TUIModel) selectedItem() (sidebarItem, bool) {
	items := model.sidebarItems()
	if len(items) == 0 {
		return sidebarItem{}, false
	}
	if model.sidebarIndex >= len(items) {
		model.sidebarIndex = len(items) - 1
	}
	return items[model.sidebarIndex], true
}

func displayName(user UserRef) string {
	if user.Name != "" {
		return user.Name
	}
	if user.Email != "" {
		return user.Email
	}
	return user.ID
}

// RunClient launches the Bubble Tea program with the chat model.
func RunClient(apiBaseURL, socketURL, downloadDir, email string, cache *storage.Cache) error {
	program := tea.NewProgram(NewTUIModel(apiBaseURL, socketURL, downloadDir, email, cache))
	_, err := program.Run()
	return err
}
