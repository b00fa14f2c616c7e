package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"nexuschat/internal/storage"
)

// Update is the single state-transition function: key events and the async
// results produced by the commands all land here.
func (model *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return model.handleKey(msg)

	case sessionMsg:
		model.loading = false
		if msg.err != nil {
			if !errors.Is(msg.err, storage.ErrNoSession) && !msg.restored {
				model.notice = fmt.Sprintf("login failed: %v", msg.err)
			}
			model.mode = modeLoginEmail
			model.textInput.EchoMode = textinput.EchoNormal
			model.textInput.Prompt = "email> "
			model.textInput.Placeholder = "Email…"
			model.textInput.SetValue(model.email)
			model.textInput.Focus()
			return model, nil
		}
		return model, model.startSession(msg.session)

	case connectedMsg:
		model.isConnected = true
		model.connectionError = nil
		model.events = model.conn.Events()
		return model, model.readEventCmd()

	case connectFailedMsg:
		model.isConnected = false
		model.connectionError = msg.err
		return model, nil

	case socketEventMsg:
		ev := ConversationEvent(msg)
		model.router.HandleEvent(ev)
		return model, tea.Batch(model.persistEventCmd(ev), model.readEventCmd())

	case socketClosedMsg:
		model.isConnected = false
		if msg.err != nil {
			model.connectionError = msg.err
		}
		return model, nil

	case sidebarSeedMsg:
		model.loading = false
		if msg.err != nil && msg.contacts == nil && msg.channels == nil {
			model.notice = fmt.Sprintf("could not load conversations: %v", msg.err)
			return model, nil
		}
		model.recency.SetContacts(msg.contacts)
		model.recency.SetChannels(msg.channels)
		if msg.fromCache {
			model.notice = "backend unreachable, showing cached conversations"
		}
		return model, nil

	case historyMsg:
		model.loading = false
		if msg.err != nil && msg.messages == nil {
			model.notice = fmt.Sprintf("could not load history: %v", msg.err)
			return model, nil
		}
		model.store.SetHistory(msg.ref, msg.messages)
		if msg.fromCache {
			model.notice = "backend unreachable, showing cached history"
		}
		return model, nil

	case sendFailedMsg:
		model.notice = fmt.Sprintf("send failed: %v", msg.err)
		return model, nil

	case transferMsg:
		return model.handleTransfer(msg)

	case channelCreatedMsg:
		model.loading = false
		model.mode = modeSidebar
		model.textInput.Blur()
		model.textInput.SetValue("")
		if msg.err != nil {
			model.notice = fmt.Sprintf("create channel failed: %v", msg.err)
			return model, nil
		}
		model.recency.AddChannel(msg.channel)
		model.persistSidebar(model.recency.Contacts(), model.recency.Channels())
		model.notice = fmt.Sprintf("channel #%s created", msg.channel.Name)
		return model, nil
	}

	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(msg)
	return model, cmd
}

func (model *TUIModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyCtrlC {
		model.conn.Disconnect()
		return model, tea.Quit
	}

	switch model.mode {
	case modeLoginEmail:
		if key.Type == tea.KeyEnter {
			email := strings.TrimSpace(model.textInput.Value())
			if email == "" {
				return model, nil
			}
			model.email = email
			model.notice = ""
			model.mode = modeLoginPassword
			model.textInput.SetValue("")
			model.textInput.Prompt = "password> "
			model.textInput.Placeholder = "Password…"
			model.textInput.EchoMode = textinput.EchoPassword
			return model, nil
		}

	case modeLoginPassword:
		switch key.Type {
		case tea.KeyEsc:
			model.mode = modeLoginEmail
			model.textInput.SetValue(model.email)
			model.textInput.Prompt = "email> "
			model.textInput.Placeholder = "Email…"
			model.textInput.EchoMode = textinput.EchoNormal
			return model, nil
		case tea.KeyEnter:
			password := model.textInput.Value()
			if password == "" {
				return model, nil
			}
			model.textInput.SetValue("")
			model.textInput.EchoMode = textinput.EchoNormal
			model.loading = true
			return model, model.loginCmd(model.email, password)
		}

	case modeSidebar:
		return model.handleSidebarKey(key)

	case modeChannelName:
		switch key.Type {
		case tea.KeyEsc:
			model.mode = modeSidebar
			model.textInput.Blur()
			model.textInput.SetValue("")
			return model, nil
		case tea.KeyEnter:
			name := strings.TrimSpace(model.textInput.Value())
			if name == "" {
				return model, nil
			}
			model.loading = true
			return model, model.createChannelCmd(name)
		}

	case modeChat:
		return model.handleChatKey(key)
	}

	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(key)
	return model, cmd
}

func (model *TUIModel) handleSidebarKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := model.sidebarItems()
	switch key.String() {
	case "up", "k":
		if model.sidebarIndex > 0 {
			model.sidebarIndex--
		}
	case "down", "j":
		if model.sidebarIndex < len(items)-1 {
			model.sidebarIndex++
		}
	case "enter":
		item, ok := model.selectedItem()
		if !ok {
			return model, nil
		}
		model.store.Select(item.ref)
		model.unread.Clear(item.ref)
		model.mode = modeChat
		model.notice = ""
		model.loading = true
		model.textInput.SetValue("")
		model.textInput.Prompt = "> "
		model.textInput.Placeholder = "Message…"
		model.textInput.Focus()
		return model, model.historyCmd(item.ref)
	case "c":
		model.mode = modeChannelName
		model.textInput.SetValue("")
		model.textInput.Prompt = "channel name> "
		model.textInput.Placeholder = ""
		model.textInput.Focus()
	case "L":
		model.endSession()
		return model, model.logoutCmd()
	case "q":
		model.conn.Disconnect()
		return model, tea.Quit
	}
	return model, nil
}

func (model *TUIModel) handleChatKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		// leaving the pane drops its in-memory messages; reopening refetches
		model.store.Reset()
		model.mode = modeSidebar
		model.notice = ""
		model.textInput.Blur()
		model.textInput.SetValue("")
		return model, nil
	case tea.KeyEnter:
		line := strings.TrimSpace(model.textInput.Value())
		model.textInput.SetValue("")
		if line == "" {
			return model, nil
		}
		if strings.HasPrefix(line, "/") {
			return model.handleChatCommand(line)
		}
		return model, model.sendCurrent(line, "")
	}

	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(key)
	return model, cmd
}

func (model *TUIModel) handleChatCommand(line string) (tea.Model, tea.Cmd) {
	command, rest, _ := strings.Cut(line, " ")
	switch command {
	case "/quit":
		model.conn.Disconnect()
		return model, tea.Quit
	case "/leave":
		model.store.Reset()
		model.mode = modeSidebar
		model.textInput.Blur()
		return model, nil
	case "/upload":
		path := strings.TrimSpace(rest)
		if path == "" {
			model.notice = "usage: /upload <path>"
			return model, nil
		}
		if model.uploading || model.downloading {
			model.notice = "a transfer is already running"
			return model, nil
		}
		model.uploading = true
		model.uploadProgress = 0
		return model, model.startUploadCmd(path, model.store.Active())
	case "/download":
		fileURL := model.lastFileURL()
		if fileURL == "" {
			model.notice = "no file message in this conversation"
			return model, nil
		}
		if model.uploading || model.downloading {
			model.notice = "a transfer is already running"
			return model, nil
		}
		model.downloading = true
		model.downloadProgress = 0
		return model, model.startDownloadCmd(fileURL)
	default:
		model.notice = fmt.Sprintf("unknown command %s", command)
		return model, nil
	}
}

// sendCurrent emits either a text line or an uploaded file URL into the
// active conversation, subject to the per-conversation send throttle.
func (model *TUIModel) sendCurrent(content, fileURL string) tea.Cmd {
	ref := model.store.Active()
	if ref.IsZero() {
		return nil
	}
	if !model.throttle.Allow(ref) {
		model.notice = "sending too fast, slow down"
		return nil
	}
	if fileURL != "" {
		return model.sendFileCmd(ref, fileURL)
	}
	return model.sendTextCmd(ref, content)
}

func (model *TUIModel) handleTransfer(msg transferMsg) (tea.Model, tea.Cmd) {
	if !msg.done {
		switch msg.direction {
		case DirectionUpload:
			model.uploadProgress = msg.progress.Percent
		case DirectionDownload:
			model.downloadProgress = msg.progress.Percent
		}
		return model, model.waitTransferCmd()
	}

	switch msg.direction {
	case DirectionUpload:
		model.uploading = false
		model.uploadProgress = 0
		if msg.err != nil {
			model.notice = fmt.Sprintf("upload failed: %v", msg.err)
			return model, nil
		}
		model.notice = ""
		if msg.ref.IsZero() {
			return model, nil
		}
		if !model.throttle.Allow(msg.ref) {
			model.notice = "sending too fast, slow down"
			return model, nil
		}
		return model, model.sendFileCmd(msg.ref, msg.url)
	case DirectionDownload:
		model.downloading = false
		model.downloadProgress = 0
		if msg.err != nil {
			model.notice = fmt.Sprintf("download failed: %v", msg.err)
			return model, nil
		}
		model.notice = fmt.Sprintf("saved %s", msg.path)
		return model, nil
	}
	return model, nil
}

// lastFileURL walks the active conversation backwards for the newest file
// attachment.
func (model *TUIModel) lastFileURL() string {
	messages := model.store.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].MessageType == MessageFile && messages[i].FileURL != "" {
			return messages[i].FileURL
		}
	}
	return ""
}
