package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	appTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	sidebarBoxStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2).MarginTop(1)
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	chatHeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle   = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle  = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	errorStyle       = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true).MarginTop(1)
	messageBoxStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2).MarginTop(1)
	inputBoxStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	timestampStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	usernameStyle    = lipgloss.NewStyle().Bold(true)
	ownNameStyle     = usernameStyle.Copy().Foreground(lipgloss.Color("213"))
	messageBodyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("253"))
	fileTagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	itemStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	unreadBadgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dividerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
	senderPalette    = []lipgloss.Color{
		lipgloss.Color("45"),
		lipgloss.Color("81"),
		lipgloss.Color("141"),
		lipgloss.Color("98"),
		lipgloss.Color("63"),
		lipgloss.Color("135"),
		lipgloss.Color("32"),
	}
)

func (model *TUIModel) View() string {
	switch model.mode {
	case modeLoginEmail, modeLoginPassword:
		return model.renderLoginView()
	case modeSidebar:
		return model.renderSidebarView()
	case modeChannelName:
		return model.renderPrompt("New channel", "Enter a channel name and press Enter. Esc cancels.")
	default:
		return model.renderChatView()
	}
}

func (model *TUIModel) renderLoginView() string {
	hint := "Enter your email"
	if model.mode == modeLoginPassword {
		hint = "Enter your password"
	}
	return model.renderPrompt("NexusChat", hint)
}

func (model *TUIModel) renderPrompt(title, hint string) string {
	viewSections := []string{
		appTitleStyle.Render(title),
		hintStyle.Render(hint),
	}

	if model.loading {
		viewSections = append(viewSections, connectingStyle.Render("Working…"))
	}
	if model.notice != "" {
		viewSections = append(viewSections, noticeStyle.Render(model.notice))
	}

	viewSections = append(viewSections, inputBoxStyle.Render(model.textInput.View()))

	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model *TUIModel) renderSidebarView() string {
	title := appTitleStyle.Render("NexusChat")
	subtitle := subtitleStyle.Render(fmt.Sprintf("Contacts: %d  |  Channels: %d  |  Unread: %d",
		len(model.recency.Contacts()), len(model.recency.Channels()), model.unread.Total()))

	viewSections := []string{title, subtitle, model.renderStatusLine()}

	if model.loading {
		viewSections = append(viewSections, connectingStyle.Render("Loading conversations…"))
	}
	if model.notice != "" {
		viewSections = append(viewSections, noticeStyle.Render(model.notice))
	}

	items := model.sidebarItems()
	var lines []string
	if len(items) == 0 {
		lines = append(lines, hintStyle.Render("No conversations yet. Press c to create a channel."))
	} else {
		for idx, item := range items {
			label := item.label
			if count := model.unread.Count(item.ref); count > 0 {
				label = fmt.Sprintf("%s %s", label, unreadBadgeStyle.Render(fmt.Sprintf("(%d)", count)))
			}
			if idx == model.sidebarIndex {
				lines = append(lines, selectedStyle.Render("➤ ")+itemStyle.Render(label))
			} else {
				lines = append(lines, itemStyle.Render("  "+label))
			}
		}
	}
	viewSections = append(viewSections, sidebarBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	viewSections = append(viewSections, hintStyle.Render("↑/↓ select • Enter open • c new channel • L logout • q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model *TUIModel) renderChatView() string {
	headerSegments := []string{"NexusChat"}
	active := model.store.Active()
	if label := model.labelFor(active); label != "" {
		headerSegments = append(headerSegments, label)
	}
	headerSegments = append(headerSegments, fmt.Sprintf("Server %s", model.apiBaseURL))
	header := chatHeaderStyle.Render(strings.Join(headerSegments, dividerStyle))

	sections := []string{header, model.renderStatusLine()}

	if model.loading {
		sections = append(sections, connectingStyle.Render("Loading history…"))
	}
	if model.notice != "" {
		sections = append(sections, noticeStyle.Render(model.notice))
	}

	var messageLines []string
	for _, msg := range model.store.Messages() {
		messageLines = append(messageLines, model.renderMessage(msg))
	}
	if len(messageLines) == 0 {
		messageLines = append(messageLines, hintStyle.Render("No messages yet. Say hi and start the conversation."))
	}
	sections = append(sections, messageBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, messageLines...)))

	if model.uploading {
		sections = append(sections, connectingStyle.Render(fmt.Sprintf("Uploading… %d%%", model.uploadProgress)))
	}
	if model.downloading {
		sections = append(sections, connectingStyle.Render(fmt.Sprintf("Downloading… %d%%", model.downloadProgress)))
	}

	sections = append(sections, inputBoxStyle.Render(model.textInput.View()))
	sections = append(sections, hintStyle.Render("Esc back • /upload <path> • /download • /leave • /quit"))
	sections = append(sections, hintStyle.Render(model.metrics.String()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *TUIModel) renderStatusLine() string {
	switch {
	case model.connectionError != nil:
		return errorStyle.Render("Connection error: " + model.connectionError.Error())
	case model.isConnected:
		return connectedStyle.Render("Connected")
	default:
		return connectingStyle.Render("Connecting…")
	}
}

// renderMessage renders one conversation line: timestamp, colored sender,
// then the text body or a tagged file link.
func (model *TUIModel) renderMessage(msg Message) string {
	timestamp := timestampStyle.Render(fmt.Sprintf("[%s]", msg.Timestamp.Local().Format("15:04:05")))

	var nameStyle lipgloss.Style
	if msg.Senders.ID == model.session.UserID {
		nameStyle = ownNameStyle
	} else {
		nameStyle = usernameStyle.Copy().Foreground(colorForSender(msg.Senders.ID))
	}
	name := nameStyle.Render(displayName(msg.Senders))

	var body string
	if msg.MessageType == MessageFile {
		body = fileTagStyle.Render("[file] ") + messageBodyStyle.Render(msg.FileURL)
	} else {
		body = messageBodyStyle.Render(strings.ReplaceAll(msg.Content, "\n", "\n   "))
	}

	return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", name, ": ", body)
}

func (model *TUIModel) labelFor(ref ConversationRef) string {
	switch ref.Kind {
	case KindContact:
		for _, contact := range model.recency.Contacts() {
			if contact.ID == ref.ID {
				return displayName(contact)
			}
		}
		return ref.ID
	case KindChannel:
		for _, channel := range model.recency.Channels() {
			if channel.ID == ref.ID {
				return "#" + channel.Name
			}
		}
		return ref.ID
	default:
		return ""
	}
}

func colorForSender(id string) lipgloss.Color {
	if id == "" {
		return senderPalette[0]
	}
	var sum int
	for _, r := range id {
		sum += int(r)
	}
	return senderPalette[sum%len(senderPalette)]
}
