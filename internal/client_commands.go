package internal

import (
	"context"
	"errors"
	"log"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nexuschat/internal/storage"
)

// these bubbletea messages carry asynchronous results back into Update.
type (
	sessionMsg struct {
		session  Session
		restored bool
		err      error
	}
	connectedMsg     struct{}
	connectFailedMsg struct{ err error }
	socketEventMsg   ConversationEvent
	socketClosedMsg  struct{ err error }
	sidebarSeedMsg   struct {
		contacts  []UserRef
		channels  []ChannelEntry
		fromCache bool
		err       error
	}
	historyMsg struct {
		ref       ConversationRef
		messages  []Message
		fromCache bool
		err       error
	}
	sendFailedMsg struct{ err error }
	transferMsg   struct {
		progress  TransferProgress
		done      bool
		direction TransferDirection
		ref       ConversationRef
		url       string
		mediaType string
		path      string
		err       error
	}
	channelCreatedMsg struct {
		channel ChannelEntry
		err     error
	}
)

const cacheTimeout = 3 * time.Second

// restoreSessionCmd loads the saved session from the local cache so a
// restart does not require logging in again.
func (model *TUIModel) restoreSessionCmd() tea.Cmd {
	return func() tea.Msg {
		if model.cache == nil {
			return sessionMsg{restored: true, err: storage.ErrNoSession}
		}
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		userID, token, err := model.cache.LoadSession(ctx)
		if err != nil {
			return sessionMsg{restored: true, err: err}
		}
		return sessionMsg{session: Session{UserID: userID, AuthToken: token}, restored: true}
	}
}

// loginCmd exchanges credentials for a session and persists it locally.
func (model *TUIModel) loginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		session, err := model.api.Signin(email, password)
		if err != nil {
			return sessionMsg{err: err}
		}
		if model.cache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
			defer cancel()
			if err := model.cache.SaveSession(ctx, session.UserID, session.AuthToken); err != nil {
				log.Printf("cache: save session: %v", err)
			}
		}
		return sessionMsg{session: session}
	}
}

// connectCmd dials the realtime socket for the current session.
func (model *TUIModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		if err := model.conn.Connect(model.session); err != nil {
			return connectFailedMsg{err: err}
		}
		return connectedMsg{}
	}
}

// readEventCmd pulls the next inbound delivery off the connection's ordered
// channel; we schedule it repeatedly so events are handled one at a time.
func (model *TUIModel) readEventCmd() tea.Cmd {
	events := model.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return socketClosedMsg{err: model.conn.Err()}
		}
		return socketEventMsg(ev)
	}
}

// seedSidebarCmd fetches the contact and channel lists. When the backend is
// unreachable the cached copies keep the sidebar usable.
func (model *TUIModel) seedSidebarCmd() tea.Cmd {
	return func() tea.Msg {
		contacts, contactsErr := model.api.GetContacts()
		channels, channelsErr := model.api.GetChannels()
		if contactsErr == nil && channelsErr == nil {
			model.persistSidebar(contacts, channels)
			return sidebarSeedMsg{contacts: contacts, channels: channels}
		}

		err := contactsErr
		if err == nil {
			err = channelsErr
		}
		log.Printf("sidebar: seed fetch failed: %v", err)
		if model.cache == nil {
			return sidebarSeedMsg{err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		cachedContacts, cErr := model.cache.ListContacts(ctx)
		cachedChannels, chErr := model.cache.ListChannels(ctx)
		if cErr != nil || chErr != nil {
			return sidebarSeedMsg{err: err}
		}
		return sidebarSeedMsg{
			contacts:  contactsFromCache(cachedContacts),
			channels:  channelsFromCache(cachedChannels),
			fromCache: true,
			err:       err,
		}
	}
}

// historyCmd fetches the ordered history for a conversation, falling back to
// the local cache when the fetch fails. A failure with a cold cache leaves
// the list empty.
func (model *TUIModel) historyCmd(ref ConversationRef) tea.Cmd {
	return func() tea.Msg {
		var (
			messages []Message
			err      error
		)
		switch ref.Kind {
		case KindContact:
			messages, err = model.api.GetMessages(ref.ID)
		case KindChannel:
			messages, err = model.api.GetChannelMessages(ref.ID)
		default:
			return nil
		}
		if err == nil {
			model.persistHistory(ref, messages)
			return historyMsg{ref: ref, messages: messages}
		}

		log.Printf("history: fetch for %s %s failed: %v", ref.Kind, ref.ID, err)
		if model.cache == nil {
			return historyMsg{ref: ref, err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		cached, cacheErr := model.cache.ListMessages(ctx, int(ref.Kind), ref.ID)
		if cacheErr != nil || len(cached) == 0 {
			return historyMsg{ref: ref, err: err}
		}
		return historyMsg{ref: ref, messages: messagesFromCache(ref, cached), fromCache: true, err: err}
	}
}

// sendTextCmd emits a text message for the active conversation.
func (model *TUIModel) sendTextCmd(ref ConversationRef, content string) tea.Cmd {
	return model.emitCmd(ref, content, "")
}

// sendFileCmd emits a file message carrying the uploaded media URL.
func (model *TUIModel) sendFileCmd(ref ConversationRef, fileURL string) tea.Cmd {
	return model.emitCmd(ref, "", fileURL)
}

func (model *TUIModel) emitCmd(ref ConversationRef, content, fileURL string) tea.Cmd {
	return func() tea.Msg {
		messageType := MessageText
		if fileURL != "" {
			messageType = MessageFile
		}
		var err error
		switch ref.Kind {
		case KindContact:
			err = model.conn.Emit(EventSendDirect, SendMessagePayload{
				Senders:     model.session.UserID,
				Content:     content,
				Recipient:   ref.ID,
				MessageType: messageType,
				FileURL:     fileURL,
			})
		case KindChannel:
			err = model.conn.Emit(EventSendChannel, SendChannelMessagePayload{
				Senders:     model.session.UserID,
				Content:     content,
				MessageType: messageType,
				FileURL:     fileURL,
				ChannelID:   ref.ID,
			})
		default:
			return nil
		}
		if err != nil {
			return sendFailedMsg{err: err}
		}
		model.metrics.IncSent()
		// the server echoes the send back over the socket, which is what
		// lands it in the conversation store
		return nil
	}
}

// startUploadCmd runs the chunked upload on its own goroutine and begins
// draining progress ticks into Update.
func (model *TUIModel) startUploadCmd(path string, ref ConversationRef) tea.Cmd {
	ch := model.transferCh
	go func() {
		session, err := model.uploader.Upload(path)
		msg := transferMsg{done: true, direction: DirectionUpload, ref: ref, err: err}
		if session != nil {
			msg.url = session.ResultURL
			msg.mediaType = session.MediaType
		}
		ch <- msg
	}()
	return model.waitTransferCmd()
}

// startDownloadCmd streams the attachment to disk on its own goroutine.
func (model *TUIModel) startDownloadCmd(fileURL string) tea.Cmd {
	ch := model.transferCh
	go func() {
		path, err := model.downloader.Download(fileURL)
		ch <- transferMsg{done: true, direction: DirectionDownload, path: path, err: err}
	}()
	return model.waitTransferCmd()
}

// waitTransferCmd delivers the next progress tick or completion; Update
// chains it until the transfer reports done.
func (model *TUIModel) waitTransferCmd() tea.Cmd {
	ch := model.transferCh
	return func() tea.Msg {
		return <-ch
	}
}

// pushProgress is the coordinators' progress callback; it feeds the same
// channel the wait command drains.
func (model *TUIModel) pushProgress(progress TransferProgress) {
	model.transferCh <- transferMsg{progress: progress, direction: progress.Direction}
}

// createChannelCmd asks the backend for a new channel.
func (model *TUIModel) createChannelCmd(name string) tea.Cmd {
	return func() tea.Msg {
		memberIDs := make([]string, 0, len(model.recency.Contacts()))
		for _, contact := range model.recency.Contacts() {
			memberIDs = append(memberIDs, contact.ID)
		}
		channel, err := model.api.CreateChannel(name, memberIDs)
		return channelCreatedMsg{channel: channel, err: err}
	}
}

// persistEventCmd mirrors a delivered message into the local cache.
func (model *TUIModel) persistEventCmd(ev ConversationEvent) tea.Cmd {
	if model.cache == nil {
		return nil
	}
	ref := model.router.eventRef(ev)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		if err := model.cache.AppendMessage(ctx, int(ref.Kind), ref.ID, messageToCache(ev.Message)); err != nil {
			log.Printf("cache: append message: %v", err)
		}
		return nil
	}
}

func (model *TUIModel) persistSidebar(contacts []UserRef, channels []ChannelEntry) {
	if model.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := model.cache.ReplaceContacts(ctx, contactsToCache(contacts)); err != nil {
		log.Printf("cache: save contacts: %v", err)
	}
	if err := model.cache.ReplaceChannels(ctx, channelsToCache(channels)); err != nil {
		log.Printf("cache: save channels: %v", err)
	}
}

func (model *TUIModel) persistHistory(ref ConversationRef, messages []Message) {
	if model.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := model.cache.ReplaceMessages(ctx, int(ref.Kind), ref.ID, messagesToCache(messages)); err != nil {
		log.Printf("cache: save history: %v", err)
	}
}

// logoutCmd clears the saved session; the socket is torn down in Update.
func (model *TUIModel) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		if model.cache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
			defer cancel()
			if err := model.cache.ClearSession(ctx); err != nil && !errors.Is(err, storage.ErrNoSession) {
				log.Printf("cache: clear session: %v", err)
			}
		}
		return nil
	}
}

// hostRoot strips the API path from the base URL, leaving scheme and host.
// Attachment paths are served from the backend root, not under /api/v1.
func hostRoot(apiBaseURL string) string {
	parsed, err := url.Parse(apiBaseURL)
	if err != nil {
		return apiBaseURL
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}
