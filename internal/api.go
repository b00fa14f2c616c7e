package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var httpTimeout = 10 * time.Second

var errUnauthorized = errors.New("unauthorized")

// APIClient talks to the REST backend. Every call except signin carries the
// session's bearer token.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewAPIClient wraps the backend base URL (".../api/v1", trailing slash
// trimmed). The token may be set later via SetToken once signin completes.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

func (a *APIClient) SetToken(token string) {
	a.token = token
}

type signinResponse struct {
	Token string `json:"token"`
	Data  struct {
		User struct {
			ID     string `json:"_id"`
			Name   string `json:"name"`
			Email  string `json:"email"`
			Active bool   `json:"active"`
		} `json:"user"`
	} `json:"data"`
}

// Signin exchanges credentials for a Session and stores the bearer token on
// the client.
func (a *APIClient) Signin(email, password string) (Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp signinResponse
	if err := a.doJSON(http.MethodPost, "/users/signin", payload, &resp); err != nil {
		return Session{}, err
	}
	if resp.Token == "" || resp.Data.User.ID == "" {
		return Session{}, errors.New("signin response missing token or user id")
	}
	if !resp.Data.User.Active {
		return Session{}, errors.New("account is inactive")
	}
	a.token = resp.Token
	return Session{UserID: resp.Data.User.ID, AuthToken: resp.Token}, nil
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// GetMessages fetches the ordered direct-message history with one contact.
func (a *APIClient) GetMessages(contactID string) ([]Message, error) {
	payload := map[string]string{"id": contactID}
	var resp messagesResponse
	if err := a.doJSON(http.MethodPost, "/messages/get-messages", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// GetChannelMessages fetches the ordered history for a channel.
func (a *APIClient) GetChannelMessages(channelID string) ([]Message, error) {
	var resp messagesResponse
	path := "/channel/get-channel-messages/" + url.PathEscape(channelID)
	if err := a.doJSON(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

type contactsResponse struct {
	Contacts []UserRef `json:"contacts"`
}

// GetContacts fetches the DM contact list, already in recency order.
func (a *APIClient) GetContacts() ([]UserRef, error) {
	var resp contactsResponse
	if err := a.doJSON(http.MethodGet, "/users/get-contacts-for-dm", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

type channelsResponse struct {
	Channels []ChannelEntry `json:"channels"`
}

// GetChannels fetches the channels the user is a member of.
func (a *APIClient) GetChannels() ([]ChannelEntry, error) {
	var resp channelsResponse
	if err := a.doJSON(http.MethodGet, "/channel/get-user-channels", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

type createChannelResponse struct {
	Channel ChannelEntry `json:"channel"`
}

// CreateChannel creates a channel with the given members and returns it.
func (a *APIClient) CreateChannel(name string, memberIDs []string) (ChannelEntry, error) {
	payload := map[string]interface{}{"name": name, "members": memberIDs}
	var resp createChannelResponse
	if err := a.doJSON(http.MethodPost, "/channel/create-channel", payload, &resp); err != nil {
		return ChannelEntry{}, err
	}
	return resp.Channel, nil
}

func (a *APIClient) doJSON(method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(buf)
	}
	req, err := http.NewRequest(method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func readResponseError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "request failed"
	}
	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err == nil {
		if msg, ok := parsed["message"]; ok {
			return msg
		}
	}
	return strings.TrimSpace(string(data))
}
