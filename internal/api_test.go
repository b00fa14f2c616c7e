package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/signin" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if creds["email"] != "alice@example.com" || creds["password"] != "secret" {
			http.Error(w, `{"message":"bad credentials"}`, http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"token":"tok-1","data":{"user":{"_id":"u-alice","email":"alice@example.com","active":true}}}`)
	}))
	defer server.Close()

	api := NewAPIClient(server.URL, "")
	session, err := api.Signin("alice@example.com", "secret")
	if err != nil {
		t.Fatalf("Signin: %v", err)
	}
	if session.UserID != "u-alice" || session.AuthToken != "tok-1" {
		t.Fatalf("unexpected session: %+v", session)
	}

	if _, err := api.Signin("alice@example.com", "wrong"); err == nil {
		t.Fatal("bad credentials must error")
	}
}

func TestSigninRejectsInactiveAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":"tok-1","data":{"user":{"_id":"u-alice","active":false}}}`)
	}))
	defer server.Close()

	if _, err := NewAPIClient(server.URL, "").Signin("a@b.c", "x"); err == nil {
		t.Fatal("inactive accounts must be rejected")
	}
}

func TestAPIClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"contacts":[{"_id":"u-bob","name":"Bob"}]}`)
	}))
	defer server.Close()

	api := NewAPIClient(server.URL, "tok-9")
	contacts, err := api.GetContacts()
	if err != nil {
		t.Fatalf("GetContacts: %v", err)
	}
	if gotAuth != "Bearer tok-9" {
		t.Fatalf("authorization header: %q", gotAuth)
	}
	if len(contacts) != 1 || contacts[0].ID != "u-bob" {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}
}

func TestAPIClientUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"token expired"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewAPIClient(server.URL, "stale").GetChannels()
	if !errors.Is(err, errUnauthorized) {
		t.Fatalf("expected errUnauthorized, got %v", err)
	}
}

func TestGetMessagesPostsContactID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/get-messages" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["id"] != "u-bob" {
			http.Error(w, `{"message":"wrong id"}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"messages":[
			{"_id":"m1","senders":{"_id":"u-bob"},"recipient":{"_id":"u-me"},"messageType":"text","content":"first"},
			{"_id":"m2","senders":{"_id":"u-me"},"recipient":{"_id":"u-bob"},"messageType":"file","fileUrl":"/files/x.png"}
		]}`)
	}))
	defer server.Close()

	messages, err := NewAPIClient(server.URL, "tok").GetMessages("u-bob")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "m1" || messages[1].ID != "m2" {
		t.Fatalf("unexpected history: %+v", messages)
	}
}

func TestGetChannelMessagesEscapesID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"messages":[]}`)
	}))
	defer server.Close()

	if _, err := NewAPIClient(server.URL, "tok").GetChannelMessages("ch-1"); err != nil {
		t.Fatalf("GetChannelMessages: %v", err)
	}
	if gotPath != "/channel/get-channel-messages/ch-1" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
}

func TestCreateChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string   `json:"name"`
			Members []string `json:"members"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Name != "plans" || len(req.Members) != 2 {
			http.Error(w, `{"message":"bad request"}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"channel":{"_id":"ch-new","name":"plans"}}`)
	}))
	defer server.Close()

	channel, err := NewAPIClient(server.URL, "tok").CreateChannel("plans", []string{"u-a", "u-b"})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if channel.ID != "ch-new" || channel.Name != "plans" {
		t.Fatalf("unexpected channel: %+v", channel)
	}
}
