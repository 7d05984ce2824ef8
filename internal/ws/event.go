package ws

import "time"

// Wire format: one JSON object per websocket message, tagged by "type".
// Timestamps are assigned server-side at broadcast time, UTC RFC 3339.

type inboundEvent struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
}

type systemEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

type chatEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Message  string `json:"message"`
	Time     string `json:"time"`
}

type fileEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Time     string `json:"time"`
}

type userlistEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

func newSystemEvent(message string, at time.Time) systemEvent {
	return systemEvent{Type: "system", Message: message, Time: stamp(at)}
}

func newChatEvent(username, message string, at time.Time) chatEvent {
	return chatEvent{Type: "chat", Username: username, Message: message, Time: stamp(at)}
}

func newFileEvent(username, url, filename, mimetype string, at time.Time) fileEvent {
	return fileEvent{
		Type:     "file",
		Username: username,
		URL:      url,
		Filename: filename,
		Mimetype: mimetype,
		Time:     stamp(at),
	}
}

// newUserlistEvent always carries a non-nil list so the JSON is "users":[],
// never "users":null.
func newUserlistEvent(users []string) userlistEvent {
	if users == nil {
		users = []string{}
	}
	return userlistEvent{Type: "userlist", Users: users}
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
