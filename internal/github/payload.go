package github

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Webhook wire types. go-github's event structs decode labels strictly as
// objects and timestamps strictly as one format; these accept every shape
// GitHub has sent across event sub-types and API versions.

// IssuesEventPayload is the body of an "issues" webhook
type IssuesEventPayload struct {
	Action       string               `json:"action"`
	Issue        *IssuePayload        `json:"issue"`
	Repository   *RepositoryPayload   `json:"repository"`
	Installation *InstallationPayload `json:"installation"`
	Sender       *UserPayload         `json:"sender"`
}

// IssuePayload is the "issue" object of an issues webhook
type IssuePayload struct {
	ID                int64           `json:"id"`
	Number            int             `json:"number"`
	Title             Text            `json:"title"`
	Body              Text            `json:"body"`
	State             string          `json:"state"`
	User              *UserPayload    `json:"user"`
	AuthorAssociation string          `json:"author_association"`
	Labels            LabelList       `json:"labels"`
	CreatedAt         Timestamp       `json:"created_at"`
	UpdatedAt         Timestamp       `json:"updated_at"`
	PullRequest       json.RawMessage `json:"pull_request"`
}

// UserPayload is a GitHub account reference
type UserPayload struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// UnmarshalJSON accepts a user object or a bare login. Fields of the wrong
// type are left zero.
func (u *UserPayload) UnmarshalJSON(data []byte) error {
	*u = UserPayload{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		_ = json.Unmarshal(data, &u.Login)
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil
		}
		_ = json.Unmarshal(fields["login"], &u.Login)
		_ = json.Unmarshal(fields["id"], &u.ID)
	}
	return nil
}

// Text is a string field that decodes null and non-string values as empty
type Text string

// UnmarshalJSON never fails
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
	}
	return nil
}

// LabelList is the labels field: an array of LabelRef, or a single label
// given on its own. Other values decode to an empty list.
type LabelList []LabelRef

// UnmarshalJSON never fails
func (l *LabelList) UnmarshalJSON(data []byte) error {
	*l = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '[':
		var refs []LabelRef
		if err := json.Unmarshal(data, &refs); err == nil {
			*l = refs
		}
	case '"', '{':
		var ref LabelRef
		_ = ref.UnmarshalJSON(data)
		*l = LabelList{ref}
	}
	return nil
}

// RepositoryPayload is the "repository" object of a webhook
type RepositoryPayload struct {
	Name     string       `json:"name"`
	FullName string       `json:"full_name"`
	Owner    *UserPayload `json:"owner"`
}

// InstallationPayload identifies the GitHub App installation that sent the event
type InstallationPayload struct {
	ID int64 `json:"id"`
}

// LabelRef is a label given either as a bare name or as a label object
type LabelRef struct {
	Name string
}

// UnmarshalJSON accepts "name", {"name": "..."} and null. Anything else
// decodes to an empty name, which the mapper drops.
func (l *LabelRef) UnmarshalJSON(data []byte) error {
	l.Name = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			l.Name = s
		}
	case '{':
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err == nil {
			l.Name = obj.Name
		}
	}
	return nil
}

// Timestamp is a webhook time that may be an RFC 3339 string or unix seconds.
// Unparsable values leave it zero.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON never fails; bad input yields the zero time
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			t.Time = parsed
		}
		return nil
	}
	if secs, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		t.Time = time.Unix(secs, 0).UTC()
	}
	return nil
}
