package service

import (
	"encoding/json"
	"time"
)

// TaskType is the kind of automation a task performs.
type TaskType string

const (
	TaskEmail TaskType = "EMAIL"
	TaskWeb   TaskType = "WEB"
	TaskTodo  TaskType = "TODO"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskEmail, TaskWeb, TaskTodo:
		return true
	}
	return false
}

// TaskContext describes what a task does.
type TaskContext struct {
	Prompt   string `json:"prompt"`
	Priority string `json:"priority"`
	URL      string `json:"url,omitempty"`
}

// TaskRequest is a task proposal or creation request.
type TaskRequest struct {
	Title   string      `json:"title"`
	Type    TaskType    `json:"type_"`
	Context TaskContext `json:"context"`
	Period  string      `json:"period"`
}

// UnmarshalJSON accepts both "type_" and "type"; the agent emits the latter.
func (t *TaskRequest) UnmarshalJSON(data []byte) error {
	type plain TaskRequest
	var aux struct {
		plain
		AltType TaskType `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = TaskRequest(aux.plain)
	if t.Type == "" {
		t.Type = aux.AltType
	}
	return nil
}

// Task is a task stored by the backend.
type Task struct {
	ID        int         `json:"id_"`
	Type      TaskType    `json:"type_"`
	Title     string      `json:"title"`
	Context   TaskContext `json:"context"`
	Period    string      `json:"period"`
	LastRunTS string      `json:"last_run_ts"`
}

// AgentAction is the kind of answer the agent gave.
type AgentAction string

const (
	ActionCreateTask        AgentAction = "create_task"
	ActionRunTask           AgentAction = "run_task"
	ActionReshuffleCalendar AgentAction = "reshuffle_calendar"
	ActionNoTask            AgentAction = "no_task"
)

// AgentResponse is the agent's reply to a chat message.
type AgentResponse struct {
	Type  AgentAction   `json:"type_"`
	Text  string        `json:"text"`
	Tasks []TaskRequest `json:"tasks,omitempty"`
}

// Onboarding is the one-time setup payload.
type Onboarding struct {
	Context     map[string]any `json:"context"`
	Preferences []string       `json:"preferences"`
	CalendarURL string         `json:"calendar_url"`
	GoogleToken *GoogleTokens  `json:"google_token"`
}

// GoogleTokens is the persisted and forwarded token set.
// ExpiryDate is in Unix milliseconds.
type GoogleTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
	ExpiryDate   int64  `json:"expiry_date"`
}

// Expiry returns the expiry as a time. Zero ExpiryDate yields the zero time.
func (t GoogleTokens) Expiry() time.Time {
	if t.ExpiryDate == 0 {
		return time.Time{}
	}
	return time.UnixMilli(t.ExpiryDate)
}

// Expired reports whether the access token has expired at now.
func (t GoogleTokens) Expired(now time.Time) bool {
	return t.ExpiryDate != 0 && !now.Before(t.Expiry())
}

// Account is the connected Google user profile.
type Account struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Link ties a calendar event to the task it was created for.
type Link struct {
	EventID    string
	CalendarID string
	TaskTitle  string
	Start      time.Time
	End        time.Time
	CreatedAt  time.Time
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the in-memory conversation.
type ChatMessage struct {
	ID            string
	Role          Role
	Content       string
	Timestamp     time.Time
	AgentResponse *AgentResponse
}
