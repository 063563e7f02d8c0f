// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"edger/internal/service"
)

// Fakes bundles in-memory collaborators for command tests.
type Fakes struct {
	Mail     *FakeMail
	Calendar *FakeCalendar
	Backend  *FakeBackend
	Links    *FakeLinks
	Account  *service.Account
}

// NewFakes creates connected fakes for account me@example.com with a primary calendar.
func NewFakes() *Fakes {
	return &Fakes{
		Mail:     NewFakeMail(),
		Calendar: NewFakeCalendar(),
		Backend:  &FakeBackend{},
		Links:    NewFakeLinks(),
		Account:  &service.Account{ID: "1", Email: "me@example.com", Name: "Me"},
	}
}

// Service returns the bundle as a service.Service. Nil fakes stay nil.
func (f *Fakes) Service() *service.Service {
	svc := &service.Service{Account: f.Account}
	if f.Mail != nil {
		svc.Mail = f.Mail
	}
	if f.Calendar != nil {
		svc.Calendar = f.Calendar
	}
	if f.Backend != nil {
		svc.Backend = f.Backend
	}
	if f.Links != nil {
		svc.Links = f.Links
	}
	return svc
}

// FakeMail is an in-memory implementation of service.Mail.
type FakeMail struct {
	mu       sync.RWMutex
	messages []service.Message
	labels   []service.Label

	// Modified records ModifyLabels calls as "id +ADD -REMOVE".
	Modified []string
	// Queries records ListMessages calls.
	Queries []service.MessageQuery

	// Error injection for testing
	ListErr   error
	GetErr    error
	ThreadErr error
	LabelsErr error
	ModifyErr error
}

// NewFakeMail creates an empty mailbox with the INBOX and UNREAD labels.
func NewFakeMail() *FakeMail {
	return &FakeMail{
		labels: []service.Label{
			{ID: service.LabelInbox, Name: "INBOX", Type: "system"},
			{ID: service.LabelUnread, Name: "UNREAD", Type: "system"},
		},
	}
}

// AddMessage appends a message. InternalDate orders nothing; listing order is insertion order.
func (f *FakeMail) AddMessage(id, from, subject, body string, labels ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, service.Message{
		ID:       id,
		ThreadID: "t-" + id,
		LabelIDs: labels,
		Snippet:  body,
		Payload: &service.Part{
			MimeType: "text/plain",
			Headers: []service.Header{
				{Name: "From", Value: from},
				{Name: "Subject", Value: subject},
				{Name: "Date", Value: "Mon, 19 Oct 2026 09:30:00 +0000"},
			},
		},
	})
}

// AddLabel appends a label.
func (f *FakeMail) AddLabel(l service.Label) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = append(f.labels, l)
}

func (f *FakeMail) matches(m service.Message, q service.MessageQuery) bool {
	for _, l := range q.LabelIDs {
		if !slices.Contains(m.LabelIDs, l) {
			return false
		}
	}
	for _, term := range strings.Fields(strings.ToLower(q.Q)) {
		switch term {
		case "is:unread":
			if !m.IsUnread() {
				return false
			}
			continue
		case "is:starred":
			if !m.IsStarred() {
				return false
			}
			continue
		}
		text := strings.ToLower(m.Subject() + " " + m.From() + " " + m.Snippet)
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// ListMessages implements service.Mail. PageToken is an offset.
func (f *FakeMail) ListMessages(ctx context.Context, q service.MessageQuery) (service.MessagePage, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, q)
	f.mu.Unlock()
	if f.ListErr != nil {
		return service.MessagePage{}, f.ListErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var refs []service.MessageRef
	for _, m := range f.messages {
		if f.matches(m, q) {
			refs = append(refs, service.MessageRef{ID: m.ID, ThreadID: m.ThreadID})
		}
	}

	maxResults := int(q.MaxResults)
	if maxResults <= 0 {
		maxResults = service.DefaultMaxResults
	}
	offset, _ := strconv.Atoi(q.PageToken)
	page := service.MessagePage{ResultSizeEstimate: int64(len(refs))}
	if offset < len(refs) {
		end := min(offset+maxResults, len(refs))
		page.Messages = refs[offset:end]
		if end < len(refs) {
			page.NextPageToken = strconv.Itoa(end)
		}
	}
	return page, nil
}

// GetMessage implements service.Mail.
func (f *FakeMail) GetMessage(ctx context.Context, id string, format service.MessageFormat) (service.Message, error) {
	if f.GetErr != nil {
		return service.Message{}, f.GetErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, m := range f.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return service.Message{}, service.ErrNotFound
}

// FetchMessages implements service.Mail.
func (f *FakeMail) FetchMessages(ctx context.Context, ids []string, format service.MessageFormat) ([]service.Message, error) {
	out := make([]service.Message, 0, len(ids))
	for _, id := range ids {
		m, err := f.GetMessage(ctx, id, format)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GetThread implements service.Mail.
func (f *FakeMail) GetThread(ctx context.Context, id string, format service.MessageFormat) (service.Thread, error) {
	if f.ThreadErr != nil {
		return service.Thread{}, f.ThreadErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	th := service.Thread{ID: id}
	for _, m := range f.messages {
		if m.ThreadID == id {
			th.Messages = append(th.Messages, m)
		}
	}
	if len(th.Messages) == 0 {
		return service.Thread{}, service.ErrNotFound
	}
	return th, nil
}

// Labels implements service.Mail.
func (f *FakeMail) Labels(ctx context.Context) ([]service.Label, error) {
	if f.LabelsErr != nil {
		return nil, f.LabelsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.labels), nil
}

// ModifyLabels implements service.Mail.
func (f *FakeMail) ModifyLabels(ctx context.Context, id string, add, remove []string) error {
	if f.ModifyErr != nil {
		return f.ModifyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		m := &f.messages[i]
		if m.ID != id {
			continue
		}
		labels := slices.DeleteFunc(slices.Clone(m.LabelIDs), func(l string) bool {
			return slices.Contains(remove, l)
		})
		for _, l := range add {
			if !slices.Contains(labels, l) {
				labels = append(labels, l)
			}
		}
		m.LabelIDs = labels
		f.Modified = append(f.Modified, fmt.Sprintf("%s +%s -%s", id, strings.Join(add, ","), strings.Join(remove, ",")))
		return nil
	}
	return service.ErrNotFound
}

// Message returns the stored message with id.
func (f *FakeMail) Message(id string) (service.Message, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, m := range f.messages {
		if m.ID == id {
			return m, true
		}
	}
	return service.Message{}, false
}

// FakeCalendar is an in-memory implementation of service.Calendar.
type FakeCalendar struct {
	mu        sync.RWMutex
	calendars []service.CalendarInfo
	events    map[string][]service.Event
	nextID    int

	// Error injection for testing
	CalendarsErr error
	EventsErr    map[string]error // calendarID -> error
	CreateErr    error
	UpdateErr    error
	DeleteErr    error
	FreeBusyErr  error
}

// NewFakeCalendar creates a fake with only the primary calendar.
func NewFakeCalendar() *FakeCalendar {
	return &FakeCalendar{
		calendars: []service.CalendarInfo{
			{ID: service.PrimaryCalendar, Summary: "me@example.com", Primary: true, AccessRole: "owner"},
		},
		events:    make(map[string][]service.Event),
		EventsErr: make(map[string]error),
	}
}

// AddCalendar appends a calendar.
func (f *FakeCalendar) AddCalendar(id, summary string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendars = append(f.calendars, service.CalendarInfo{ID: id, Summary: summary, AccessRole: "reader"})
}

// AddEvent stores a timed event.
func (f *FakeCalendar) AddEvent(calendarID, id, summary string, start, end time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[calendarID] = append(f.events[calendarID], service.Event{
		ID:         id,
		CalendarID: calendarID,
		Summary:    summary,
		Start:      service.EventTime{DateTime: start},
		End:        service.EventTime{DateTime: end},
		Status:     "confirmed",
	})
}

// AddAllDayEvent stores an all-day event on date (YYYY-MM-DD).
func (f *FakeCalendar) AddAllDayEvent(calendarID, id, summary, date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[calendarID] = append(f.events[calendarID], service.Event{
		ID:         id,
		CalendarID: calendarID,
		Summary:    summary,
		Start:      service.EventTime{Date: date},
		End:        service.EventTime{Date: date},
		Status:     "confirmed",
	})
}

// Event returns the stored event.
func (f *FakeCalendar) Event(calendarID, id string) (service.Event, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.events[calendarID] {
		if e.ID == id {
			return e, true
		}
	}
	return service.Event{}, false
}

// Calendars implements service.Calendar.
func (f *FakeCalendar) Calendars(ctx context.Context) ([]service.CalendarInfo, error) {
	if f.CalendarsErr != nil {
		return nil, f.CalendarsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.calendars), nil
}

// Events implements service.Calendar. An event is returned when it starts in
// [timeMin, timeMax]; all-day dates resolve in UTC.
func (f *FakeCalendar) Events(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int) ([]service.Event, error) {
	if calendarID == "" {
		calendarID = service.PrimaryCalendar
	}
	if err := f.EventsErr[calendarID]; err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []service.Event
	for _, e := range f.events[calendarID] {
		start := e.Start.Time(time.UTC)
		if !timeMin.IsZero() && start.Before(timeMin) {
			continue
		}
		if !timeMax.IsZero() && start.After(timeMax) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Time(time.UTC).Before(out[j].Start.Time(time.UTC))
	})
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

// CreateEvent implements service.Calendar.
func (f *FakeCalendar) CreateEvent(ctx context.Context, calendarID string, req service.EventRequest) (service.Event, error) {
	if f.CreateErr != nil {
		return service.Event{}, f.CreateErr
	}
	if calendarID == "" {
		calendarID = service.PrimaryCalendar
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e := service.Event{
		ID:          fmt.Sprintf("evt-%d", f.nextID),
		CalendarID:  calendarID,
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Start:       req.Start,
		End:         req.End,
		ColorID:     req.ColorID,
		Reminders:   req.Reminders,
		Status:      "confirmed",
	}
	for _, a := range req.Attendees {
		e.Attendees = append(e.Attendees, service.Person{Email: a})
	}
	f.events[calendarID] = append(f.events[calendarID], e)
	return e, nil
}

// UpdateEvent implements service.Calendar with patch semantics.
func (f *FakeCalendar) UpdateEvent(ctx context.Context, calendarID, eventID string, req service.EventRequest) (service.Event, error) {
	if f.UpdateErr != nil {
		return service.Event{}, f.UpdateErr
	}
	if calendarID == "" {
		calendarID = service.PrimaryCalendar
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events[calendarID] {
		e := &f.events[calendarID][i]
		if e.ID != eventID {
			continue
		}
		if req.Summary != "" {
			e.Summary = req.Summary
		}
		if req.Description != "" {
			e.Description = req.Description
		}
		if req.Location != "" {
			e.Location = req.Location
		}
		if !req.Start.IsZero() {
			e.Start = req.Start
		}
		if !req.End.IsZero() {
			e.End = req.End
		}
		if req.ColorID != "" {
			e.ColorID = req.ColorID
		}
		if req.Reminders != nil {
			e.Reminders = req.Reminders
		}
		return *e, nil
	}
	return service.Event{}, service.ErrNotFound
}

// DeleteEvent implements service.Calendar.
func (f *FakeCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if calendarID == "" {
		calendarID = service.PrimaryCalendar
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.events[calendarID]
	for i, e := range events {
		if e.ID == eventID {
			f.events[calendarID] = slices.Delete(events, i, i+1)
			return nil
		}
	}
	return service.ErrNotFound
}

// FreeBusy implements service.Calendar from the stored timed events.
func (f *FakeCalendar) FreeBusy(ctx context.Context, req service.FreeBusyRequest) (service.FreeBusyResponse, error) {
	if f.FreeBusyErr != nil {
		return service.FreeBusyResponse{}, f.FreeBusyErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	resp := service.FreeBusyResponse{Calendars: make(map[string]service.BusyCalendar)}
	for _, id := range req.Items {
		events, ok := f.events[id]
		if !ok && !slices.ContainsFunc(f.calendars, func(c service.CalendarInfo) bool { return c.ID == id }) {
			resp.Calendars[id] = service.BusyCalendar{Errors: []service.FreeBusyError{{Domain: "global", Reason: "notFound"}}}
			continue
		}
		var bc service.BusyCalendar
		for _, e := range events {
			if e.Start.DateTime.IsZero() {
				continue
			}
			if e.End.DateTime.After(req.TimeMin) && e.Start.DateTime.Before(req.TimeMax) {
				bc.Busy = append(bc.Busy, service.Interval{Start: e.Start.DateTime, End: e.End.DateTime})
			}
		}
		resp.Calendars[id] = bc
	}
	return resp, nil
}

// FakeBackend is an in-memory implementation of service.Backend.
type FakeBackend struct {
	mu sync.Mutex

	TaskList   []service.Task
	Onboarded  bool
	ChatReply  service.AgentResponse
	ChatFunc   func(message string) (service.AgentResponse, error)
	Created    []service.TaskRequest
	ChatLog    []string
	Onboarding []service.Onboarding
	Tokens     []service.GoogleTokens

	// Error injection for testing
	ChatErr       error
	CreateErr     error
	TasksErr      error
	OnboardingErr error
	SubmitErr     error
	TokenErr      error
}

// Chat implements service.Backend.
func (f *FakeBackend) Chat(ctx context.Context, message string) (service.AgentResponse, error) {
	f.mu.Lock()
	f.ChatLog = append(f.ChatLog, message)
	fn := f.ChatFunc
	f.mu.Unlock()

	if f.ChatErr != nil {
		return service.AgentResponse{}, f.ChatErr
	}
	if fn != nil {
		return fn(message)
	}
	return f.ChatReply, nil
}

// CreateTask implements service.Backend. Created tasks are listed by Tasks.
func (f *FakeBackend) CreateTask(ctx context.Context, task service.TaskRequest) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Created = append(f.Created, task)
	f.TaskList = append(f.TaskList, service.Task{
		ID:      len(f.TaskList) + 1,
		Type:    task.Type,
		Title:   task.Title,
		Context: task.Context,
		Period:  task.Period,
	})
	return nil
}

// Tasks implements service.Backend.
func (f *FakeBackend) Tasks(ctx context.Context) ([]service.Task, error) {
	if f.TasksErr != nil {
		return nil, f.TasksErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.TaskList), nil
}

// OnboardingStatus implements service.Backend.
func (f *FakeBackend) OnboardingStatus(ctx context.Context) (bool, error) {
	if f.OnboardingErr != nil {
		return false, f.OnboardingErr
	}
	return f.Onboarded, nil
}

// SubmitOnboarding implements service.Backend.
func (f *FakeBackend) SubmitOnboarding(ctx context.Context, data service.Onboarding) error {
	if f.SubmitErr != nil {
		return f.SubmitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Onboarding = append(f.Onboarding, data)
	f.Onboarded = true
	return nil
}

// SubmitToken implements service.Backend.
func (f *FakeBackend) SubmitToken(ctx context.Context, tokens service.GoogleTokens) error {
	if f.TokenErr != nil {
		return f.TokenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tokens = append(f.Tokens, tokens)
	return nil
}

// FakeLinks is an in-memory implementation of service.Links.
type FakeLinks struct {
	mu    sync.Mutex
	links map[string]service.Link

	SaveErr error
}

// NewFakeLinks creates an empty link index.
func NewFakeLinks() *FakeLinks {
	return &FakeLinks{links: make(map[string]service.Link)}
}

// SaveLink implements service.Links.
func (f *FakeLinks) SaveLink(ctx context.Context, link service.Link) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	f.links[link.EventID] = link
	return nil
}

// LinkByTask implements service.Links.
func (f *FakeLinks) LinkByTask(ctx context.Context, title string) (service.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best service.Link
	found := false
	for _, l := range f.links {
		if strings.EqualFold(l.TaskTitle, title) && (!found || l.CreatedAt.After(best.CreatedAt)) {
			best, found = l, true
		}
	}
	if !found {
		return service.Link{}, service.ErrNotFound
	}
	return best, nil
}

// LinkByEvent implements service.Links.
func (f *FakeLinks) LinkByEvent(ctx context.Context, eventID string) (service.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[eventID]
	if !ok {
		return service.Link{}, service.ErrNotFound
	}
	return l, nil
}

// Links implements service.Links, ordered by start.
func (f *FakeLinks) Links(ctx context.Context) ([]service.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Link, 0, len(f.links))
	for _, l := range f.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// DeleteLink implements service.Links.
func (f *FakeLinks) DeleteLink(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, eventID)
	return nil
}
