package commands

import (
	"testing"
	"time"

	"edger/internal/service"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     Ref
		consumed int
	}{
		{"numeric", []string{"5"}, Ref{Num: 5}, 1},
		{"numeric with rest", []string{"2", "15:00"}, Ref{Num: 2}, 1},
		{"combined", []string{"a1"}, Ref{Letter: 'a', Num: 1, HasLetter: true}, 1},
		{"combined multi digit", []string{"b12"}, Ref{Letter: 'b', Num: 12, HasLetter: true}, 1},
		{"separated", []string{"c", "3"}, Ref{Letter: 'c', Num: 3, HasLetter: true}, 2},
		{"separated with rest", []string{"a", "1", "15:00"}, Ref{Letter: 'a', Num: 1, HasLetter: true}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, n, err := ParseRef(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, ref)
			}
			if n != tt.consumed {
				t.Errorf("expected %d consumed args, got %d", tt.consumed, n)
			}
		})
	}
}

func TestParseRef_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no args", nil, "reference required"},
		{"letter only", []string{"a"}, "reference required"},
		{"zero", []string{"0"}, "invalid reference: 0"},
		{"letter zero", []string{"a0"}, "invalid reference: a0"},
		{"separated zero", []string{"a", "0"}, "invalid reference: 0"},
		{"letter then word", []string{"a", "b"}, "invalid reference: a"},
		{"uppercase", []string{"A1"}, "invalid reference: A1"},
		{"word", []string{"abc"}, "invalid reference: abc"},
		{"negative", []string{"-1"}, "invalid reference: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseRef(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, err.Error())
			}
			if _, ok := err.(*UsageError); !ok {
				t.Errorf("expected a usage error, got %T", err)
			}
		})
	}
}

func TestRef_String(t *testing.T) {
	if got := (Ref{Num: 3}).String(); got != "3" {
		t.Errorf("expected 3, got %q", got)
	}
	if got := (Ref{Letter: 'b', Num: 12, HasLetter: true}).String(); got != "b12" {
		t.Errorf("expected b12, got %q", got)
	}
}

func TestResolveRef(t *testing.T) {
	groups := []agendaGroup{
		{Calendar: service.CalendarInfo{ID: "primary", Primary: true}, Events: []service.Event{{ID: "p1"}, {ID: "p2"}}},
		{Letter: 'a', Calendar: service.CalendarInfo{ID: "team"}, Events: []service.Event{{ID: "t1"}}},
	}

	tests := []struct {
		name    string
		ref     Ref
		wantID  string
		wantErr string
	}{
		{"primary", Ref{Num: 2}, "p2", ""},
		{"lettered", Ref{Letter: 'a', Num: 1, HasLetter: true}, "t1", ""},
		{"primary out of range", Ref{Num: 3}, "", "event not found: 3"},
		{"lettered out of range", Ref{Letter: 'a', Num: 2, HasLetter: true}, "", "event not found: a2"},
		{"unknown letter", Ref{Letter: 'c', Num: 1, HasLetter: true}, "", "calendar letter not found: c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := resolveRef(groups, tt.ref)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Errorf("expected error %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.ID != tt.wantID {
				t.Errorf("expected %s, got %s", tt.wantID, ev.ID)
			}
		})
	}
}

func TestResolveMessage(t *testing.T) {
	page := service.MessagePage{Messages: []service.MessageRef{{ID: "m1"}, {ID: "m2"}}}

	if id, err := resolveMessage("2", page); err != nil || id != "m2" {
		t.Errorf("expected m2, got %q (%v)", id, err)
	}
	if id, err := resolveMessage("18c2f0a", page); err != nil || id != "18c2f0a" {
		t.Errorf("expected id to pass through, got %q (%v)", id, err)
	}
	if _, err := resolveMessage("3", page); err == nil || err.Error() != "message not found: 3" {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := resolveMessage("", page); err != ErrRefRequired {
		t.Errorf("expected ErrRefRequired, got %v", err)
	}
}

func TestParseStart(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	today := time.Date(2026, 10, 19, 7, 15, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"15:30", time.Date(2026, 10, 19, 15, 30, 0, 0, loc)},
		{"2026-10-21 09:00", time.Date(2026, 10, 21, 9, 0, 0, 0, loc)},
		{"2026-10-21T09:00", time.Date(2026, 10, 21, 9, 0, 0, 0, loc)},
		{"2026-10-21T09:00:00Z", time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseStart(tt.in, loc, today)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.in, tt.want, got)
		}
	}

	if _, err := parseStart("", loc, today); err == nil || err.Error() != "--start is required" {
		t.Errorf("expected missing start error, got %v", err)
	}
	if _, err := parseStart("tomorrow", loc, today); err == nil {
		t.Error("expected error for invalid start")
	}
}

func TestParseDay(t *testing.T) {
	today := time.Date(2026, 10, 19, 9, 15, 0, 0, time.UTC)

	got, err := parseDay("", time.UTC, today)
	if err != nil || !got.Equal(today) {
		t.Errorf("expected today, got %v (%v)", got, err)
	}
	got, err = parseDay("2026-10-22", time.UTC, today)
	if err != nil || !got.Equal(time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected Oct 22, got %v (%v)", got, err)
	}
	if _, err := parseDay("22/10", time.UTC, today); err == nil || err.Error() != "invalid date: 22/10 (want YYYY-MM-DD)" {
		t.Errorf("expected invalid date error, got %v", err)
	}
}

func TestStringList(t *testing.T) {
	var s stringList
	_ = s.Set("a")
	_ = s.Set("b")
	if s.String() != "a,b" {
		t.Errorf("expected a,b, got %q", s.String())
	}
}
