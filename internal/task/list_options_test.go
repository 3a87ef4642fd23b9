package task

import (
	"errors"
	"testing"
	"time"
)

func TestParseLimit(t *testing.T) {
	valid := map[string]int{
		"":    DefaultLimit,
		"1":   1,
		"50":  50,
		"010": 10,
	}
	for raw, want := range valid {
		got, err := ParseLimit(raw)
		if err != nil || got != want {
			t.Fatalf("ParseLimit(%q) = %d, %v; want %d", raw, got, err, want)
		}
	}

	for _, raw := range []string{"0", "51", "-1", "abc", "1.5", "2e1", "99999999999999999999", " ", "  ", " 7 ", "7 "} {
		if _, err := ParseLimit(raw); !errors.Is(err, ErrInvalidLimit) {
			t.Fatalf("ParseLimit(%q) should fail with ErrInvalidLimit, got %v", raw, err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, status := range Statuses() {
		got, err := ParseStatus(string(status))
		if err != nil || got != status {
			t.Fatalf("ParseStatus(%q) = %q, %v", status, got, err)
		}
	}
	if got, err := ParseStatus(""); err != nil || got != "" {
		t.Fatalf("empty status should mean no filter, got %q, %v", got, err)
	}
	for _, raw := range []string{"bogus", "TODO", " todo"} {
		if _, err := ParseStatus(raw); !errors.Is(err, ErrInvalidStatusFilter) {
			t.Fatalf("ParseStatus(%q) should fail, got %v", raw, err)
		}
	}
}

func TestParseListQueryValidatesInOrder(t *testing.T) {
	cases := []struct {
		limit, status, cursor string
		want                  error
	}{
		{"0", "bogus", "bad", ErrInvalidLimit},
		{"2", "bogus", "bad", ErrInvalidStatusFilter},
		{"2", "todo", "bad", ErrInvalidCursor},
		{"2", "", "not-an-id", ErrInvalidCursor},
	}
	for _, tc := range cases {
		if _, err := ParseListQuery(tc.limit, tc.status, tc.cursor); !errors.Is(err, tc.want) {
			t.Fatalf("ParseListQuery(%q, %q, %q) = %v, want %v", tc.limit, tc.status, tc.cursor, err, tc.want)
		}
	}
}

func TestParseListQueryBuildsOptions(t *testing.T) {
	cursor := Cursor{CreatedAt: time.UnixMicro(1700000000000000).UTC(), ID: fixedID(3)}
	opts, err := ParseListQuery("5", "done", cursor.Encode())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	built, err := buildListOptions(opts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if built.Limit != 5 || built.Status != StatusDone || built.After == nil {
		t.Fatalf("unexpected options: %+v", built)
	}
	if built.After.ID != cursor.ID || !built.After.CreatedAt.Equal(cursor.CreatedAt) {
		t.Fatalf("unexpected cursor: %+v", built.After)
	}

	opts, err = ParseListQuery("", "", "")
	if err != nil {
		t.Fatalf("parse defaults: %v", err)
	}
	built, _ = buildListOptions(opts)
	if built.Limit != DefaultLimit || built.Status != "" || built.After != nil {
		t.Fatalf("unexpected defaults: %+v", built)
	}
}

func TestBuildListOptionsRejectsOutOfRange(t *testing.T) {
	for _, limit := range []int{0, -3, 51} {
		if _, err := buildListOptions([]ListOption{WithLimit(limit)}); !errors.Is(err, ErrInvalidLimit) {
			t.Fatalf("limit %d should be rejected, got %v", limit, err)
		}
	}
	if _, err := buildListOptions([]ListOption{WithStatus("archived")}); !errors.Is(err, ErrInvalidStatusFilter) {
		t.Fatalf("unknown status should be rejected, got %v", err)
	}
}
