package models

import "testing"

func TestNewListSource(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		base    string
		wantErr bool
	}{
		{name: "canonical", raw: "https://example.test/user/list/top/", base: "https://example.test/user/list/top/"},
		{name: "adds slash", raw: "https://example.test/user/list/top", base: "https://example.test/user/list/top/"},
		{name: "strips query", raw: " https://example.test/user/list/top/?sort=asc#frag ", base: "https://example.test/user/list/top/"},
		{name: "relative", raw: "user/list/top", wantErr: true},
		{name: "garbage", raw: "::", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewListSource(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src.BaseURL != tt.base {
				t.Fatalf("base = %q, want %q", src.BaseURL, tt.base)
			}
			if src.Page != 1 || !src.HasMore {
				t.Fatalf("new source must start on page 1 with more pages: %+v", src)
			}
		})
	}
}

func TestListSourcePageURL(t *testing.T) {
	src, err := NewListSource("https://example.test/user/list/top/")
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	if got := src.PageURL(1); got != "https://example.test/user/list/top/" {
		t.Fatalf("page 1 = %q", got)
	}
	if got := src.PageURL(3); got != "https://example.test/user/list/top/page/3/" {
		t.Fatalf("page 3 = %q", got)
	}
	src.Page = 2
	if got := src.CurrentURL(); got != "https://example.test/user/list/top/page/2/" {
		t.Fatalf("current = %q", got)
	}
	if got := src.Name(); got != "top" {
		t.Fatalf("name = %q, want top", got)
	}
}

func TestListName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "https://example.test/user/list/top-250/", want: "top-250"},
		{raw: "https://example.test/user/list/top-250", want: "top-250"},
		{raw: "", want: "list"},
		{raw: "/", want: "list"},
	}
	for _, tt := range tests {
		if got := ListName(tt.raw); got != tt.want {
			t.Errorf("ListName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestRecordWithRankCopies(t *testing.T) {
	rank := 4
	base := Record{Title: "Heat", Year: "1995", ID: "1"}

	ranked := base.WithRank(&rank)
	rank = 9
	if ranked.Rank == nil || *ranked.Rank != 4 {
		t.Fatalf("rank must be copied, got %v", ranked.Rank)
	}
	if base.Rank != nil {
		t.Fatalf("receiver must stay unranked")
	}
	if base.WithRank(nil).Ranked() {
		t.Fatalf("nil rank must yield unranked record")
	}
	if got := ranked.DedupKey(); got != "Heat_1995" {
		t.Fatalf("dedup key = %q", got)
	}
}

func TestDedupKeySeparatesTitleFromYear(t *testing.T) {
	tests := []struct {
		a, b Record
	}{
		{Record{Title: "Foo2019"}, Record{Title: "Foo", Year: "2019"}},
		{Record{Title: "Alien 3", Year: "1992"}, Record{Title: "Alien ", Year: "31992"}},
	}
	for _, tt := range tests {
		if tt.a.DedupKey() == tt.b.DedupKey() {
			t.Errorf("%+v and %+v share key %q", tt.a, tt.b, tt.a.DedupKey())
		}
	}
}
