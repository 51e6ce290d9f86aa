package storage

import (
	"encoding/json"
	"testing"

	"github.com/nao1215/newscrawl/internal/model"
)

func TestHashText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := HashText(tt.input); got != tt.want {
				t.Errorf("HashText(%q) = %s, want %s", tt.input, got, tt.want)
			}
			if HashText(tt.input) != HashText(tt.input) {
				t.Error("HashText is not deterministic")
			}
		})
	}
}

func TestUnitName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Plain":           "Plain",
		"Red/Blue States": "Red-Blue States",
		"   ":             "article",
	}
	for in, want := range tests {
		if got := UnitName(in); got != want {
			t.Errorf("UnitName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddresser_ArticleCID(t *testing.T) {
	t.Parallel()

	store := newTestLocalStore(t)
	a := NewAddresser(store)
	ctx := t.Context()

	article := model.ArticleRecord{
		Title:       "Markets/Today",
		Link:        "https://www.nytimes.com/2023/05/10/business/markets.html",
		Author:      "Jane Doe",
		ReleaseDate: "2023-05-10",
		ContentHash: HashText("body"),
	}

	cid, err := a.ArticleCID(ctx, article, `<meta charset="UTF-8"><p>body</p>`)
	if err != nil {
		t.Fatal(err)
	}

	html, err := store.GetFile(ctx, cid, "Markets-Today.html")
	if err != nil {
		t.Fatal(err)
	}
	if string(html) != `<meta charset="UTF-8"><p>body</p>` {
		t.Errorf("unexpected html %q", html)
	}

	raw, err := store.GetFile(ctx, cid, "Markets-Today.json")
	if err != nil {
		t.Fatal(err)
	}
	var stored model.ArticleRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatal(err)
	}
	if stored.ContentHash != article.ContentHash || stored.CID != "" {
		t.Errorf("unexpected stored record %+v", stored)
	}

	rec, err := a.Record(ctx, cid, article.Title)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Link != article.Link {
		t.Errorf("Record() link = %q", rec.Link)
	}
}
