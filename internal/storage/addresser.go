package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nao1215/newscrawl/internal/model"
)

// HashText returns the lowercase hex SHA-256 digest of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Addresser uploads per-article units.
type Addresser struct {
	store Store
}

// NewAddresser creates an Addresser backed by store.
func NewAddresser(store Store) *Addresser {
	return &Addresser{store: store}
}

// ArticleCID uploads the rendered article HTML and its JSON record as one
// directory unit named after the title, and returns the unit CID.
// The record is uploaded as given, so callers set ContentHash first.
func (a *Addresser) ArticleCID(ctx context.Context, article model.ArticleRecord, html string) (string, error) {
	meta, err := json.Marshal(article)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}

	base := UnitName(article.Title)
	cid, err := a.store.Put(ctx,
		Blob{Name: base + ".html", ContentType: ContentTypeHTML, Data: []byte(html)},
		Blob{Name: base + ".json", ContentType: ContentTypeJSON, Data: meta},
	)
	if err != nil {
		return "", err
	}
	return cid, nil
}

// Record fetches the JSON record of an article unit.
func (a *Addresser) Record(ctx context.Context, cid, title string) (*model.ArticleRecord, error) {
	data, err := a.store.GetFile(ctx, cid, UnitName(title)+".json")
	if err != nil {
		return nil, err
	}
	var rec model.ArticleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid article record in %s: %w", cid, err)
	}
	return &rec, nil
}

// UnitName turns a title into a file name usable inside a unit.
func UnitName(title string) string {
	name := strings.TrimSpace(strings.ReplaceAll(title, "/", "-"))
	if name == "" {
		return "article"
	}
	return name
}
