package sources

import (
	"context"

	"github.com/kerbaras/mangaread/pkg/data"
)

// Catalog searches titles and lists a title's chapter feed.
type Catalog interface {
	Search(ctx context.Context, query string) ([]data.Manga, error)
	GetChapters(ctx context.Context, mangaID string) ([]data.Chapter, error)
}

// PageResolver maps a chapter id to its ordered page image locations.
type PageResolver interface {
	GetPages(ctx context.Context, chapterID string) ([]string, error)
}

type Source interface {
	Catalog
	PageResolver
}
