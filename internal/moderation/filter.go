package moderation

import (
	"context"
	"strings"
	"time"

	"bontroc_backend/internal/common"

	"github.com/gosimple/slug"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Filter rejects member-written text containing a banned word.
type Filter interface {
	Check(ctx context.Context, texts ...string) error
}

const wordsKey = "banned_words"

// WordFilter matches whole words after transliteration, so "Arnaque" and
// "arnaqué" hit the same entry while "arnaques" does not. The word list is
// cached and dropped whenever an admin edits it.
type WordFilter struct {
	repo   Repository
	cache  *cache.Cache
	logger *zap.Logger
}

func NewWordFilter(repo Repository, ttl time.Duration, logger *zap.Logger) *WordFilter {
	return &WordFilter{
		repo:   repo,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger.Named("WordFilter"),
	}
}

// normalize maps text to "-word-word-" so a contains check is a whole-word
// match.
func normalize(text string) string {
	return "-" + slug.Make(text) + "-"
}

func (f *WordFilter) words(ctx context.Context) ([]string, error) {
	if cached, ok := f.cache.Get(wordsKey); ok {
		return cached.([]string), nil
	}
	words, err := f.repo.NormalizedWords(ctx)
	if err != nil {
		return nil, err
	}
	f.cache.SetDefault(wordsKey, words)
	return words, nil
}

// Invalidate forces the next Check to reload the list.
func (f *WordFilter) Invalidate() {
	f.cache.Delete(wordsKey)
}

// Check fails open when the list cannot be loaded; a database hiccup should
// not block every message.
func (f *WordFilter) Check(ctx context.Context, texts ...string) error {
	words, err := f.words(ctx)
	if err != nil {
		f.logger.Warn("Banned word list unavailable, skipping filter", zap.Error(err))
		return nil
	}
	if len(words) == 0 {
		return nil
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		haystack := normalize(text)
		for _, w := range words {
			if strings.Contains(haystack, "-"+w+"-") {
				return common.ErrUnprocessableEntity.WithDetails("Your text contains a forbidden word.")
			}
		}
	}
	return nil
}
