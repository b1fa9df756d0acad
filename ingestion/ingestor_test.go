package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/rcopley/faved/models"
	"github.com/rcopley/faved/twitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fakes

type fakeFetcher struct {
	posts []twitter.Post
	err   error
}

func (f *fakeFetcher) Likes(ctx context.Context, accessToken, accessSecret string, count int) ([]twitter.Post, error) {
	return f.posts, f.err
}

type fakeSummarizer struct {
	calls []string
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return "", f.err
	}
	return "summary of: " + text, nil
}

type fakeBookmarkStore struct {
	existing   map[string]bool // external ids already in the table, any owner
	inserted   []models.Bookmark
	conflicts  map[string]bool // external ids that lose the insert race
	queriedIDs []string
	listErr    error
	insertErr  error
}

func (f *fakeBookmarkStore) ListExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]bool, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.queriedIDs = append(f.queriedIDs, externalIDs...)
	seen := make(map[string]bool, len(externalIDs))
	for _, id := range externalIDs {
		if f.existing[id] {
			seen[id] = true
		}
	}
	return seen, nil
}

func (f *fakeBookmarkStore) InsertIfAbsent(ctx context.Context, bookmark *models.Bookmark) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if f.conflicts[bookmark.ExternalID] {
		return false, nil
	}
	f.inserted = append(f.inserted, *bookmark)
	return true, nil
}

func testAccount() *models.Account {
	return &models.Account{ID: "acct-1", ExternalID: "ext-1", AccessToken: "tok", AccessSecret: "sec"}
}

func TestSyncCreatesBookmarksForNewPosts(t *testing.T) {
	store := &fakeBookmarkStore{}
	summarizer := &fakeSummarizer{}
	ing := NewIngestor(&fakeFetcher{posts: []twitter.Post{
		{ExternalID: "101", Text: "first liked post"},
		{ExternalID: "102", Text: "second liked post"},
	}}, summarizer, store)

	created, err := ing.Sync(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	require.Len(t, store.inserted, 2)
	first := store.inserted[0]
	assert.Equal(t, "101", first.ExternalID)
	assert.Equal(t, "acct-1", first.AccountID)
	assert.Equal(t, "first liked post", first.Text)
	assert.Equal(t, "summary of: first liked post", first.Summary)
	assert.False(t, first.Read)
	assert.NotEmpty(t, first.ID)
}

func TestSyncSkipsAlreadyCapturedPosts(t *testing.T) {
	store := &fakeBookmarkStore{existing: map[string]bool{"101": true}}
	summarizer := &fakeSummarizer{}
	ing := NewIngestor(&fakeFetcher{posts: []twitter.Post{
		{ExternalID: "101", Text: "already have this"},
		{ExternalID: "102", Text: "this one is new"},
	}}, summarizer, store)

	created, err := ing.Sync(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// The duplicate was neither summarized nor re-inserted.
	assert.Equal(t, []string{"this one is new"}, summarizer.calls)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "102", store.inserted[0].ExternalID)

	// The existence check covers exactly the fetched set.
	assert.ElementsMatch(t, []string{"101", "102"}, store.queriedIDs)
}

func TestSyncSkipsPostCapturedByAnotherAccount(t *testing.T) {
	// External post ids are unique system-wide: a post someone else already
	// bookmarked must not be summarized again on this account's visits, no
	// matter how often it reappears in the recent likes.
	store := &fakeBookmarkStore{existing: map[string]bool{"101": true}}
	summarizer := &fakeSummarizer{}
	ing := NewIngestor(&fakeFetcher{posts: []twitter.Post{
		{ExternalID: "101", Text: "someone else's bookmark"},
	}}, summarizer, store)

	for i := 0; i < 3; i++ {
		created, err := ing.Sync(context.Background(), testAccount())
		require.NoError(t, err)
		assert.Zero(t, created)
	}

	assert.Empty(t, summarizer.calls)
	assert.Empty(t, store.inserted)
}

func TestSyncIsIdempotent(t *testing.T) {
	store := &fakeBookmarkStore{}
	ing := NewIngestor(&fakeFetcher{posts: []twitter.Post{
		{ExternalID: "101", Text: "liked post"},
	}}, &fakeSummarizer{}, store)

	created, err := ing.Sync(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Same fetched set again, now present in the store.
	store.existing = map[string]bool{"101": true}
	created, err = ing.Sync(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, store.inserted, 1)
}

func TestSyncSummarizeFailureAbortsWithoutPersisting(t *testing.T) {
	store := &fakeBookmarkStore{}
	ing := NewIngestor(&fakeFetcher{posts: []twitter.Post{
		{ExternalID: "101", Text: "doomed post"},
	}}, &fakeSummarizer{err: errors.New("model unavailable")}, store)

	_, err := ing.Sync(context.Background(), testAccount())
	require.Error(t, err)
	assert.Empty(t, store.inserted)
}

func TestSyncFetchFailurePropagates(t *testing.T) {
	ing := NewIngestor(&fakeFetcher{err: errors.New("provider down")}, &fakeSummarizer{}, &fakeBookmarkStore{})

	_, err := ing.Sync(context.Background(), testAccount())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}

func TestSyncLostInsertRaceIsHarmless(t *testing.T) {
	store := &fakeBookmarkStore{conflicts: map[string]bool{"101": true}}
	ing := NewIngestor(&fakeFetcher{posts: []twitter.Post{
		{ExternalID: "101", Text: "raced post"},
		{ExternalID: "102", Text: "quiet post"},
	}}, &fakeSummarizer{}, store)

	created, err := ing.Sync(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestSyncSanitizesProviderText(t *testing.T) {
	store := &fakeBookmarkStore{}
	ing := NewIngestor(&fakeFetcher{posts: []twitter.Post{
		{ExternalID: "101", Text: "fish &amp; chips <b>tonight</b>"},
		{ExternalID: "102", Text: "<script>alert(1)</script>"},
	}}, &fakeSummarizer{}, store)

	created, err := ing.Sync(context.Background(), testAccount())
	require.NoError(t, err)

	// The second post is empty after sanitization and is dropped.
	assert.Equal(t, 1, created)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "fish & chips tonight", store.inserted[0].Text)
}
