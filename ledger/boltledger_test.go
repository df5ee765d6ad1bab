package ledger

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bitbucket.org/kleinnic74/photopost/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func runTestWithLedger(t *testing.T, test func(t *testing.T, l *BoltLedger)) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	defer db.Close()
	l, err := NewBoltLedger(db)
	require.NoError(t, err)
	test(t, l)
}

func pendingRecord(id domain.ID) PhotoRecord {
	return PhotoRecord{
		ID:    id,
		Path:  "/photos/" + string(id) + ".jpg",
		Taken: time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
		Place: "Wien, Austria",
	}
}

func TestGetUnknownRecord(t *testing.T) {
	runTestWithLedger(t, func(t *testing.T, l *BoltLedger) {
		_, found, err := l.Get("deadbeef")
		require.NoError(t, err)
		assert.False(t, found)

		published, err := l.IsPublished("deadbeef")
		require.NoError(t, err)
		assert.False(t, published)
	})
}

func TestMarkPendingThenPublished(t *testing.T) {
	runTestWithLedger(t, func(t *testing.T, l *BoltLedger) {
		require.NoError(t, l.MarkPending(pendingRecord("abc123")))

		rec, found, err := l.Get("abc123")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, Pending, rec.Status)
		assert.Equal(t, 1, rec.Attempts)
		assert.False(t, rec.LastAttempt.IsZero())

		require.NoError(t, l.MarkPublished("abc123", "at://did:plc:xyz/app.bsky.feed.post/3k44", "https://bsky.app/profile/someone/post/3k44"))

		rec, _, err = l.Get("abc123")
		require.NoError(t, err)
		assert.Equal(t, Published, rec.Status)
		assert.Equal(t, "at://did:plc:xyz/app.bsky.feed.post/3k44", rec.PostURI)
		assert.Equal(t, "https://bsky.app/profile/someone/post/3k44", rec.PostLink)

		published, err := l.IsPublished("abc123")
		require.NoError(t, err)
		assert.True(t, published)
	})
}

func TestPublishedIsTerminal(t *testing.T) {
	runTestWithLedger(t, func(t *testing.T, l *BoltLedger) {
		require.NoError(t, l.MarkPending(pendingRecord("abc123")))
		require.NoError(t, l.MarkPublished("abc123", "at://did:plc:xyz/post/1", "link1"))

		assert.True(t, IsAlreadyPublished(l.MarkPending(pendingRecord("abc123"))))
		assert.True(t, IsAlreadyPublished(l.MarkFailed("abc123", "should not happen")))
		assert.True(t, IsAlreadyPublished(l.MarkPublished("abc123", "at://did:plc:xyz/post/2", "link2")))

		// same URI is a harmless replay
		assert.NoError(t, l.MarkPublished("abc123", "at://did:plc:xyz/post/1", "link1"))

		rec, _, err := l.Get("abc123")
		require.NoError(t, err)
		assert.Equal(t, Published, rec.Status)
		assert.Equal(t, "at://did:plc:xyz/post/1", rec.PostURI)
	})
}

func TestMarkFailedKeepsRecordRetryable(t *testing.T) {
	runTestWithLedger(t, func(t *testing.T, l *BoltLedger) {
		require.NoError(t, l.MarkPending(pendingRecord("abc123")))
		require.NoError(t, l.MarkFailed("abc123", "upload timed out"))

		rec, _, err := l.Get("abc123")
		require.NoError(t, err)
		assert.Equal(t, Failed, rec.Status)
		assert.Equal(t, "upload timed out", rec.Reason)

		// a later run retries it
		require.NoError(t, l.MarkPending(pendingRecord("abc123")))
		rec, _, err = l.Get("abc123")
		require.NoError(t, err)
		assert.Equal(t, Pending, rec.Status)
		assert.Equal(t, 2, rec.Attempts)
		assert.Empty(t, rec.Reason)
	})
}

func TestMutationsOnUnknownRecords(t *testing.T) {
	runTestWithLedger(t, func(t *testing.T, l *BoltLedger) {
		var notFound NotFoundError
		assert.ErrorAs(t, l.MarkPublished("missing", "uri", "link"), &notFound)
		assert.ErrorAs(t, l.MarkFailed("missing", "whatever"), &notFound)
		assert.ErrorAs(t, l.Reset("missing"), &notFound)
	})
}

func TestResetReopensPublishedRecord(t *testing.T) {
	runTestWithLedger(t, func(t *testing.T, l *BoltLedger) {
		require.NoError(t, l.MarkPending(pendingRecord("abc123")))
		require.NoError(t, l.MarkPublished("abc123", "at://did:plc:xyz/post/1", "link1"))

		require.NoError(t, l.Reset("abc123"))

		rec, _, err := l.Get("abc123")
		require.NoError(t, err)
		assert.Equal(t, Pending, rec.Status)
		assert.Empty(t, rec.PostURI)
		assert.Empty(t, rec.PostLink)

		// republishing under a new URI is now allowed
		require.NoError(t, l.MarkPublished("abc123", "at://did:plc:xyz/post/2", "link2"))
	})
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	l, err := NewBoltLedger(db)
	require.NoError(t, err)
	require.NoError(t, l.MarkPending(pendingRecord("abc123")))
	require.NoError(t, l.MarkPublished("abc123", "at://did:plc:xyz/post/1", "link1"))
	require.NoError(t, l.MarkPending(pendingRecord("def456")))
	require.NoError(t, db.Close())

	db, err = bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	defer db.Close()
	l, err = NewBoltLedger(db)
	require.NoError(t, err)

	published, err := l.IsPublished("abc123")
	require.NoError(t, err)
	assert.True(t, published)

	records, err := l.All()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestNotFoundError(t *testing.T) {
	err := NotFound("abc123")
	var notFound NotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, domain.ID("abc123"), domain.ID(notFound))
}
