package liveclient

import (
	"testing"

	"qa_forum_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notification(id, message string) model.Notification {
	n := model.Notification{RecipientID: 1, Message: message}
	n.ID = id
	return n
}

func TestFeed_NewestFirst(t *testing.T) {
	feed := NewNotificationFeed()
	feed.Push(notification("n-1", "first"))
	feed.Push(notification("n-2", "second"))
	feed.Push(notification("n-3", "third"))

	items := feed.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "n-3", items[0].ID)
	assert.Equal(t, "n-2", items[1].ID)
	assert.Equal(t, "n-1", items[2].ID)
}

func TestFeed_BatchClear(t *testing.T) {
	feed := NewNotificationFeed()
	feed.Push(notification("n-1", "a"))
	feed.Push(notification("n-2", "b"))
	require.Equal(t, 2, feed.Len())

	feed.Clear()
	assert.Zero(t, feed.Len())
	assert.Empty(t, feed.Items())
}

func TestFeed_MarkAllRead(t *testing.T) {
	feed := NewNotificationFeed()
	feed.Push(notification("n-1", "a"))
	feed.Push(notification("n-2", "b"))

	feed.MarkAllRead()
	for _, n := range feed.Items() {
		assert.True(t, n.IsRead)
	}
}

func TestFeed_ItemsReturnsCopy(t *testing.T) {
	feed := NewNotificationFeed()
	feed.Push(notification("n-1", "a"))

	items := feed.Items()
	items[0].Message = "tampered"

	assert.Equal(t, "a", feed.Items()[0].Message)
}
