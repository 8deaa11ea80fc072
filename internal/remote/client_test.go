package remote

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/bookbot/core/config"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "books/hp1.pdf", ObjectKey("/books/hp1.pdf"))
	assert.Equal(t, "books/hp1.pdf", ObjectKey("disk:/books/hp1.pdf"))
	assert.Equal(t, "a.txt", ObjectKey("a.txt"))
	assert.Equal(t, "b.txt", ObjectKey("/../b.txt"))
}

func TestCacheName(t *testing.T) {
	assert.Equal(t, "hp1.pdf", CacheName("/books/hp1.pdf"))
	assert.Equal(t, "book.pdf", CacheName("disk:book.pdf"))
	assert.Equal(t, "landau.pdf", CacheName("disk:/legacy/landau.pdf"))
}

func TestPublicURLWithBase(t *testing.T) {
	c, err := New(coreconfig.StorageConfig{
		Endpoint:      "localhost:9000",
		Bucket:        "books",
		PublicBaseURL: "https://cdn.example.com/books",
	})
	require.NoError(t, err)

	u, err := c.PublicURL(context.Background(), "/Фэнтези/Гарри Поттер.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/books/%D0%A4%D1%8D%D0%BD%D1%82%D0%B5%D0%B7%D0%B8/%D0%93%D0%B0%D1%80%D1%80%D0%B8%20%D0%9F%D0%BE%D1%82%D1%82%D0%B5%D1%80.pdf", u)
}

func TestPublicURLPresigned(t *testing.T) {
	c, err := New(coreconfig.StorageConfig{
		Endpoint:      "localhost:9000",
		AccessKey:     "minio",
		SecretKey:     "minio123",
		Bucket:        "books",
		Region:        "us-east-1",
		PresignExpiry: time.Hour,
	})
	require.NoError(t, err)

	raw, err := c.PublicURL(context.Background(), "/fantasy/hp1.pdf")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/books/fantasy/hp1.pdf", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, `attachment; filename="hp1.pdf"`, u.Query().Get("response-content-disposition"))
}
