package pager

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bookbot/internal/books"
)

func TestPageTokenRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		page int
		f    books.Filter
	}{
		{"no filter", 0, books.Filter{}},
		{"single", 3, books.Like(books.FieldAuthor, "Роулинг")},
		{"combined", 12, books.Like(books.FieldAuthor, "Кинг").And(books.Like(books.FieldTitle, "Оно"))},
		{"pipes", 1, books.Like(books.FieldTitle, "a|b||c")},
		{"hashes", 1, books.Like(books.FieldTitle, "C# ## F#")},
		{"backslashes", 2, books.Like(books.FieldTopic, `C:\books\`)},
		{"empty param", 0, books.Filter{Clause: "title LIKE ?", Params: []string{""}}},
		{"mixed", 7, books.Filter{Clause: "title LIKE ? AND topic LIKE ?", Params: []string{`\|#`, "##"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok, err := Decode(EncodePage(tc.page, tc.f))
			require.NoError(t, err)
			assert.Equal(t, ActionPage, tok.Action)
			assert.Equal(t, tc.page, tok.Page)
			assert.Equal(t, tc.f, tok.Filter)
			assert.Empty(t, tok.Ref)
		})
	}
}

func TestEncodePageWireFormat(t *testing.T) {
	f := books.Filter{Clause: "author LIKE ? AND title LIKE ?", Params: []string{"%a%", "%b%"}}
	assert.Equal(t, "page_2|author LIKE ? AND title LIKE ?|%a%##%b%", EncodePage(2, f))
	assert.Equal(t, `page_0|title LIKE ?|%a\|b\#%`, EncodePage(0, books.Like(books.FieldTitle, "a|b#")))
	assert.Equal(t, "page_4|#abc|", EncodePageRef(4, "abc"))
}

func TestDecodeOtherActions(t *testing.T) {
	tok, err := Decode("ignore")
	require.NoError(t, err)
	assert.Equal(t, ActionIgnore, tok.Action)

	tok, err = Decode("download_42")
	require.NoError(t, err)
	assert.Equal(t, ActionDownload, tok.Action)
	assert.EqualValues(t, 42, tok.BookID)

	tok, err = Decode("page_5|#ref123|")
	require.NoError(t, err)
	assert.Equal(t, 5, tok.Page)
	assert.Equal(t, "ref123", tok.Ref)
}

func TestDecodeFailsClosed(t *testing.T) {
	bad := []string{
		"",
		"page_",
		"page_1",
		"page_x||",
		"page_-1||",
		"page_01||",
		"page_1048577||",
		"page_922337203685477581||",
		"page_1|title LIKE ?",
		`page_1|title LIKE ?|abc\`,
		"page_1|title LIKE ?|a#b",
		"page_1|title LIKE ?|a|b",
		"page_1|title # ?|x",
		"page_1||x",
		"page_1|#|",
		"page_1|#ref|junk",
		"download_",
		"download_abc",
		"download_0",
		"ignored",
		"refresh_1",
	}
	for _, data := range bad {
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrBadToken, "%q", data)
	}
}

func TestEncodeDownloadFitsLimit(t *testing.T) {
	tok := EncodeDownload(9223372036854775807)
	assert.LessOrEqual(t, len(tok), MaxCallbackData)
	assert.True(t, strings.HasPrefix(tok, "download_"))
}
