package pager

import (
	"fmt"
	"strings"

	"github.com/m3rciful/bookbot/core/telegram/format"
	"github.com/m3rciful/bookbot/core/telegram/keyboard"
	"github.com/m3rciful/bookbot/internal/books"

	tele "gopkg.in/telebot.v4"
)

// Texts rendered by the paginator, MarkdownV2.
const (
	TextNoResults = "*По вашему запросу книги не найдены* 😔"
	TextDBError   = "Произошла ошибка при доступе к базе."
)

// TotalPages is ceil(count/size); zero records means zero pages.
func TotalPages(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// FormatPage renders a page as MarkdownV2. Ordinals continue across pages.
func FormatPage(records []books.Book, page, total, size int) string {
	if len(records) == 0 {
		return TextNoResults
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Список книг — страница %d/%d :*\n\n", page+1, total)
	num := page*size + 1
	for _, r := range records {
		fmt.Fprintf(&b, "%d\\. *%s* — _%s_ \\(Тема: _%s_\\)\n",
			num, format.EscapeV2(r.Title), format.EscapeV2(r.Author), format.EscapeV2(r.Topic))
		num++
	}
	return b.String()
}

// BuildNavigation returns one download button per record and a prev/indicator/next
// row. prevData and nextData are the page tokens of the neighbours; they are
// replaced with IgnoreToken at the ends. Empty records yield nil.
func BuildNavigation(records []books.Book, page, total int, prevData, nextData string) *tele.ReplyMarkup {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]keyboard.InlineBtn, 0, len(records)+1)
	for _, r := range records {
		rows = append(rows, []keyboard.InlineBtn{{Text: "Скачать: " + r.Title, Data: EncodeDownload(r.ID)}})
	}
	if page <= 0 || prevData == "" {
		prevData = IgnoreToken
	}
	if page+1 >= total || nextData == "" {
		nextData = IgnoreToken
	}
	rows = append(rows, []keyboard.InlineBtn{
		{Text: "⬅️", Data: prevData},
		{Text: fmt.Sprintf("%d/%d", page+1, total), Data: IgnoreToken},
		{Text: "➡️", Data: nextData},
	})
	return keyboard.InlineButtonsRows(rows...)
}
