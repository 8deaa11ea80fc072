package pager

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/bookbot/internal/books"
)

// Action tags a callback token.
type Action string

const (
	ActionPage     Action = "page"
	ActionDownload Action = "download"
	ActionIgnore   Action = "ignore"
)

// IgnoreToken is the callback data of buttons that only need an ack.
const IgnoreToken = string(ActionIgnore)

// MaxPage is the highest page number accepted from callback data.
const MaxPage = 1 << 20

// MaxCallbackData is the Telegram limit for inline button callback data, in bytes.
const MaxCallbackData = 64

const (
	pagePrefix     = "page_"
	downloadPrefix = "download_"
	fieldSep       = '|'
	paramSep       = "##"
	refMarker      = '#'
)

var (
	// ErrBadToken is returned for callback data that does not decode.
	ErrBadToken = errors.New("malformed callback token")
	// ErrTokenTooLong is returned when a page token exceeds the callback limit
	// and no ref store is available.
	ErrTokenTooLong = errors.New("callback token too long")
)

// Token is a decoded callback payload.
type Token struct {
	Action Action
	Page   int
	BookID int64
	Filter books.Filter
	// Ref names a filter kept server-side; Filter is empty when set.
	Ref string
}

// EncodePage renders "page_<n>|<clause>|<p1>##<p2>...". Backslash, '|' and '#'
// inside the clause and params are escaped with a backslash.
func EncodePage(page int, f books.Filter) string {
	var b strings.Builder
	b.WriteString(pagePrefix)
	b.WriteString(strconv.Itoa(page))
	b.WriteByte(fieldSep)
	b.WriteString(escape(f.Clause))
	b.WriteByte(fieldSep)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(paramSep)
		}
		b.WriteString(escape(p))
	}
	return b.String()
}

// EncodePageRef renders a page token whose filter lives in a RefStore.
func EncodePageRef(page int, ref string) string {
	return pagePrefix + strconv.Itoa(page) + string(fieldSep) + string(refMarker) + ref + string(fieldSep)
}

// EncodeDownload renders "download_<id>".
func EncodeDownload(id int64) string {
	return downloadPrefix + strconv.FormatInt(id, 10)
}

// Decode parses callback data. Anything malformed yields ErrBadToken.
func Decode(data string) (Token, error) {
	switch {
	case data == IgnoreToken:
		return Token{Action: ActionIgnore}, nil
	case strings.HasPrefix(data, downloadPrefix):
		id, err := strconv.ParseInt(data[len(downloadPrefix):], 10, 64)
		if err != nil || id <= 0 {
			return Token{}, fmt.Errorf("%w: download id %q", ErrBadToken, data[len(downloadPrefix):])
		}
		return Token{Action: ActionDownload, BookID: id}, nil
	case strings.HasPrefix(data, pagePrefix):
		return decodePage(data[len(pagePrefix):])
	}
	return Token{}, fmt.Errorf("%w: unknown action", ErrBadToken)
}

func decodePage(rest string) (Token, error) {
	num, rest, ok := strings.Cut(rest, string(fieldSep))
	if !ok {
		return Token{}, fmt.Errorf("%w: missing clause separator", ErrBadToken)
	}
	page, err := strconv.Atoi(num)
	if err != nil || page < 0 || page > MaxPage || num != strconv.Itoa(page) {
		return Token{}, fmt.Errorf("%w: page %q", ErrBadToken, num)
	}

	tok := Token{Action: ActionPage, Page: page}
	if strings.HasPrefix(rest, string(refMarker)) {
		ref, tail, ok := strings.Cut(rest[1:], string(fieldSep))
		if !ok || ref == "" || tail != "" {
			return Token{}, fmt.Errorf("%w: bad ref", ErrBadToken)
		}
		tok.Ref = ref
		return tok, nil
	}

	clause, n, err := unescapeUntilSep(rest)
	if err != nil {
		return Token{}, err
	}
	if n >= len(rest) {
		return Token{}, fmt.Errorf("%w: missing params separator", ErrBadToken)
	}
	params, err := splitParams(rest[n+1:])
	if err != nil {
		return Token{}, err
	}
	if clause == "" {
		if len(params) > 1 || (len(params) == 1 && params[0] != "") {
			return Token{}, fmt.Errorf("%w: params without clause", ErrBadToken)
		}
		params = nil
	}
	tok.Filter = books.Filter{Clause: clause, Params: params}
	return tok, nil
}

// unescapeUntilSep reads an escaped field up to the first unescaped '|'.
// It returns the field and the separator index, or len(s) when absent.
func unescapeUntilSep(s string) (string, int, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("%w: dangling escape", ErrBadToken)
			}
			i++
			b.WriteByte(s[i])
		case fieldSep:
			return b.String(), i, nil
		case refMarker:
			return "", 0, fmt.Errorf("%w: unescaped '#'", ErrBadToken)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), len(s), nil
}

func splitParams(s string) ([]string, error) {
	var (
		params []string
		cur    strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("%w: dangling escape", ErrBadToken)
			}
			i++
			cur.WriteByte(s[i])
		case refMarker:
			if !strings.HasPrefix(s[i:], paramSep) {
				return nil, fmt.Errorf("%w: stray '#'", ErrBadToken)
			}
			params = append(params, cur.String())
			cur.Reset()
			i++
		case fieldSep:
			return nil, fmt.Errorf("%w: unescaped '|' in params", ErrBadToken)
		default:
			cur.WriteByte(c)
		}
	}
	return append(params, cur.String()), nil
}

var escaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `#`, `\#`)

func escape(s string) string {
	return escaper.Replace(s)
}
