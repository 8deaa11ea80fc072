// Package bot wires the catalog commands, search conversations and inline
// keyboard callbacks onto the telegram registry.
package bot

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	tg "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/commands"
	"github.com/m3rciful/bookbot/core/telegram/sender"
	"github.com/m3rciful/bookbot/internal/books"
	"github.com/m3rciful/bookbot/internal/delivery"
	"github.com/m3rciful/bookbot/internal/pager"
)

const (
	// DefaultSessionTTL bounds how long an abandoned search stays live.
	DefaultSessionTTL = 30 * time.Minute
	// DefaultTopN is the leaderboard size shown before field searches.
	DefaultTopN = 10
)

// Deliverer sends a book file to a chat.
type Deliverer interface {
	Deliver(ctx context.Context, chatID, id int64) (delivery.Outcome, error)
}

// StatsFunc reports runtime counters for /stats.
type StatsFunc func() Stats

// Stats are runtime numbers shown to the admin next to catalog figures.
type Stats struct {
	SendErrors uint64
}

// Options configures a Bot.
type Options struct {
	Catalog   Catalog
	Paginator *pager.Paginator
	Deliverer Deliverer
	Messenger sender.Messenger
	// Redis stores sessions when set; otherwise they live in memory.
	Redis      redis.UniversalClient
	SessionTTL time.Duration
	// TopN is the leaderboard size; negative disables leaderboards.
	TopN  int
	Stats StatsFunc
}

// Bot owns the conversations and handlers of the catalog bot.
type Bot struct {
	catalog Catalog
	pages   *pager.Paginator
	deliver Deliverer
	msg     sender.Messenger
	stats   StatsFunc

	conv     *Conversations
	sweepers []func(ctx context.Context, interval time.Duration)
}

// New builds the bot and its search workflows.
func New(opts Options) *Bot {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	topN := opts.TopN
	if topN == 0 {
		topN = DefaultTopN
	}
	d := &deps{catalog: opts.Catalog, pages: opts.Paginator, msg: opts.Messenger, topN: topN}
	sf := &storeFactory{redis: opts.Redis, ttl: ttl}

	conv := NewConversations(
		newFieldSearch(d, sf, "find_by_title", books.FieldTitle, promptTitle, topBooks),
		newFieldSearch(d, sf, "find_by_author", books.FieldAuthor, promptAuthor, topAuthors),
		newFieldSearch(d, sf, "find_by_topic", books.FieldTopic, promptTopic, topTopics),
		newAuthorTitleSearch(d, sf),
	)
	return &Bot{
		catalog:  opts.Catalog,
		pages:    opts.Paginator,
		deliver:  opts.Deliverer,
		msg:      opts.Messenger,
		stats:    opts.Stats,
		conv:     conv,
		sweepers: sf.sweeper,
	}
}

// Conversations returns the free-text owner for the text router.
func (b *Bot) Conversations() *Conversations { return b.conv }

// RunJanitors sweeps expired in-memory sessions until ctx is done.
// Redis-backed sessions expire on their own.
func (b *Bot) RunJanitors(ctx context.Context, interval time.Duration) {
	for _, sweep := range b.sweepers {
		go sweep(ctx, interval)
	}
}

// Register adds commands and callback handlers to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := map[string]commands.Command{
		"/start":          {Handler: b.onStart, Description: "Начать работу с ботом"},
		"/catalog":        {Handler: b.onCatalog, Description: "Каталог книг"},
		"/find":           {Handler: b.startWorkflow("find"), Description: "Поиск по автору и названию"},
		"/find_by_title":  {Handler: b.startWorkflow("find_by_title"), Description: "Поиск по названию"},
		"/find_by_author": {Handler: b.startWorkflow("find_by_author"), Description: "Поиск по автору"},
		"/find_by_topic":  {Handler: b.startWorkflow("find_by_topic"), Description: "Поиск по теме/жанру"},
		"/cancel":         {Handler: b.onCancel, Description: "Отменить поиск"},
		"/stats":          {Handler: b.onStats, Description: "Статистика", AdminOnly: true, Hidden: true},
	}
	for name, cmd := range cmds {
		reg.RegisterCommand(name, cmd)
	}
	for _, key := range []pager.Action{pager.ActionPage, pager.ActionDownload, pager.ActionIgnore} {
		if err := reg.RegisterCallback(string(key), b.OnCallback); err != nil {
			return err
		}
	}
	return nil
}
