package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/format"
	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"
	"github.com/m3rciful/bookbot/internal/books"
	"github.com/m3rciful/bookbot/internal/pager"

	tele "gopkg.in/telebot.v4"
)

const welcomeV2 = "*Добро пожаловать в электронную библиотеку, %s\\! 😊*\n\n" +
	"Мои возможности:\n\n" +
	"*/start* \\- начать работу\n" +
	"*/catalog* \\- вывести текущий каталог книг\n" +
	"*/find* \\- найти книгу\\. Это наиболее точный поиск, указываешь название книги и автора\n" +
	"*/find\\_by\\_title* \\- найти книгу по названию\\. Выдает список всех книг с таким названием\n" +
	"*/find\\_by\\_author* \\- найти книгу по автору\\. Выдает список всех книг этого автора\n" +
	"*/find\\_by\\_topic* \\- найти книгу по теме\\. Выдает список наиболее подходящих книг по этой теме\n" +
	"*/cancel* \\- отменить поиск\n\n" +
	"Все эти команды также доступны по кнопке *меню* слева снизу\\. Enjoy\\!"

// WelcomeText renders the /start greeting for a user's first name.
func WelcomeText(firstName string) string {
	return fmt.Sprintf(welcomeV2, format.EscapeV2(firstName))
}

func (b *Bot) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	name := ""
	if c.Sender() != nil {
		name = c.Sender().FirstName
	}
	_, err := b.msg.Send(ctx, c.Chat().ID, WelcomeText(name), &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
	return err
}

func (b *Bot) onCatalog(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	b.conv.Cancel(ctx, c.Sender().ID)
	return b.ShowCatalog(ctx, c.Sender().ID, c.Chat().ID)
}

// ShowCatalog sends the first page of the unfiltered catalog.
func (b *Bot) ShowCatalog(ctx context.Context, userID, chatID int64) error {
	b.pages.SetUserPage(userID, 0)
	_, err := b.pages.SendPage(ctx, userID, chatID, books.Filter{})
	return err
}

func (b *Bot) startWorkflow(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil {
			return nil
		}
		ctx := tghelpers.BuildContext(c)
		return b.conv.Start(ctx, name, c.Sender().ID, c.Chat().ID)
	}
}

func (b *Bot) onCancel(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	text := textNothingActive
	if b.conv.Cancel(ctx, c.Sender().ID) {
		text = textCancelled
	}
	_, err := b.msg.Send(ctx, c.Chat().ID, text, nil)
	return err
}

func (b *Bot) onStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	text, err := b.StatsText(ctx)
	if err != nil {
		logger.Error(ctx, "bot", "stats", slog.String("status", "fail"), slog.String("err", err.Error()))
		text = pager.TextDBError
	}
	_, sendErr := b.msg.Send(ctx, c.Chat().ID, text, nil)
	if err != nil {
		return err
	}
	return sendErr
}

// StatsText renders the admin summary.
func (b *Bot) StatsText(ctx context.Context) (string, error) {
	count, err := b.catalog.Count(ctx, books.Filter{})
	if err != nil {
		return "", err
	}
	var st Stats
	if b.stats != nil {
		st = b.stats()
	}
	return fmt.Sprintf("Книг в каталоге: %d\nПользователей с открытым списком: %d\nОшибок отправки: %d",
		count, b.pages.Tracker().Len(), st.SendErrors), nil
}
