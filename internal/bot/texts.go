package bot

// Prompts and replies. Plain text unless noted.
const (
	promptTitle       = "Введите название книги (например, Занимательная физика):"
	promptAuthor      = "Введите фамилию и инициалы автора книги (например, Дж. К. Роулинг):"
	promptTopic       = "Введите тему/жанр книги (например, Фэнтези):"
	promptFindAuthor  = "Введите фамилию и/или инициалы автора книги (например, Дж. К. Роулинг):"
	promptFindTitle   = "Введите название книги:"
	textInvalidInput  = "Некорректный ввод. Попробуйте ещё раз."
	textInvalidTitle  = "Некорректное название. Попробуйте ещё раз."
	textNavError      = "Ошибка навигации"
	textNavExpired    = "Результаты устарели, повторите поиск"
	textDownloading   = "Загрузка книги..."
	textCancelled     = "Поиск отменён."
	textNothingActive = "Нет активного поиска."
	textUnknownText   = "Не понимаю 🤔 Выберите команду в меню или отправьте /start."
	textUnknownDoc    = "Я не принимаю файлы, только команды и текст."
	textRateLimited   = "Слишком много запросов, подождите немного."
)

// MarkdownV2 leaderboard headers; %d is the board size.
const (
	headerTopBooks   = "📚 *ТОП\\-%d КНИГ:*"
	headerTopAuthors = "✍️ *ТОП\\-%d АВТОРОВ:*"
	headerTopTopics  = "🔥 *ТОП\\-%d ТЕМ/ЖАНРОВ:*"
)
