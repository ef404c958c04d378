package handlers

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
	"github.com/vladimiradmaev/diabetbot/internal/bot/keyboards"
	"github.com/vladimiradmaev/diabetbot/internal/database"
)

type fakeAPI struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	// failures per target chat; edits fail when failEdit is set
	failChat map[int64]bool
	failEdit bool
	fileErr  error
}

func (a *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	switch m := c.(type) {
	case tgbotapi.EditMessageTextConfig:
		if a.failEdit {
			return tgbotapi.Message{}, errors.New("message can't be edited")
		}
	case tgbotapi.MessageConfig:
		if a.failChat[m.ChatID] {
			return tgbotapi.Message{}, errors.New("chat not found")
		}
	}
	a.sent = append(a.sent, c)
	return tgbotapi.Message{}, nil
}

func (a *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	a.requested = append(a.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (a *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	if a.fileErr != nil {
		return "", a.fileErr
	}
	return "https://api.telegram.org/file/bot/" + fileID, nil
}

type fakeEngine struct {
	events []flow.Event
}

func (e *fakeEngine) Handle(_ context.Context, ev flow.Event) error {
	e.events = append(e.events, ev)
	return nil
}

type fakeUsers struct{}

func (fakeUsers) RegisterUser(_ context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error) {
	u := &database.User{TelegramID: telegramID, Username: username}
	u.ID = 7
	return u, nil
}

func (fakeUsers) GetUserByTelegramID(_ context.Context, telegramID int64) (*database.User, error) {
	u := &database.User{TelegramID: telegramID}
	u.ID = 7
	return u, nil
}

func TestChannelEditsClickedMessage(t *testing.T) {
	api := &fakeAPI{}
	ch := NewTelegramChannel(api)
	p := flow.Prompt{Text: "q", Options: [][]flow.Option{{{Label: "a", Value: "b"}}}}

	require.NoError(t, ch.Send(context.Background(), flow.Target{ChatID: 1, UserID: 1, MessageID: 9}, p))
	require.Len(t, api.sent, 1)
	edit, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 9, edit.MessageID)
	require.NotNil(t, edit.ReplyMarkup)
	assert.Equal(t, "b", *edit.ReplyMarkup.InlineKeyboard[0][0].CallbackData)
}

func TestChannelFallsBackToNewMessage(t *testing.T) {
	api := &fakeAPI{failEdit: true}
	ch := NewTelegramChannel(api)

	require.NoError(t, ch.Send(context.Background(), flow.Target{ChatID: 1, UserID: 1, MessageID: 9}, flow.Prompt{Text: "q"}))
	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(1), msg.ChatID)
}

func TestChannelMainMenuIsNeverAnEdit(t *testing.T) {
	api := &fakeAPI{}
	ch := NewTelegramChannel(api)

	require.NoError(t, ch.Send(context.Background(), flow.Target{ChatID: 1, MessageID: 9}, flow.Prompt{Text: "done", MainMenu: true}))
	require.Len(t, api.sent, 1)
	msg := api.sent[0].(tgbotapi.MessageConfig)
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, msg.ReplyMarkup)
}

func TestChannelFallsBackToDirectMessage(t *testing.T) {
	api := &fakeAPI{failChat: map[int64]bool{-100: true}}
	ch := NewTelegramChannel(api)

	require.NoError(t, ch.Send(context.Background(), flow.Target{ChatID: -100, UserID: 42}, flow.Prompt{Text: "q"}))
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(42), api.sent[0].(tgbotapi.MessageConfig).ChatID)

	api.failChat[42] = true
	assert.Error(t, ch.Send(context.Background(), flow.Target{ChatID: -100, UserID: 42}, flow.Prompt{Text: "q"}))
}

func newTestUpdateHandler() (*UpdateHandler, *fakeAPI, *fakeEngine) {
	api := &fakeAPI{}
	engine := &fakeEngine{}
	return NewUpdateHandler(api, Dependencies{UserService: fakeUsers{}, Engine: engine}), api, engine
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 3,
		From:      &tgbotapi.User{ID: 42, UserName: "tester"},
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      text,
	}
}

func commandMessage(text string, length int) *tgbotapi.Message {
	msg := textMessage(text)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return msg
}

func TestUpdateCallbackBecomesOption(t *testing.T) {
	h, api, engine := newTestUpdateHandler()
	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{MessageID: 11, Chat: &tgbotapi.Chat{ID: 42}},
		Data:    "slot:lunch",
	}}

	require.NoError(t, h.Handle(context.Background(), update))
	require.Len(t, engine.events, 1)
	ev := engine.events[0]
	assert.Equal(t, flow.InputOption, ev.Kind)
	assert.Equal(t, "slot:lunch", ev.Option)
	assert.Equal(t, 11, ev.MessageID)
	assert.Equal(t, uint(7), ev.UserID)
	assert.Equal(t, int64(42), ev.TelegramID)
	assert.Len(t, api.requested, 1, "callback answered")
}

func TestUpdateMenuLabelBecomesCommand(t *testing.T) {
	h, _, engine := newTestUpdateHandler()

	require.NoError(t, h.Handle(context.Background(), tgbotapi.Update{Message: textMessage(keyboards.LabelMeal)}))
	require.NoError(t, h.Handle(context.Background(), tgbotapi.Update{Message: textMessage("12,5")}))

	require.Len(t, engine.events, 2)
	assert.Equal(t, flow.CmdMeal, engine.events[0].Command)
	assert.Empty(t, engine.events[0].Text)
	assert.Equal(t, flow.CmdNone, engine.events[1].Command)
	assert.Equal(t, "12,5", engine.events[1].Text)
}

func TestUpdateCommandWithArgument(t *testing.T) {
	h, api, engine := newTestUpdateHandler()

	msg := commandMessage("/show_statistics last_7_days", len("/show_statistics"))
	require.NoError(t, h.Handle(context.Background(), tgbotapi.Update{Message: msg}))
	require.Len(t, engine.events, 1)
	assert.Equal(t, flow.CmdStatistics, engine.events[0].Command)
	assert.Equal(t, "last_7_days", engine.events[0].Arg)

	require.NoError(t, h.Handle(context.Background(), tgbotapi.Update{Message: commandMessage("/weather", len("/weather"))}))
	assert.Len(t, engine.events, 1, "unknown commands never reach the engine")
	require.Len(t, api.sent, 1)
}

func TestUpdatePhotoResolvesURL(t *testing.T) {
	h, api, engine := newTestUpdateHandler()
	msg := textMessage("")
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}

	require.NoError(t, h.Handle(context.Background(), tgbotapi.Update{Message: msg}))
	require.Len(t, engine.events, 1)
	assert.Equal(t, flow.InputPhoto, engine.events[0].Kind)
	assert.Contains(t, engine.events[0].PhotoURL, "large")

	api.fileErr = errors.New("file is too big")
	assert.Error(t, h.Handle(context.Background(), tgbotapi.Update{Message: msg}))
	assert.Len(t, engine.events, 1)
}

func TestUpdateWithoutSenderIsIgnored(t *testing.T) {
	h, _, engine := newTestUpdateHandler()
	require.NoError(t, h.Handle(context.Background(), tgbotapi.Update{}))
	assert.Empty(t, engine.events)
}
