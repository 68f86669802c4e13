package bot

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-studio/internal/creative"
	"ad-studio/internal/mediagroup"
	"ad-studio/internal/session"
	"ad-studio/internal/studio"
)

type panel struct {
	MessageID int
	Text      string
	Keyboard  tgbotapi.InlineKeyboardMarkup
}

type photo struct {
	DataURL string
	Caption string
}

type fakeMessenger struct {
	mu      sync.Mutex
	files   map[string][]byte
	texts   []string
	panels  []panel
	photos  []photo
	answers []string
	nextID  int
}

func (m *fakeMessenger) SendText(_ int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) SendTextWithKeyboard(_ int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.panels = append(m.panels, panel{MessageID: m.nextID, Text: text, Keyboard: kb})
	return m.nextID, nil
}

func (m *fakeMessenger) EditTextWithKeyboard(_ int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panels = append(m.panels, panel{MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ string, text string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, text)
	return nil
}

func (m *fakeMessenger) SendPhotoDataURL(_ int64, dataURL string, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = append(m.photos, photo{DataURL: dataURL, Caption: caption})
	return nil
}

func (m *fakeMessenger) SendTyping(int64) {}

func (m *fakeMessenger) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (m *fakeMessenger) lastPanel(t *testing.T) panel {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.panels)
	return m.panels[len(m.panels)-1]
}

type stubBackend struct {
	mu              sync.Mutex
	rendered        string
	lastInstruction string
}

func (b *stubBackend) DescribeImage(context.Context, studio.Source) (string, error) {
	return "A red running shoe.", nil
}

func (b *stubBackend) AnalyzeProduct(context.Context, studio.Source, string, string) (studio.Analysis, error) {
	return studio.Analysis{
		Title:               "Runner",
		Industry:            "fashion",
		NaturalEnvironments: []string{"city street"},
		Narrative:           "A light running shoe for city runs.",
		Confidence:          80,
	}, nil
}

func (b *stubBackend) GenerateSlogan(context.Context, studio.Source, creative.SloganStyle) (string, error) {
	return "Run the city", nil
}

func (b *stubBackend) GenerateAdCopy(context.Context, creative.Format, string) (studio.AdCopy, error) {
	return studio.AdCopy{Headline: "Meet Runner", BodyText: "Made for mornings.", ImagePrompt: "a runner at dawn"}, nil
}

func (b *stubBackend) GenerateAdImage(context.Context, studio.Source, string, string, string) (studio.ImageResult, error) {
	return studio.ImageResult{Image: b.rendered}, nil
}

func (b *stubBackend) EditImage(_ context.Context, _ string, instruction string) (studio.ImageResult, error) {
	b.mu.Lock()
	b.lastInstruction = instruction
	b.mu.Unlock()
	return studio.ImageResult{Image: b.rendered}, nil
}

const (
	testChat int64 = 100
	testUser int64 = 7
)

type testEnv struct {
	handler  *Handler
	tg       *fakeMessenger
	backend  *stubBackend
	sessions *session.Store
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	data := pngBytes(t)
	backend := &stubBackend{rendered: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)}
	sessions := session.NewStore(session.Options{Factory: func(id string) *studio.Session {
		return studio.New(id, studio.Options{Backend: backend})
	}})
	tg := &fakeMessenger{files: map[string][]byte{"a": data, "b": data}}
	h := New(Options{Messenger: tg, Sessions: sessions})
	return &testEnv{handler: h, tg: tg, backend: backend, sessions: sessions}
}

func (e *testEnv) session() *studio.Session {
	return e.sessions.GetOrCreate(SessionID(testChat, testUser))
}

func (e *testEnv) message(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: testUser},
		Chat:      &tgbotapi.Chat{ID: testChat},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func (e *testEnv) press(fromID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "q",
		From: &tgbotapi.User{ID: fromID},
		Message: &tgbotapi.Message{
			MessageID: 50,
			Chat:      &tgbotapi.Chat{ID: testChat},
		},
		Data: data,
	}}
}

func (e *testEnv) uploadPhoto(t *testing.T) {
	t.Helper()
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: testUser},
		Chat:      &tgbotapi.Chat{ID: testChat},
		Photo:     []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: "a"}},
	}}
	require.NoError(t, e.handler.HandleUpdate(t.Context(), update))
}

func buttons(kb tgbotapi.InlineKeyboardMarkup) map[string]string {
	out := make(map[string]string)
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out[*b.CallbackData] = b.Text
			}
		}
	}
	return out
}

func TestParseCallback(t *testing.T) {
	data, ok := parseCallback(cb(42, "fmt", "natural_environment"))
	require.True(t, ok)
	assert.EqualValues(t, 42, data.OwnerID)
	assert.Equal(t, "fmt", data.Action)
	assert.Equal(t, "natural_environment", data.arg(0))
	assert.Empty(t, data.arg(1))

	for _, bad := range []string{"", "as", "as:x:gen", "pv:1:gen", "as:1"} {
		_, ok := parseCallback(bad)
		assert.False(t, ok, bad)
	}
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	snap := studio.Snapshot{SelectedImageID: "x", Images: []studio.ImageView{{ID: "x", Name: "photo"}}}
	catalog := creative.Builtin()
	for _, m := range []menu{menuMain, menuFormats, menuSlogan, menuAdjust, menuImages, menuGallery} {
		kb := panelKeyboard(-1002003004005, snap, uiState{Menu: m}, catalog)
		for data := range buttons(kb) {
			assert.LessOrEqual(t, len(data), 64, data)
		}
	}
}

func TestPanelWithoutPhoto(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.message("/start")))

	p := e.tg.lastPanel(t)
	assert.Contains(t, p.Text, "Send a product photo")
	assert.NotContains(t, buttons(p.Keyboard), cb(testUser, "gen"))
}

func TestPhotoUploadShowsAnalysis(t *testing.T) {
	e := newTestEnv(t)
	e.uploadPhoto(t)

	snap := e.session().Snapshot()
	require.Len(t, snap.Images, 1)
	assert.True(t, snap.ReviewAnalysis)
	assert.Equal(t, "Runner", snap.Input.Title)

	p := e.tg.lastPanel(t)
	assert.Contains(t, p.Text, "Product: Runner · fashion")
	assert.Contains(t, p.Text, "Scenes: city street")
	kb := buttons(p.Keyboard)
	assert.Contains(t, kb, cb(testUser, "gen"))
	assert.Contains(t, kb, cb(testUser, "confirm"))

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "confirm"))))
	assert.False(t, e.session().Snapshot().ReviewAnalysis)
}

func TestPhotoCaptionBecomesDescription(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.handler.processPhotos(t.Context(), testChat, testUser, "Trail shoe, waterproof", []string{"a"}))
	assert.Equal(t, "Trail shoe, waterproof", e.session().Snapshot().Input.Description)
}

func TestDownloadFailure(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.handler.processPhotos(t.Context(), testChat, testUser, "", []string{"missing"}))
	require.NotEmpty(t, e.tg.texts)
	assert.Contains(t, e.tg.texts[0], "Could not download")
	assert.Empty(t, e.session().Snapshot().Images)
}

func TestMediaGroupKeepsFirstPhotoSelected(t *testing.T) {
	e := newTestEnv(t)
	e.handler.HandleMediaGroup(t.Context(), mediagroup.Group{ChatID: testChat, UserID: testUser, FileIDs: []string{"a", "b"}})

	snap := e.session().Snapshot()
	require.Len(t, snap.Images, 2)
	assert.Equal(t, "photo 1", snap.Images[0].Name)
	assert.Equal(t, snap.Images[0].ID, snap.SelectedImageID)
}

func TestGenerateSendsResult(t *testing.T) {
	e := newTestEnv(t)
	e.uploadPhoto(t)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "slogan", "hook"))))
	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "gen"))))

	require.Len(t, e.tg.photos, 1)
	assert.Equal(t, e.backend.rendered, e.tg.photos[0].DataURL)
	assert.Equal(t, "“Run the city”", e.tg.photos[0].Caption)

	kb := buttons(e.tg.lastPanel(t).Keyboard)
	assert.Contains(t, kb, cb(testUser, "regen", "image"))
	assert.Contains(t, kb, cb(testUser, "edit"))

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "var"))))
	assert.Len(t, e.tg.photos, 2)
	assert.Equal(t, 2, e.session().Snapshot().HistoryLength)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "undo"))))
	assert.Equal(t, 0, e.session().Snapshot().Cursor)
}

func TestMultipleFormatsSendEachResult(t *testing.T) {
	e := newTestEnv(t)
	e.uploadPhoto(t)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "fmt", "natural_environment"))))
	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "fmt", "facebook_storytelling"))))
	assert.Equal(t, []string{"natural_environment", "facebook_storytelling"}, e.session().Snapshot().Formats)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "gen"))))
	require.Len(t, e.tg.photos, 2)
	assert.Equal(t, "Meet Runner\n\nMade for mornings.", e.tg.photos[1].Caption)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "fmt", "natural_environment"))))
	assert.Equal(t, []string{"facebook_storytelling"}, e.session().Snapshot().Formats)
}

func TestEditModeTurnsTextIntoInstruction(t *testing.T) {
	e := newTestEnv(t)
	e.uploadPhoto(t)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "edit"))))
	assert.Contains(t, e.tg.answers, "Generate an image before editing.")

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "gen"))))
	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "edit"))))
	assert.Contains(t, e.tg.lastPanel(t).Text, "Send the edit instruction")

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.message("make the background blue")))
	assert.Equal(t, "make the background blue", e.backend.lastInstruction)
	assert.Len(t, e.tg.photos, 2)
	assert.False(t, e.handler.ui.Get(testChat, testUser).AwaitingEdit)
	assert.Equal(t, 2, e.session().Snapshot().HistoryLength)
}

func TestTextOutsideEditModeSetsDescription(t *testing.T) {
	e := newTestEnv(t)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.message("a shoe")))
	assert.Contains(t, e.tg.texts, "📷 Send a product photo first.")

	e.uploadPhoto(t)
	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.message("Lightweight trail shoe")))
	assert.Equal(t, "Lightweight trail shoe", e.session().Snapshot().Input.Description)
	assert.Contains(t, e.tg.lastPanel(t).Text, "Description: Lightweight trail shoe")
}

func TestMoveAndEnvCommands(t *testing.T) {
	e := newTestEnv(t)
	e.uploadPhoto(t)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.message("/move 2 0")))
	assert.Contains(t, e.tg.texts[len(e.tg.texts)-1], "Usage: /move")

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.message("/move 0.5 0.1")))
	assert.Contains(t, e.tg.lastPanel(t).Text, "Generate an image before editing.")

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.message("/env a snowy mountain cabin")))
	require.Len(t, e.tg.photos, 1)
	snap := e.session().Snapshot()
	require.NotNil(t, snap.LastParams)
	assert.Contains(t, snap.LastParams.Instruction, "a snowy mountain cabin")

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.message("/move 0.5 0.1")))
	assert.Equal(t, creative.RepositionInstruction(0.5, 0.1), e.backend.lastInstruction)
}

func TestAdjustmentCallback(t *testing.T) {
	e := newTestEnv(t)
	e.uploadPhoto(t)
	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "gen"))))

	adj, ok := creative.LookupAdjustment("blur_background")
	require.True(t, ok)
	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "adj", adj.ID))))
	assert.Equal(t, adj.Prompt, e.backend.lastInstruction)
}

func TestCallbackFromAnotherUser(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(99, cb(testUser, "gen"))))
	assert.Equal(t, []string{"This panel belongs to someone else."}, e.tg.answers)
	assert.Zero(t, e.sessions.Len())
}

func TestLibraryCallbacks(t *testing.T) {
	e := newTestEnv(t)
	e.handler.HandleMediaGroup(t.Context(), mediagroup.Group{ChatID: testChat, UserID: testUser, FileIDs: []string{"a", "b"}})

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "menu", string(menuImages)))))
	kb := buttons(e.tg.lastPanel(t).Keyboard)
	assert.Equal(t, "✅ photo 1", kb[cb(testUser, "img", "0")])

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "img", "1"))))
	snap := e.session().Snapshot()
	assert.Equal(t, snap.Images[1].ID, snap.SelectedImageID)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "del", "1"))))
	snap = e.session().Snapshot()
	require.Len(t, snap.Images, 1)
	assert.Equal(t, snap.Images[0].ID, snap.SelectedImageID)

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "img", "5"))))
	assert.Contains(t, e.tg.answers, "Image not found.")

	require.NoError(t, e.handler.HandleUpdate(t.Context(), e.press(testUser, cb(testUser, "new"))))
	assert.Empty(t, e.session().Snapshot().SelectedImageID)
}

func TestParsePosition(t *testing.T) {
	x, y, err := parsePosition("0.25, 0.75")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, x, 1e-9)
	assert.InDelta(t, 0.75, y, 1e-9)

	for _, bad := range []string{"", "0.5", "a b", "1.5 0", "0 -0.1", "0 0 0", "NaN 0.5", "0.5 nan", "Inf 0"} {
		_, _, err := parsePosition(bad)
		assert.Error(t, err, bad)
	}
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "hello", truncateLine("  hello ", 10))
	assert.Equal(t, "héll…", truncateLine("héllo world", 4))
}
