// Package bot drives a studio session from Telegram: photos become uploads and
// an inline control panel exposes formats, slogans, generation and history.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"ad-studio/internal/mediagroup"
	"ad-studio/internal/session"
	"ad-studio/internal/studio"
)

// Messenger is the subset of the Telegram client the handler talks to.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendPhotoDataURL(chatID int64, dataURL string, caption string) error
	SendTyping(chatID int64)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

type Options struct {
	Messenger Messenger
	Sessions  *session.Store
	Logger    *slog.Logger
}

type Handler struct {
	tg         Messenger
	sessions   *session.Store
	logger     *slog.Logger
	ui         *uiStore
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:       opts.Messenger,
		sessions: opts.Sessions,
		logger:   logger,
		ui:       newUIStore(),
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

// SessionID is the studio session a Telegram user owns in a chat.
func SessionID(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

func (h *Handler) session(chatID, userID int64) *studio.Session {
	return h.sessions.GetOrCreate(SessionID(chatID, userID))
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, userID, msg)
	}

	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return h.processPhotos(ctx, chatID, userID, msg.Caption, []string{msg.Document.FileID})
	}

	if msg.Text != "" {
		return h.handleText(ctx, chatID, userID, msg.Text)
	}

	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processPhotos(ctx, group.ChatID, group.UserID, group.Caption, group.FileIDs); err != nil {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

const helpText = "🖼 Ad Studio\n\n" +
	"Send a product photo (or an album) and use the buttons under the panel.\n\n" +
	"Commands:\n" +
	"/start - Show the panel\n" +
	"/help - This help\n" +
	"/new - Start over with a new photo\n" +
	"/desc <text> - Set the product description\n" +
	"/describe - Describe the photo automatically\n" +
	"/env <place> - Generate in a custom environment\n" +
	"/edit <instruction> - Edit the current result\n" +
	"/move <x> <y> - Move the text (0..1 from the top-left)\n" +
	"/cancel - Leave edit mode"

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	sess := h.session(chatID, userID)

	switch msg.Command() {
	case "start":
		h.ui.Reset(chatID, userID)
		return h.render(chatID, userID, sess)
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "new":
		if err := sess.ClearSelection(); err != nil {
			return h.reply(chatID, err)
		}
		h.ui.Update(chatID, userID, func(st *uiState) {
			st.Menu = menuMain
			st.AwaitingEdit = false
		})
		_ = h.tg.SendText(chatID, "📷 Send the next product photo.")
		return h.render(chatID, userID, sess)
	case "cancel":
		h.ui.Update(chatID, userID, func(st *uiState) { st.AwaitingEdit = false })
		return h.render(chatID, userID, sess)
	case "desc":
		if args == "" {
			return h.tg.SendText(chatID, "❌ Usage: /desc <product description>")
		}
		h.setDescription(sess, args)
		return h.render(chatID, userID, sess)
	case "describe":
		return h.describe(ctx, chatID, userID, sess)
	case "env":
		if args == "" {
			return h.tg.SendText(chatID, "❌ Usage: /env <place>\nExample: /env a sunny beach at golden hour")
		}
		return h.generate(ctx, chatID, userID, sess, func(ctx context.Context) error {
			return sess.Generate(ctx, studio.GenerateRequest{Environment: args})
		})
	case "edit":
		if args == "" {
			h.ui.Update(chatID, userID, func(st *uiState) { st.AwaitingEdit = true })
			return h.render(chatID, userID, sess)
		}
		return h.edit(ctx, chatID, userID, sess, func(ctx context.Context) error {
			return sess.Edit(ctx, args)
		})
	case "move":
		x, y, err := parsePosition(args)
		if err != nil {
			return h.tg.SendText(chatID, "❌ Usage: /move <x> <y> with values between 0 and 1\nExample: /move 0.5 0.1")
		}
		return h.edit(ctx, chatID, userID, sess, func(ctx context.Context) error {
			return sess.Reposition(ctx, x, y)
		})
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

// handleText treats a message as an edit instruction in edit mode and as the
// product description otherwise.
func (h *Handler) handleText(ctx context.Context, chatID, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sess := h.session(chatID, userID)
	st := h.ui.Get(chatID, userID)
	if st.AwaitingEdit {
		h.ui.Update(chatID, userID, func(st *uiState) { st.AwaitingEdit = false })
		return h.edit(ctx, chatID, userID, sess, func(ctx context.Context) error {
			return sess.Edit(ctx, text)
		})
	}

	if _, ok := sess.SelectedImage(); !ok {
		return h.tg.SendText(chatID, "📷 Send a product photo first.")
	}
	h.setDescription(sess, text)
	return h.render(chatID, userID, sess)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			MessageID:    msg.MessageID,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       photo.FileID,
		})
		return nil
	}

	return h.processPhotos(ctx, chatID, userID, msg.Caption, []string{photo.FileID})
}

// processPhotos uploads fileIDs into the library. The first photo ends up
// selected; a caption becomes its description once analysis has finished.
func (h *Handler) processPhotos(ctx context.Context, chatID, userID int64, caption string, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	h.tg.SendTyping(chatID)

	data := make([][]byte, len(fileIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		g.Go(func() error {
			b, err := h.tg.DownloadFile(gctx, fileID)
			if err != nil {
				return err
			}
			data[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not download the photo. Please try again.")
	}

	sess := h.session(chatID, userID)
	for i := len(data) - 1; i >= 0; i-- {
		name := "photo"
		if len(data) > 1 {
			name = fmt.Sprintf("photo %d", i+1)
		}
		if _, err := sess.Upload(ctx, name, data[i]); err != nil {
			return h.reply(chatID, err)
		}
	}

	h.ui.Update(chatID, userID, func(st *uiState) {
		st.Menu = menuMain
		st.AwaitingEdit = false
	})
	if err := h.render(chatID, userID, sess); err != nil {
		return err
	}

	sess.Wait()
	if caption = strings.TrimSpace(caption); caption != "" {
		h.setDescription(sess, caption)
	}
	return h.render(chatID, userID, sess)
}

func (h *Handler) setDescription(sess *studio.Session, text string) {
	in := sess.Snapshot().Input
	in.Description = text
	sess.UpdateInput(in)
}

func (h *Handler) describe(ctx context.Context, chatID, userID int64, sess *studio.Session) error {
	h.tg.SendTyping(chatID)
	text, err := sess.Describe(ctx)
	if err != nil {
		if studio.IsKind(err, studio.KindBusy) {
			return h.reply(chatID, err)
		}
		return h.render(chatID, userID, sess)
	}
	h.setDescription(sess, text)
	return h.render(chatID, userID, sess)
}

// generate runs a generation and sends every new gallery entry it produced.
func (h *Handler) generate(ctx context.Context, chatID, userID int64, sess *studio.Session, fn func(context.Context) error) error {
	started := time.Now()
	err := h.run(ctx, chatID, userID, sess, fn)
	if studio.IsKind(err, studio.KindBusy) {
		return h.reply(chatID, err)
	}

	snap := sess.Snapshot()
	var produced []studio.Content
	for _, c := range snap.Gallery {
		if c.CreatedAt.Before(started) {
			break
		}
		produced = append(produced, c)
	}
	for i := len(produced) - 1; i >= 0; i-- {
		if sendErr := h.tg.SendPhotoDataURL(chatID, produced[i].Image, caption(&produced[i])); sendErr != nil {
			h.logger.Error("send result failed", "chat_id", chatID, "err", sendErr)
		}
	}
	return h.renderNew(chatID, userID, sess)
}

// edit runs an edit-like operation and sends the resulting current image.
func (h *Handler) edit(ctx context.Context, chatID, userID int64, sess *studio.Session, fn func(context.Context) error) error {
	err := h.run(ctx, chatID, userID, sess, fn)
	switch {
	case studio.IsKind(err, studio.KindBusy):
		return h.reply(chatID, err)
	case err != nil:
		return h.render(chatID, userID, sess)
	}

	if cur := sess.Current(); cur != nil {
		if sendErr := h.tg.SendPhotoDataURL(chatID, cur.Image, caption(cur)); sendErr != nil {
			h.logger.Error("send result failed", "chat_id", chatID, "err", sendErr)
		}
	}
	return h.renderNew(chatID, userID, sess)
}

// run calls fn while mirroring state changes onto the panel.
func (h *Handler) run(ctx context.Context, chatID, userID int64, sess *studio.Session, fn func(context.Context) error) error {
	h.tg.SendTyping(chatID)

	updates, cancel := sess.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		last := studio.StateIdle
		for snap := range updates {
			if snap.State == last || snap.State == studio.StateIdle {
				continue
			}
			last = snap.State
			if err := h.renderSnapshot(chatID, userID, sess, snap); err != nil {
				h.logger.Warn("progress update failed", "chat_id", chatID, "err", err)
			}
		}
	}()

	err := fn(ctx)
	cancel()
	<-done

	if err != nil {
		h.logger.Info("studio request failed", "chat_id", chatID, "kind", studio.KindOf(err), "err", err)
	}
	return err
}

func (h *Handler) render(chatID, userID int64, sess *studio.Session) error {
	return h.renderSnapshot(chatID, userID, sess, sess.Snapshot())
}

// renderNew moves the panel below the latest messages.
func (h *Handler) renderNew(chatID, userID int64, sess *studio.Session) error {
	h.ui.Update(chatID, userID, func(st *uiState) { st.MessageID = 0 })
	return h.render(chatID, userID, sess)
}

func (h *Handler) renderSnapshot(chatID, userID int64, sess *studio.Session, snap studio.Snapshot) error {
	st := h.ui.Get(chatID, userID)
	text := panelText(snap, st, sess.Catalog())
	kb := panelKeyboard(userID, snap, st, sess.Catalog())

	if st.MessageID != 0 {
		err := h.tg.EditTextWithKeyboard(chatID, st.MessageID, text, kb)
		if err == nil {
			return nil
		}
		h.logger.Warn("panel edit failed, sending a new one", "chat_id", chatID, "err", err)
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.ui.Update(chatID, userID, func(st *uiState) { st.MessageID = msgID })
	return nil
}

func (h *Handler) reply(chatID int64, err error) error {
	return h.tg.SendText(chatID, "❌ "+userMessage(err))
}

func userMessage(err error) string {
	if studio.KindOf(err) != "" {
		return err.Error()
	}
	return "Something went wrong. Please try again."
}

func parsePosition(args string) (float64, float64, error) {
	fields := strings.Fields(strings.ReplaceAll(args, ",", " "))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two coordinates, got %d", len(fields))
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, err
	}
	if !(x >= 0 && x <= 1) || !(y >= 0 && y <= 1) {
		return 0, 0, fmt.Errorf("coordinates out of range: %v, %v", x, y)
	}
	return x, y, nil
}
