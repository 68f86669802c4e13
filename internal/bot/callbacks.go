package bot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ad-studio/internal/creative"
	"ad-studio/internal/studio"
)

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.Message == nil || q.From == nil {
		return h.tg.AnswerCallback(q.ID, "", false)
	}

	data, ok := parseCallback(q.Data)
	if !ok {
		return h.tg.AnswerCallback(q.ID, "", false)
	}
	if data.OwnerID != q.From.ID {
		return h.tg.AnswerCallback(q.ID, "This panel belongs to someone else.", true)
	}

	chatID := q.Message.Chat.ID
	userID := q.From.ID
	sess := h.session(chatID, userID)
	h.ui.Update(chatID, userID, func(st *uiState) { st.MessageID = q.Message.MessageID })

	// Model calls can take a while; answer first so the button stops spinning.
	switch data.Action {
	case "gen", "regen", "var", "adj", "describe":
		_ = h.tg.AnswerCallback(q.ID, "⏳ Working…", false)
		return h.runCallback(ctx, chatID, userID, sess, data)
	}

	if err := h.applyCallback(chatID, userID, sess, data); err != nil {
		return h.tg.AnswerCallback(q.ID, userMessage(err), true)
	}
	_ = h.tg.AnswerCallback(q.ID, "", false)
	return h.render(chatID, userID, sess)
}

func (h *Handler) runCallback(ctx context.Context, chatID, userID int64, sess *studio.Session, data callback) error {
	switch data.Action {
	case "gen":
		return h.generate(ctx, chatID, userID, sess, func(ctx context.Context) error {
			return sess.Generate(ctx, studio.GenerateRequest{})
		})
	case "regen":
		if data.arg(0) == "text" {
			return h.generate(ctx, chatID, userID, sess, sess.RegenerateText)
		}
		return h.generate(ctx, chatID, userID, sess, sess.RegenerateImage)
	case "var":
		return h.generate(ctx, chatID, userID, sess, sess.NewVariation)
	case "adj":
		h.ui.Update(chatID, userID, func(st *uiState) { st.Menu = menuMain })
		id := data.arg(0)
		return h.edit(ctx, chatID, userID, sess, func(ctx context.Context) error {
			return sess.EditWithAdjustment(ctx, id)
		})
	case "describe":
		return h.describe(ctx, chatID, userID, sess)
	}
	return nil
}

// applyCallback handles the actions that only touch session or panel state.
func (h *Handler) applyCallback(chatID, userID int64, sess *studio.Session, data callback) error {
	setMenu := func(m menu) {
		h.ui.Update(chatID, userID, func(st *uiState) { st.Menu = m })
	}

	switch data.Action {
	case "menu":
		setMenu(menu(data.arg(0)))
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "fmt":
		return toggleFormat(sess, data.arg(0))
	case "fmt_clear":
		return sess.SetFormats()
	case "slogan":
		style, err := creative.ParseSloganStyle(data.arg(0))
		if err != nil {
			return err
		}
		if err := sess.SetSloganStyle(style); err != nil {
			return err
		}
		setMenu(menuMain)
	case "undo":
		return sess.Undo()
	case "redo":
		return sess.Redo()
	case "reset":
		return sess.ResetHistory()
	case "edit":
		if sess.Current() == nil {
			return &studio.Error{Kind: studio.KindValidation, Message: "Generate an image before editing."}
		}
		h.ui.Update(chatID, userID, func(st *uiState) { st.AwaitingEdit = true })
	case "cancel":
		h.ui.Update(chatID, userID, func(st *uiState) { st.AwaitingEdit = false })
	case "confirm":
		sess.ConfirmAnalysis()
	case "dismiss":
		sess.DismissAnalysis()
	case "img", "del":
		snap := sess.Snapshot()
		i, err := strconv.Atoi(data.arg(0))
		if err != nil || i < 0 || i >= len(snap.Images) {
			return &studio.Error{Kind: studio.KindValidation, Message: "Image not found."}
		}
		if data.Action == "del" {
			return sess.DeleteImage(snap.Images[i].ID)
		}
		if err := sess.SelectImage(snap.Images[i].ID); err != nil {
			return err
		}
		setMenu(menuMain)
	case "gal":
		i, err := strconv.Atoi(data.arg(0))
		if err != nil {
			return &studio.Error{Kind: studio.KindValidation, Message: "Gallery item not found."}
		}
		if err := sess.SelectFromGallery(i); err != nil {
			return err
		}
		setMenu(menuMain)
		if cur := sess.Current(); cur != nil {
			return h.tg.SendPhotoDataURL(chatID, cur.Image, caption(cur))
		}
	case "new":
		if err := sess.ClearSelection(); err != nil {
			return err
		}
		setMenu(menuMain)
	}
	return nil
}

func toggleFormat(sess *studio.Session, id string) error {
	current := sess.Snapshot().Formats
	next := make([]string, 0, len(current)+1)
	found := false
	for _, f := range current {
		if f == id {
			found = true
			continue
		}
		next = append(next, f)
	}
	if !found {
		next = append(next, id)
	}
	return sess.SetFormats(next...)
}
