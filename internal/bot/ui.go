package bot

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ad-studio/internal/creative"
	"ad-studio/internal/studio"
)

const callbackPrefix = "as"

type menu string

const (
	menuMain    menu = "main"
	menuFormats menu = "formats"
	menuSlogan  menu = "slogan"
	menuAdjust  menu = "adjust"
	menuImages  menu = "images"
	menuGallery menu = "gallery"
)

// uiState is the per-chat control panel: which menu is open, which message
// carries it and whether the next text is an edit instruction.
type uiState struct {
	MessageID    int
	Menu         menu
	AwaitingEdit bool
	UpdatedAt    time.Time
}

type uiKey struct {
	ChatID int64
	UserID int64
}

type uiStore struct {
	mu sync.Mutex
	m  map[uiKey]*uiState
}

func newUIStore() *uiStore {
	return &uiStore{m: make(map[uiKey]*uiState)}
}

func (s *uiStore) Get(chatID, userID int64) uiState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID, userID)
}

func (s *uiStore) Update(chatID, userID int64, fn func(*uiState)) uiState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(st)
	}
	st.UpdatedAt = time.Now()
	return *st
}

func (s *uiStore) Reset(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, uiKey{ChatID: chatID, UserID: userID})
}

func (s *uiStore) getOrCreateLocked(chatID, userID int64) *uiState {
	key := uiKey{ChatID: chatID, UserID: userID}
	if st, ok := s.m[key]; ok {
		return st
	}
	st := &uiState{Menu: menuMain, UpdatedAt: time.Now()}
	s.m[key] = st
	return st
}

var stateLabels = map[studio.State]string{
	studio.StateDescribing:      "⏳ Describing the product…",
	studio.StateGeneratingText:  "⏳ Writing copy…",
	studio.StateGeneratingImage: "⏳ Rendering the ad…",
	studio.StateEditing:         "⏳ Applying the edit…",
}

func panelText(snap studio.Snapshot, st uiState, catalog *creative.Catalog) string {
	var b strings.Builder
	b.WriteString("🖼 Ad Studio\n\n")

	var selected *studio.ImageView
	for i := range snap.Images {
		if snap.Images[i].ID == snap.SelectedImageID {
			selected = &snap.Images[i]
		}
	}

	if selected == nil {
		b.WriteString("Photo: (none)\n\n📷 Send a product photo to start.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Photo: %s (%d of %d)\n", selected.Name, indexOf(snap, selected.ID)+1, len(snap.Images)))
	switch {
	case snap.AnalysisLoading:
		b.WriteString("Analysis: running…\n")
	case selected.Analysis != nil:
		a := selected.Analysis
		b.WriteString(fmt.Sprintf("Product: %s", a.Title))
		if a.Industry != "" {
			b.WriteString(" · " + a.Industry)
		}
		b.WriteString("\n")
		if len(a.NaturalEnvironments) > 0 {
			b.WriteString("Scenes: " + strings.Join(a.NaturalEnvironments, ", ") + "\n")
		}
	}
	if d := strings.TrimSpace(snap.Input.Description); d != "" {
		b.WriteString("Description: " + truncateLine(d, 120) + "\n")
	} else if selected.Description != "" {
		b.WriteString("Description: " + truncateLine(selected.Description, 120) + "\n")
	}

	b.WriteString("Formats: " + formatNames(snap.Formats, catalog) + "\n")
	b.WriteString("Slogan: " + sloganName(snap.SloganStyle) + "\n")
	if snap.HistoryLength > 0 {
		b.WriteString(fmt.Sprintf("History: %d/%d\n", snap.Cursor+1, snap.HistoryLength))
	}

	if label, busy := stateLabels[snap.State]; busy {
		b.WriteString("\n" + label + "\n")
	}
	if snap.Error != nil {
		b.WriteString("\n❌ " + snap.Error.Message + "\n")
	}
	if snap.ReviewAnalysis {
		b.WriteString("\n🔎 Analysis ready. Confirm it or keep editing with /desc.\n")
	}
	if st.AwaitingEdit {
		b.WriteString("\n✏️ Send the edit instruction as a message (cancel: /cancel).\n")
	}

	return strings.TrimSpace(b.String())
}

func panelKeyboard(ownerID int64, snap studio.Snapshot, st uiState, catalog *creative.Catalog) tgbotapi.InlineKeyboardMarkup {
	switch st.Menu {
	case menuFormats:
		return formatsKeyboard(ownerID, snap, catalog)
	case menuSlogan:
		return sloganKeyboard(ownerID, snap)
	case menuAdjust:
		return adjustKeyboard(ownerID)
	case menuImages:
		return imagesKeyboard(ownerID, snap)
	case menuGallery:
		return galleryKeyboard(ownerID, snap)
	default:
		return mainKeyboard(ownerID, snap)
	}
}

func mainKeyboard(ownerID int64, snap studio.Snapshot) tgbotapi.InlineKeyboardMarkup {
	if snap.SelectedImageID == "" {
		rows := [][]tgbotapi.InlineKeyboardButton{}
		if len(snap.Images) > 0 {
			rows = append(rows, []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗂 Library (%d)", len(snap.Images)), cb(ownerID, "menu", string(menuImages))),
			})
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("❔ Help", cb(ownerID, "help")),
		})
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if snap.ReviewAnalysis {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✅ Use analysis", cb(ownerID, "confirm")),
			tgbotapi.NewInlineKeyboardButtonData("Dismiss", cb(ownerID, "dismiss")),
		})
	}

	rows = append(rows,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Formats", cb(ownerID, "menu", string(menuFormats))),
			tgbotapi.NewInlineKeyboardButtonData("Slogan", cb(ownerID, "menu", string(menuSlogan))),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🎨 Generate", cb(ownerID, "gen")),
		},
	)

	if snap.LastParams != nil {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🔁 Image", cb(ownerID, "regen", "image")),
			tgbotapi.NewInlineKeyboardButtonData("🔁 Text", cb(ownerID, "regen", "text")),
			tgbotapi.NewInlineKeyboardButtonData("🎲 Variation", cb(ownerID, "var")),
		})
	}

	if snap.Current != nil {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", cb(ownerID, "edit")),
			tgbotapi.NewInlineKeyboardButtonData("🪄 Adjust", cb(ownerID, "menu", string(menuAdjust))),
		})
	}

	if snap.HistoryLength > 0 {
		undo, redo := "↩️ Undo", "↪️ Redo"
		if !snap.CanUndo {
			undo = "·"
		}
		if !snap.CanRedo {
			redo = "·"
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(undo, cb(ownerID, "undo")),
			tgbotapi.NewInlineKeyboardButtonData(redo, cb(ownerID, "redo")),
			tgbotapi.NewInlineKeyboardButtonData("⏮ Reset", cb(ownerID, "reset")),
		})
	}

	lib := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗂 Library (%d)", len(snap.Images)), cb(ownerID, "menu", string(menuImages))),
		tgbotapi.NewInlineKeyboardButtonData("📝 Describe", cb(ownerID, "describe")),
	}
	if len(snap.Gallery) > 0 {
		lib = append(lib, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🖼 Gallery (%d)", len(snap.Gallery)), cb(ownerID, "menu", string(menuGallery))))
	}
	rows = append(rows, lib)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatsKeyboard(ownerID int64, snap studio.Snapshot, catalog *creative.Catalog) tgbotapi.InlineKeyboardMarkup {
	selected := make(map[string]bool, len(snap.Formats))
	for _, id := range snap.Formats {
		selected[id] = true
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, f := range catalog.Formats() {
		label := f.Name
		if selected[f.ID] {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "fmt", f.ID)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Default", cb(ownerID, "fmt_clear")),
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", string(menuMain))),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func sloganKeyboard(ownerID int64, snap studio.Snapshot) tgbotapi.InlineKeyboardMarkup {
	none := "No slogan"
	if snap.SloganStyle == creative.SloganNone {
		none = "✅ " + none
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	row := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData(none, cb(ownerID, "slogan", "none"))}
	for _, opt := range creative.SloganStyles() {
		label := opt.Name
		if creative.SloganStyle(opt.Key) == snap.SloganStyle {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "slogan", opt.Key)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", string(menuMain))),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func adjustKeyboard(ownerID int64) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, a := range creative.Adjustments() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(a.Name, cb(ownerID, "adj", a.ID)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", string(menuMain))),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// imagesKeyboard addresses library entries by position; ids do not fit the
// 64-byte callback limit.
func imagesKeyboard(ownerID int64, snap studio.Snapshot) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, img := range snap.Images {
		label := truncateLine(img.Name, 24)
		if img.ID == snap.SelectedImageID {
			label = "✅ " + label
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "img", strconv.Itoa(i))),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cb(ownerID, "del", strconv.Itoa(i))),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("📷 New photo", cb(ownerID, "new")),
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", string(menuMain))),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func galleryKeyboard(ownerID int64, snap studio.Snapshot) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, c := range snap.Gallery {
		label := fmt.Sprintf("%d", i+1)
		if c.IsFacebookAd() {
			label += " · ad"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "gal", strconv.Itoa(i))))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", string(menuMain))),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// caption renders the text that goes under a generated image.
func caption(c *studio.Content) string {
	if c == nil {
		return ""
	}
	if c.IsFacebookAd() {
		return strings.TrimSpace(c.Headline + "\n\n" + c.BodyText)
	}
	if c.Slogan != "" {
		return "“" + c.Slogan + "”"
	}
	return ""
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

type callback struct {
	OwnerID int64
	Action  string
	Args    []string
}

func parseCallback(data string) (callback, bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return callback{}, false
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	return callback{OwnerID: ownerID, Action: parts[2], Args: parts[3:]}, true
}

func (c callback) arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

func formatNames(ids []string, catalog *creative.Catalog) string {
	if len(ids) == 0 {
		if f, ok := catalog.Default(); ok {
			return f.Name + " (default)"
		}
		return "(none)"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if f, ok := catalog.Lookup(id); ok {
			names = append(names, f.Name)
		}
	}
	return strings.Join(names, ", ")
}

func sloganName(style creative.SloganStyle) string {
	if style == creative.SloganNone {
		return "none"
	}
	for _, opt := range creative.SloganStyles() {
		if opt.Key == string(style) {
			return opt.Name
		}
	}
	return string(style)
}

func indexOf(snap studio.Snapshot, id string) int {
	for i, img := range snap.Images {
		if img.ID == id {
			return i
		}
	}
	return -1
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
