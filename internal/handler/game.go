package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmoren/ludoteca/internal/apperror"
	"github.com/dmoren/ludoteca/internal/auth"
	"github.com/dmoren/ludoteca/internal/model"
	"github.com/dmoren/ludoteca/internal/service"
)

// maxFormMemory is how much of a multipart body is held in memory before
// spilling to temp files. Covers are capped well below this anyway.
const maxFormMemory = 8 << 20

// GameHandler serves the add/edit/delete flows and the cover images.
type GameHandler struct {
	renderer   *Renderer
	collection *service.CollectionService
	identity   *service.IdentityService
	logger     *slog.Logger
}

func NewGameHandler(
	renderer *Renderer,
	collection *service.CollectionService,
	identity *service.IdentityService,
	logger *slog.Logger,
) *GameHandler {
	return &GameHandler{
		renderer:   renderer,
		collection: collection,
		identity:   identity,
		logger:     logger,
	}
}

// gameForm carries raw form values into the add/edit templates, both for
// pre-filling (edit GET) and for echoing the user's input back when
// validation fails. Rating stays a string here, it's whatever was typed.
type gameForm struct {
	ID        int64
	Title     string
	Developer string
	Platform  string
	Rating    string
}

func formFromGame(g *model.Game) gameForm {
	f := gameForm{
		ID:        g.ID,
		Title:     g.Title,
		Developer: g.Developer,
		Platform:  g.Platform,
	}
	if g.Rating != nil {
		f.Rating = strconv.Itoa(*g.Rating)
	}
	return f
}

// HandleAddForm serves GET /add: a blank add-game form.
func (h *GameHandler) HandleAddForm(w http.ResponseWriter, r *http.Request) {
	h.renderAdd(w, r, gameForm{}, "")
}

// HandleAddSubmit serves POST /add.
//
// titulo/plataforma/desarrolladora are required; nota is parsed to an integer
// only when non-empty, and portada is stored only when a non-empty upload was
// supplied. The added date is today and the owner is the session user.
// Validation problems re-render the form with the user's input intact.
func (h *GameHandler) HandleAddSubmit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	in, form, err := parseGameForm(r)
	if err != nil {
		h.renderAdd(w, r, form, validationMessage(err))
		return
	}

	game, err := h.collection.Add(r.Context(), userID, in)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			h.renderAdd(w, r, form, validationMessage(err))
			return
		}
		h.logger.Error("failed to add game", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	redirectToCollection(w, r, "add", game.Title)
}

// HandleDelete serves GET /del?id=N.
//
// Deleting a game that doesn't exist, was already deleted, or belongs to
// someone else is a no-op: silent redirect back to the listing. So is a
// malformed id. Nothing on this path can fault.
func (h *GameHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/coleccion", http.StatusSeeOther)
		return
	}

	if err := h.collection.Remove(r.Context(), id, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.Redirect(w, r, "/coleccion", http.StatusSeeOther)
			return
		}
		h.logger.Error("failed to delete game",
			slog.Int64("gameID", id),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	redirectToCollection(w, r, "del", "")
}

// HandleEditForm serves GET /edit?id=N: the edit form pre-filled with the
// game's fields. A missing, foreign, or malformed id silently redirects to
// the listing.
func (h *GameHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/coleccion", http.StatusSeeOther)
		return
	}

	game, err := h.collection.Get(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.Redirect(w, r, "/coleccion", http.StatusSeeOther)
			return
		}
		h.logger.Error("failed to load game for edit",
			slog.Int64("gameID", id),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.renderEdit(w, r, formFromGame(game), "")
}

// HandleEditSubmit serves POST /edit.
//
// Ownership is re-verified by the update query itself: it's part of the
// WHERE clause, not a stale check from the GET. Unlike Add, nota is required
// here. The cover is replaced only when a new upload was supplied; owner and
// added date are never written.
func (h *GameHandler) HandleEditSubmit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	in, form, err := parseGameForm(r)

	// The id must survive a validation re-render: the hidden field in the
	// edit form is the only place it lives between submits.
	id, idErr := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if idErr != nil {
		http.Redirect(w, r, "/coleccion", http.StatusSeeOther)
		return
	}
	form.ID = id

	if err != nil {
		h.renderEdit(w, r, form, validationMessage(err))
		return
	}

	game, err := h.collection.Update(r.Context(), id, userID, in)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			h.renderEdit(w, r, form, validationMessage(err))
		case errors.Is(err, apperror.ErrNotFound):
			http.Redirect(w, r, "/coleccion", http.StatusSeeOther)
		default:
			h.logger.Error("failed to update game",
				slog.Int64("gameID", id),
				slog.String("error", err.Error()),
			)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	redirectToCollection(w, r, "edi", game.Title)
}

// HandleCover serves GET /cover?id=N: the stored cover image bytes.
func (h *GameHandler) HandleCover(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	data, err := h.collection.Cover(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to load cover",
			slog.Int64("gameID", id),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

func (h *GameHandler) renderAdd(w http.ResponseWriter, r *http.Request, form gameForm, errMsg string) {
	h.renderGamePage(w, r, "add", form, errMsg)
}

func (h *GameHandler) renderEdit(w http.ResponseWriter, r *http.Request, form gameForm, errMsg string) {
	h.renderGamePage(w, r, "edit", form, errMsg)
}

func (h *GameHandler) renderGamePage(w http.ResponseWriter, r *http.Request, page string, form gameForm, errMsg string) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.identity.CurrentUser(r.Context(), userID)
	if err != nil {
		clearSessionCookie(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.renderer.Render(w, page, map[string]any{
		"Title": "Ludoteca",
		"User":  user,
		"Form":  form,
		"Error": errMsg,
	})
}

// parseGameForm reads the shared add/edit form fields. It returns the parsed
// service input alongside the raw form values (for re-rendering on error).
func parseGameForm(r *http.Request) (service.GameInput, gameForm, error) {
	// The forms submit multipart (they carry a file field); tests and
	// clients without an upload may send urlencoded bodies instead.
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return service.GameInput{}, gameForm{}, apperror.ValidationFailed("form", "could not read form data")
	}

	form := gameForm{
		Title:     r.FormValue("titulo"),
		Developer: r.FormValue("desarrolladora"),
		Platform:  r.FormValue("plataforma"),
		Rating:    strings.TrimSpace(r.FormValue("nota")),
	}

	in := service.GameInput{
		Title:     form.Title,
		Developer: form.Developer,
		Platform:  form.Platform,
	}

	// nota: optional, but when present it must be a whole number.
	if form.Rating != "" {
		n, err := strconv.Atoi(form.Rating)
		if err != nil {
			return in, form, apperror.ValidationFailed("nota", "rating must be a whole number")
		}
		in.Rating = &n
	}

	// portada: only an actual non-empty upload counts.
	cover, err := readCoverUpload(r)
	if err != nil {
		return in, form, err
	}
	in.Cover = cover

	return in, form, nil
}

func readCoverUpload(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("portada")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperror.ValidationFailed("portada", "could not read cover upload")
	}
	defer file.Close()

	// Read one byte past the cap so an oversized upload is detectable
	// without buffering all of it.
	data, err := io.ReadAll(io.LimitReader(file, service.MaxCoverBytes+1))
	if err != nil {
		return nil, apperror.ValidationFailed("portada", "could not read cover upload")
	}
	if len(data) > service.MaxCoverBytes {
		return nil, apperror.ValidationFailed("portada", "cover image is too large")
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// redirectToCollection sends the browser back to the listing with the display
// hint for the action that just happened ("add", "del" or "edi") and,
// optionally, the affected game's title.
func redirectToCollection(w http.ResponseWriter, r *http.Request, action, gameTitle string) {
	q := url.Values{}
	q.Set(action, "ok")
	if gameTitle != "" {
		q.Set("game", gameTitle)
	}
	http.Redirect(w, r, "/coleccion?"+q.Encode(), http.StatusSeeOther)
}

// validationMessage extracts the human-readable message from a validation
// error for inline display on the form.
func validationMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "invalid input"
}
