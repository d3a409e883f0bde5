package http

import (
	"context"
	"net/http"
	"time"

	"ganhos/internal/core"
	"ganhos/internal/ledger"
	applog "ganhos/internal/log"
)

// recordLedger is the state side of a ledger, shared by every record kind.
type recordLedger[R core.Record] interface {
	State() ledger.State
	ErrMessage() string
	Err() error
	Window() core.Window
	View() core.Aggregation[R]
	Get(id string) (R, bool)
	Anchor() time.Time
	ReloadAt(ctx context.Context, t time.Time) bool
	Reload(ctx context.Context) bool
}

// anchoredLedger is the part of a ledger that ?anchor= drives.
type anchoredLedger interface {
	Anchor() time.Time
	ReloadAt(ctx context.Context, t time.Time) bool
}

// moveAnchor applies ?anchor= with a single guarded reload of the new
// window. It reports false when another reload was in flight, so the
// ledger does not hold the requested window's records yet.
func moveAnchor(r *http.Request, l anchoredLedger) (bool, error) {
	anchor, ok, err := ParseAnchor(r.URL.Query())
	if err != nil || !ok || anchor.Equal(l.Anchor()) {
		return true, err
	}
	return l.ReloadAt(r.Context(), anchor), nil
}

type mutableLedger[R core.Record, I any] interface {
	recordLedger[R]
	Create(ctx context.Context, in I) error
	Update(ctx context.Context, id string, in I) error
	Delete(ctx context.Context, id string) error
}

// recordHandlers serves one ledger under a path prefix.
type recordHandlers[R core.Record, I any, V any] struct {
	kind   string
	ledger mutableLedger[R, I]
	parse  func(*RequestBodyParser, I) (I, error)
	input  func(R) I
	value  func(I) core.Money
	view   func(R) V
	server *Server
}

func (h *recordHandlers[R, I, V]) register(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("GET "+prefix, h.list)
	mux.HandleFunc("POST "+prefix, h.create)
	mux.HandleFunc("POST "+prefix+"/reload", h.reload)
	mux.HandleFunc("GET "+prefix+"/{id}", h.get)
	mux.HandleFunc("PUT "+prefix+"/{id}", h.update)
	mux.HandleFunc("DELETE "+prefix+"/{id}", h.delete)
}

func (h *recordHandlers[R, I, V]) render(w http.ResponseWriter, status int) {
	NewJSONResponse().
		Status(status).
		JSON(newLedgerView[R, V](h.kind, h.ledger, h.ledger.View(), h.view)).
		Write(w)
}

func (h *recordHandlers[R, I, V]) list(w http.ResponseWriter, r *http.Request) {
	current, err := moveAnchor(r, h.ledger)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if !current {
		h.render(w, http.StatusAccepted)
		return
	}
	h.render(w, http.StatusOK)
}

func (h *recordHandlers[R, I, V]) get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.ledger.Get(r.PathValue("id"))
	if !ok {
		NotFoundError(h.kind + " not found").Write(w)
		return
	}
	NewJSONResponse().JSON(h.view(rec)).Write(w)
}

func (h *recordHandlers[R, I, V]) reload(w http.ResponseWriter, r *http.Request) {
	anchor, ok, err := ParseAnchor(r.URL.Query())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	var ran bool
	if ok {
		ran = h.ledger.ReloadAt(r.Context(), anchor)
	} else {
		ran = h.ledger.Reload(r.Context())
	}
	if !ran {
		h.render(w, http.StatusAccepted)
		return
	}
	if h.ledger.Err() != nil {
		BadGatewayError(h.ledger.ErrMessage()).Write(w)
		return
	}
	h.render(w, http.StatusOK)
}

func (h *recordHandlers[R, I, V]) create(w http.ResponseWriter, r *http.Request) {
	var zero I
	in, err := h.parse(NewRequestBodyParser(r), zero)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if err := h.ledger.Create(r.Context(), in); err != nil {
		h.fail(w, r, applog.OpCreate, "", err)
		return
	}
	h.saved(r, applog.OpCreate, "", h.value(in).Cents)
	h.render(w, http.StatusCreated)
}

// update overlays the body on the loaded record, so partial bodies work for
// records of the active collection.
func (h *recordHandlers[R, I, V]) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var base I
	if rec, ok := h.ledger.Get(id); ok {
		base = h.input(rec)
	}
	in, err := h.parse(NewRequestBodyParser(r), base)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if err := h.ledger.Update(r.Context(), id, in); err != nil {
		h.fail(w, r, applog.OpUpdate, id, err)
		return
	}
	h.saved(r, applog.OpUpdate, id, h.value(in).Cents)
	h.render(w, http.StatusOK)
}

func (h *recordHandlers[R, I, V]) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.ledger.Delete(r.Context(), id); err != nil {
		h.fail(w, r, applog.OpDelete, id, err)
		return
	}
	h.saved(r, applog.OpDelete, id, 0)
	h.render(w, http.StatusOK)
}

func (h *recordHandlers[R, I, V]) saved(r *http.Request, op, id string, cents int64) {
	h.server.afterMutation()
	h.server.slog.LogMutation(r.Context(), h.kind, op, id, cents)
}

func (h *recordHandlers[R, I, V]) fail(w http.ResponseWriter, r *http.Request, op, id string, err error) {
	if !core.IsValidation(err) {
		h.server.slog.LogError(r.Context(), "Ledger mutation failed", err, applog.ComponentHTTP, op,
			applog.NewFields().WithRecord(h.kind, id))
	}
	FromError(err).Write(w)
}
