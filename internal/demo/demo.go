// Package demo is a small to-do application speaking the tx exchange
// protocol. It backs `tx serve` and the engine's end-to-end tests.
//
// The server keeps no per-client data: the list and the pending item
// travel with every exchange in the tx_todo state entry.
package demo

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/tx/pkg/wire"
)

// Region is the name of the to-do region.
const Region = "tx_todo"

// Todo is the region's state.
type Todo struct {
	List []string `json:"list"`
	Item string   `json:"item"`
}

// App serves the to-do pages and handlers.
type App struct {
	logger *slog.Logger
	prefix string
}

// New creates the application. Handlers are mounted under prefix, which
// defaults to "/tx/".
func New(logger *slog.Logger, prefix string) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "/tx/"
	}
	return &App{logger: logger, prefix: prefix}
}

// Routes returns the application router.
func (a *App) Routes() chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Recoverer)

	root.Get("/", a.page)
	root.Route(strings.TrimSuffix(a.prefix, "/"), func(r chi.Router) {
		r.Post("/todo_add", a.add)
		r.Post("/todo_remove", a.remove)
		r.Post("/todo_reset", a.reset)
		r.Handle("/ws", wire.ServeWS(root, &websocket.Upgrader{}, a.logger))
	})
	return root
}

func (a *App) page(w http.ResponseWriter, r *http.Request) {
	a.writePage(w, r, Todo{List: []string{}})
}

func (a *App) writePage(w http.ResponseWriter, r *http.Request, todo Todo) {
	if err := wire.WritePage(w, r, "todo", pageBody(todo), map[string]any{Region: todo}); err != nil {
		a.logger.Error("render page failed", "error", err)
	}
}

func (a *App) add(w http.ResponseWriter, r *http.Request) {
	todo, ok := a.decode(w, r)
	if !ok {
		return
	}
	if todo.Item != "" {
		todo.List = append(todo.List, todo.Item)
	}
	todo.Item = ""
	a.respond(w, r, todo)
}

func (a *App) remove(w http.ResponseWriter, r *http.Request) {
	todo, ok := a.decode(w, r)
	if !ok {
		return
	}
	req, _ := wire.ParseRequest(r)
	i, err := strconv.Atoi(req.Params.Get("i"))
	if err == nil && i >= 0 && i < len(todo.List) {
		todo.List = append(todo.List[:i], todo.List[i+1:]...)
	}
	a.respond(w, r, todo)
}

func (a *App) reset(w http.ResponseWriter, r *http.Request) {
	a.writePage(w, r, Todo{List: []string{}})
}

func (a *App) decode(w http.ResponseWriter, r *http.Request) (Todo, bool) {
	todo := Todo{List: []string{}}
	req, err := wire.ParseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return todo, false
	}
	if _, err := req.Bind(Region, &todo); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return todo, false
	}
	if todo.List == nil {
		todo.List = []string{}
	}
	return todo, true
}

func (a *App) respond(w http.ResponseWriter, r *http.Request, todo Todo) {
	if err := wire.WriteRegion(w, r, Region, todoView(todo), map[string]any{Region: todo}); err != nil {
		a.logger.Error("render region failed", "error", err)
	}
}
