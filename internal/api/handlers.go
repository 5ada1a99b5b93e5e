// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	vcserr "myvcs/internal/errors"
	"myvcs/internal/logging"
	"myvcs/internal/reflog"
	"myvcs/internal/repository"
	"myvcs/internal/status"
	"myvcs/internal/validation"
	"myvcs/shared/types"

	"go.uber.org/zap"
)

// RepoHandler serves one repository over HTTP. The repository is opened per
// request and requests are serialized, so the daemon never holds repository
// state between calls.
type RepoHandler struct {
	root   string
	opts   repository.Options
	logger *logging.Logger
	mu     sync.Mutex
}

func NewRepoHandler(root string, opts repository.Options, logger *logging.Logger) *RepoHandler {
	return &RepoHandler{root: root, opts: opts, logger: logger}
}

// Register mounts the repository endpoints on mux.
func (h *RepoHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/add", h.Add)
	mux.HandleFunc("POST /api/commit", h.Commit)
	mux.HandleFunc("GET /api/branches", h.Branches)
	mux.HandleFunc("POST /api/branches", h.CreateBranch)
	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("GET /api/head", h.Head)
	mux.HandleFunc("GET /api/log", h.Log)
	mux.HandleFunc("GET /api/log/{id}", h.LogEntry)
}

// withRepo opens the repository and runs fn while holding the handler lock.
func (h *RepoHandler) withRepo(w http.ResponseWriter, r *http.Request, fn func(*repository.Repository) error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	opts := h.opts
	opts.Logger = h.logger.WithRequestID(r.Context())

	repo, err := repository.Open(h.root, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := fn(repo); err != nil {
		h.writeError(w, r, err)
	}
}

func (h *RepoHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req types.AddRequest
	if err := validation.DecodeRequest(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.withRepo(w, r, func(repo *repository.Repository) error {
		entries, err := repo.Add(req.Path)
		if err != nil {
			return err
		}
		resp := types.AddResponse{Staged: make([]types.Entry, 0, len(entries))}
		for _, e := range entries {
			resp.Staged = append(resp.Staged, types.Entry{Path: e.Path, Hash: e.Hash})
		}
		writeJSON(w, http.StatusOK, resp)
		return nil
	})
}

func (h *RepoHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req types.CommitRequest
	if err := validation.DecodeRequest(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.withRepo(w, r, func(repo *repository.Repository) error {
		res, err := repo.Commit(req.Message)
		if res == nil {
			return err
		}
		if err != nil {
			h.logger.WithRequestID(r.Context()).Warn("commit recorded with warning", zap.Error(err))
		}
		writeJSON(w, http.StatusCreated, types.CommitResponse{
			Hash:     res.Hash,
			Previous: res.Previous,
			Ref:      res.Head.RefName(),
			Files:    res.Files,
		})
		return nil
	})
}

func (h *RepoHandler) Branches(w http.ResponseWriter, r *http.Request) {
	h.withRepo(w, r, func(repo *repository.Repository) error {
		list, err := repo.Branches()
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, types.BranchesResponse{
			Current:  list.Current,
			Branches: list.Branches,
		})
		return nil
	})
}

func (h *RepoHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req types.BranchRequest
	if err := validation.DecodeRequest(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.withRepo(w, r, func(repo *repository.Repository) error {
		commit, err := repo.CreateBranch(req.Name)
		if commit == "" {
			return err
		}
		if err != nil {
			h.logger.WithRequestID(r.Context()).Warn("branch created with warning", zap.Error(err))
		}
		writeJSON(w, http.StatusCreated, types.BranchResponse{Name: req.Name, Commit: commit})
		return nil
	})
}

func (h *RepoHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req types.CheckoutRequest
	if err := validation.DecodeRequest(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.withRepo(w, r, func(repo *repository.Repository) error {
		var (
			res *repository.CheckoutResult
			err error
		)
		if req.Branch != "" {
			res, err = repo.SwitchBranch(req.Branch)
		} else {
			res, err = repo.Detach(req.Commit)
		}
		if res == nil {
			return err
		}
		if err != nil {
			h.logger.WithRequestID(r.Context()).Warn("checkout completed with warning", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, types.CheckoutResponse{
			Branch:  res.Branch,
			From:    res.From,
			To:      res.To,
			Removed: nonNil(res.Removed),
			Written: nonNil(res.Written),
		})
		return nil
	})
}

func (h *RepoHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.withRepo(w, r, func(repo *repository.Repository) error {
		report, err := repo.Status()
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, statusResponse(report))
		return nil
	})
}

func (h *RepoHandler) Head(w http.ResponseWriter, r *http.Request) {
	h.withRepo(w, r, func(repo *repository.Repository) error {
		info, err := repo.Head()
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, types.HeadResponse{
			Kind:   info.Head.Kind.String(),
			Branch: info.Head.Branch,
			Commit: info.Commit,
			Unborn: info.Unborn,
		})
		return nil
	})
}

func (h *RepoHandler) Log(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, r, vcserr.ValidationError("limit must be a non-negative integer", v))
			return
		}
		limit = n
	}

	h.withRepo(w, r, func(repo *repository.Repository) error {
		entries, err := repo.Log(r.URL.Query().Get("ref"), limit)
		if err != nil {
			return err
		}
		resp := types.LogResponse{Entries: make([]types.LogEntry, 0, len(entries))}
		for _, e := range entries {
			resp.Entries = append(resp.Entries, logEntry(&e))
		}
		writeJSON(w, http.StatusOK, resp)
		return nil
	})
}

func (h *RepoHandler) LogEntry(w http.ResponseWriter, r *http.Request) {
	h.withRepo(w, r, func(repo *repository.Repository) error {
		e, err := repo.LogEntry(r.PathValue("id"))
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, logEntry(e))
		return nil
	})
}

func logEntry(e *reflog.Entry) types.LogEntry {
	return types.LogEntry{
		ID:      e.ID,
		Ref:     e.Ref,
		Old:     e.Old,
		New:     e.New,
		Message: e.Message,
		Time:    e.Time,
	}
}

// Health answers liveness probes.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func statusResponse(r *status.Report) types.StatusResponse {
	return types.StatusResponse{
		Modified:  r.Modified,
		Added:     r.Added,
		Untracked: r.Untracked,
		Deleted:   r.Deleted,
	}
}

func (h *RepoHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := vcserr.As(err)
	if !ok {
		h.logger.WithRequestID(r.Context()).Error("request failed", zap.Error(err))
		e = vcserr.Internal(err.Error())
	}
	writeJSON(w, e.Code, types.ErrorResponse{
		Type:    string(e.Type),
		Message: err.Error(),
		Code:    e.Code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
