package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taglink/internal/common"
	"github.com/dmitrijs2005/taglink/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 2 * time.Second
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=1024"`
}

type createLinkRequest struct {
	PlayerTag string `json:"playerTag" validate:"required,max=64"`
	DiscordID *int64 `json:"discordId" validate:"required,gte=0"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Hello world"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, common.ErrBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Validate(req); err != nil {
		s.writeError(w, r, common.ErrBadRequest, err.Error())
		return
	}

	sess, err := s.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "tag")

	links, err := s.links.Lookup(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err, "invalid tag syntax")
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var raws []string
	if err := decodeBody(w, r, &raws); err != nil {
		s.writeError(w, r, common.ErrBadRequest, "body must be a JSON array of strings")
		return
	}

	res, err := s.links.LookupBatch(r.Context(), raws)
	if err != nil {
		s.writeError(w, r, err, fmt.Sprintf("batch must not exceed %d tokens", services.MaxBatchSize))
		return
	}
	if len(res.Links) == 0 {
		s.writeError(w, r, common.ErrorNotFound, "no links found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, common.ErrBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Validate(req); err != nil {
		s.writeError(w, r, common.ErrBadRequest, err.Error())
		return
	}

	link, err := s.links.Create(r.Context(), actorFrom(r.Context()), req.PlayerTag, *req.DiscordID)
	if err != nil {
		msg := "invalid link"
		switch {
		case errors.Is(err, common.ErrInvalidTagSyntax):
			msg = "invalid tag syntax"
		case errors.Is(err, common.ErrAlreadyExists):
			msg = "tag is already linked"
		}
		s.writeError(w, r, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	tag := pathParam(r, "tag")

	link, err := s.links.Delete(r.Context(), actorFrom(r.Context()), tag)
	if err != nil {
		s.writeError(w, r, err, "link not found")
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, r, common.ErrBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = t
	}

	archive, err := s.audit.Archive(r.Context(), since)
	if err != nil {
		s.writeError(w, r, err, "nothing to archive")
		return
	}
	writeJSON(w, http.StatusOK, archive)
}

// pathParam returns the URL parameter exactly as routed. net/http has already
// decoded the path once, so "%23PYLQ289" arrives as "#PYLQ289" and must not be
// unescaped again.
func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
