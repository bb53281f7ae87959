package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ownyourdata/semcon/internal/common"
	"github.com/ownyourdata/semcon/internal/server/auth"
	"github.com/ownyourdata/semcon/internal/server/envelope"
	"github.com/ownyourdata/semcon/internal/server/models"
	"github.com/ownyourdata/semcon/internal/server/repositories/records"
	"github.com/ownyourdata/semcon/internal/server/services"
)

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"active": true,
		"auth":   s.cfg.AuthEnabled,
		"repos":  false,
	}
	if len(s.cfg.Scopes) > 0 {
		body["scopes"] = s.cfg.Scopes
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":        s.cfg.ContainerName,
		"description": s.cfg.ContainerDescription,
	})
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.query.Schemas(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if schemas == nil {
		schemas = []string{}
	}
	writeJSON(w, http.StatusOK, schemas)
}

// tokenRequest is the /oauth/token body: a client_credentials grant.
type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ErrInvalidInput)
		return
	}
	if req.GrantType != "" && req.GrantType != "client_credentials" {
		s.writeError(w, r, common.ErrInvalidInput)
		return
	}

	for _, client := range s.cfg.Clients {
		if client.ID == req.ClientID && secretsEqual(client.Secret, req.ClientSecret) {
			token, err := auth.GenerateToken([]byte(s.cfg.SecretKey), client.ID,
				client.PublicKey, s.cfg.TokenValidityDuration)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": token,
				"token_type":   "Bearer",
				"expires_in":   int(s.cfg.TokenValidityDuration.Seconds()),
			})
			return
		}
	}
	s.writeError(w, r, common.ErrUnauthorized)
}

func secretsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	params, err := readParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// The gate covers every read of a DID-owned record, locator hits and
	// listing rows alike.
	token := bearerToken(r)
	params.Authorize = func(ctx context.Context, rec *models.Record) error {
		return s.gate.AuthorizeRead(ctx, rec, token)
	}

	res, err := s.query.Read(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if res.Page != nil {
		writePageHeaders(w, res.Page)
		writeJSON(w, http.StatusOK, res.Many)
		return
	}
	writeJSON(w, http.StatusOK, res.Single)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	env, err := normalizeBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.store.Write(r.Context(), env)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.DID != "" {
		writeJSON(w, http.StatusOK, map[string]string{"did": res.DID})
		return
	}
	writeJSON(w, http.StatusOK, res.Ref)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	loc, err := locatorFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	env, err := normalizeBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.store.Update(r.Context(), loc, env)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	loc, err := locatorFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ref, err := s.store.Delete(r.Context(), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func normalizeBody(r *http.Request) (*envelope.Envelope, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, common.ErrInvalidInput
	}
	return envelope.Normalize(body)
}

func locatorFromQuery(r *http.Request) (services.Locator, error) {
	loc := services.Locator{DRI: r.URL.Query().Get("dri")}
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return loc, common.ErrInvalidInput
		}
		loc.ID = id
	}
	if loc.DRI == "" && loc.ID == 0 {
		return loc, common.ErrInvalidInput
	}
	return loc, nil
}

// queryBody is the structured-containment read body.
type queryBody struct {
	Query struct {
		Data    map[string]any `json:"data"`
		Meta    map[string]any `json:"meta"`
		DataNot map[string]any `json:"data-not"`
		MetaNot map[string]any `json:"meta-not"`
	} `json:"query"`
}

func readParams(r *http.Request) (services.ReadParams, error) {
	q := r.URL.Query()
	params := services.ReadParams{
		DRI:    q.Get("dri"),
		Schema: q.Get("schema"),
		Format: q.Get("f"),
	}

	if raw := q.Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return params, common.ErrInvalidInput
		}
		params.ID = id
	}

	if raw := q.Get("page"); raw != "" {
		if strings.EqualFold(raw, "all") {
			params.All = true
		} else {
			page, err := strconv.Atoi(raw)
			if err != nil || page < 1 {
				return params, common.ErrInvalidInput
			}
			params.Page = page
		}
	}
	if raw := q.Get("items"); raw != "" {
		items, err := strconv.Atoi(raw)
		if err != nil || items < 1 {
			return params, common.ErrInvalidInput
		}
		params.PageSize = items
	}

	// A GET body, when present, carries the containment query.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return params, common.ErrInvalidInput
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		var qb queryBody
		if err := json.Unmarshal(body, &qb); err != nil {
			return params, common.ErrInvalidInput
		}
		params.Query = &records.ContainmentQuery{
			Data:    qb.Query.Data,
			Meta:    qb.Query.Meta,
			DataNot: qb.Query.DataNot,
			MetaNot: qb.Query.MetaNot,
		}
	}
	return params, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(common.AuthHeaderName)
	if header == "" {
		return ""
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return token
}

func writePageHeaders(w http.ResponseWriter, page *services.PageInfo) {
	w.Header().Set("current-page", strconv.Itoa(page.CurrentPage))
	w.Header().Set("total-pages", strconv.Itoa(page.TotalPages))
	w.Header().Set("total-count", strconv.Itoa(page.TotalCount))
	w.Header().Set("page-items", strconv.Itoa(page.PageItems))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto the wire taxonomy. Unauthorized
// uses the fixed "Not authorized" body; everything unexpected is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authorized"})
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, common.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.logger.Error(r.Context(), "request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
