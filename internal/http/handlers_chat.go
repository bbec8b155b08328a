package http

import (
	"net/http"

	"expensechat/internal/aggregate"
	"expensechat/internal/core"
	"expensechat/internal/log"
)

type chatRequest struct {
	Owner string `json:"owner"`
	Query string `json:"query"`
}

type chatResponse struct {
	Response string `json:"response"`
	Intent   string `json:"intent"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Owner = sanitizeInput(req.Owner)
	req.Query = sanitizeInput(req.Query)
	if req.Owner == "" {
		writeError(w, http.StatusUnprocessableEntity, "owner is required")
		return
	}

	ans, err := s.deps.Chat.Answer(r.Context(), req.Owner, req.Query)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentChat).ErrorContext(r.Context(), "Chat answer failed",
			log.FieldOwner, req.Owner,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not answer the question")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: ans.Text, Intent: ans.Intent.String()})
}

type categorizeRequest struct {
	Text string `json:"text"`
}

type categorizeResponse struct {
	Category core.Category `json:"category"`
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, categorizeResponse{Category: s.deps.Categorizer.Categorize(sanitizeInput(req.Text))})
}

type summaryGroup struct {
	Serial string `json:"serial"`
	Range  string `json:"range"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Total  string `json:"total"`
	Count  int    `json:"count"`
}

type summaryResponse struct {
	Owner  string         `json:"owner"`
	Filter string         `json:"filter"`
	Groups []summaryGroup `json:"groups"`
	Total  string         `json:"total"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner := sanitizeInput(r.URL.Query().Get("owner"))
	if owner == "" {
		writeError(w, http.StatusUnprocessableEntity, "owner is required")
		return
	}
	filter := sanitizeInput(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = aggregate.Day.String()
	}
	g, err := aggregate.ParseGranularity(filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sum, err := s.deps.Summaries.Summary(r.Context(), owner, g)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentSummary).ErrorContext(r.Context(), "Summary failed",
			log.FieldOwner, owner,
			log.FieldFilter, g.String(),
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not build the summary")
		return
	}

	resp := summaryResponse{
		Owner:  owner,
		Filter: g.String(),
		Groups: make([]summaryGroup, len(sum.Groups)),
		Total:  sum.Total.String(),
	}
	for i, grp := range sum.Groups {
		resp.Groups[i] = summaryGroup{
			Serial: grp.Serial,
			Range:  grp.Range(),
			Start:  grp.Start.String(),
			End:    grp.End.String(),
			Total:  grp.Total.String(),
			Count:  len(grp.Records),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
