package http

import (
	"net/http"

	"savings/internal/log"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	col, err := s.goals.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(newListResponse(col)).Write(w)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.goals.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(newGoalResponse(g)).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := req.toNewGoal()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	g, err := s.goals.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/goals/"+g.ID).
		Body(newGoalResponse(g)).
		Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req updateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	edits, err := req.toEdits()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	g, err := s.goals.Update(r.Context(), r.PathValue("id"), edits...)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(newGoalResponse(g)).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.goals.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleAddFunds(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpContribute, err)
		return
	}

	res, err := s.goals.AddFunds(r.Context(), r.PathValue("id"), req.Amount.Decimal)
	if err != nil {
		writeError(w, r, log.OpContribute, err)
		return
	}
	NewJSONResponse().Body(newContributionResponse(res)).Write(w)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.goals.EndSession(r.Context()); err != nil {
		writeError(w, r, log.OpEndSession, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.goals.Ready(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		EngineError(err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
