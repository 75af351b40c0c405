// Package api exposes the dispatcher over HTTP with JSON bodies.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/golang/glog"

	"elevatordispatch/controller"
	"elevatordispatch/types"
)

// Defaults fill in the floor range of an elevator created without one.
type Defaults struct {
	MinFloor int
	MaxFloor int
}

type Server struct {
	dispatcher *controller.Dispatcher
	defaults   Defaults
	mux        *http.ServeMux
}

func NewServer(d *controller.Dispatcher, defaults Defaults) *Server {
	s := &Server{dispatcher: d, defaults: defaults, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /elevator/{$}", s.createElevator)
	s.mux.HandleFunc("GET /elevator/{id}", s.getElevator)
	s.mux.HandleFunc("POST /elevator/{id}", s.moveElevator)
	s.mux.HandleFunc("GET /floors/{id}", s.getDemandedFloors)
	s.mux.HandleFunc("POST /demand/{$}", s.createDemand)
	s.mux.HandleFunc("GET /demand/{id}", s.getDemand)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type createElevatorRequest struct {
	MinFloor     *int `json:"min_floor"`
	MaxFloor     *int `json:"max_floor"`
	CurrentFloor *int `json:"current_floor"`
}

type createDemandRequest struct {
	ElevatorID  string `json:"elevator_id"`
	Source      string `json:"source"`
	TargetFloor *int   `json:"target_floor"`
}

type demandedFloorsResponse struct {
	ElevatorID string `json:"elevator_id"`
	Floors     []int  `json:"floors"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) createElevator(w http.ResponseWriter, r *http.Request) {
	var req createElevatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "Invalid request body"})
		return
	}

	minFloor, maxFloor := s.defaults.MinFloor, s.defaults.MaxFloor
	if req.MinFloor != nil {
		minFloor = *req.MinFloor
	}
	if req.MaxFloor != nil {
		maxFloor = *req.MaxFloor
	}
	var opts []controller.ElevatorOption
	if req.CurrentFloor != nil {
		opts = append(opts, controller.WithStartFloor(*req.CurrentFloor))
	}

	e, err := s.dispatcher.CreateElevator(minFloor, maxFloor, opts...)
	if err != nil {
		writeError(w, err, "Elevator not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) getElevator(w http.ResponseWriter, r *http.Request) {
	e, err := s.dispatcher.GetElevator(r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Elevator not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) moveElevator(w http.ResponseWriter, r *http.Request) {
	e, err := s.dispatcher.AdvanceElevator(r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Elevator not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) getDemandedFloors(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	demanded, err := s.dispatcher.ListDemandedFloors(id)
	if err != nil {
		writeError(w, err, "Elevator not found")
		return
	}
	writeJSON(w, http.StatusOK, demandedFloorsResponse{ElevatorID: id, Floors: demanded})
}

func (s *Server) createDemand(w http.ResponseWriter, r *http.Request) {
	var req createDemandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "Invalid request body"})
		return
	}
	if req.TargetFloor == nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "target_floor is required"})
		return
	}
	source, err := types.ParseSource(req.Source)
	if err != nil {
		writeError(w, err, "")
		return
	}

	demand, err := s.dispatcher.CreateDemand(req.ElevatorID, source, *req.TargetFloor)
	if err != nil {
		writeError(w, err, "Elevator not found")
		return
	}
	writeJSON(w, http.StatusOK, demand)
}

func (s *Server) getDemand(w http.ResponseWriter, r *http.Request) {
	demand, err := s.dispatcher.GetDemand(r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Demand not found")
		return
	}
	writeJSON(w, http.StatusOK, demand)
}

// writeError maps the error taxonomy of the core onto status codes.
func writeError(w http.ResponseWriter, err error, notFoundDetail string) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: notFoundDetail})
	case errors.Is(err, types.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
	case errors.Is(err, types.ErrInvalidOperation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "No floors demanded"})
	default:
		glog.Errorf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		glog.Errorf("Error writing response: %v", err)
	}
}
