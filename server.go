package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"git.fiblab.net/sim/transitgame/engine"
	"git.fiblab.net/sim/transitgame/store"
)

// 游戏服务：持有engine与存档库，对UI暴露JSON接口
type GameServer struct {
	engine *engine.Engine
	saves  *store.SaveStore
}

func NewGameServer(mongoURI string, mapPath *Path, savePath string) *GameServer {
	mapData := loadMapData(mongoURI, mapPath)
	e, err := engine.New(mapData)
	if err != nil {
		log.Panicf("failed to load map from %s: %v", mapPath, err)
	}
	saves, err := store.Open(savePath)
	if err != nil {
		log.Panicf("failed to open save store at %s: %v", savePath, err)
	}
	return &GameServer{engine: e, saves: saves}
}

func loadMapData(mongoURI string, mapPath *Path) *engine.MapData {
	if mapPath == nil {
		log.Panicf("map path is required")
	}
	var mapData engine.MapData
	if mapPath.File != "" {
		data, err := os.ReadFile(mapPath.File)
		if err != nil {
			log.Panicf("failed to read map file %s: %v", mapPath.File, err)
		}
		if err := json.Unmarshal(data, &mapData); err != nil {
			log.Panicf("failed to decode map file %s: %v", mapPath.File, err)
		}
	} else {
		// 整份地图存为单个mongo文档
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
		if err != nil {
			log.Panicf("failed to connect to mongo: %v", err)
		}
		defer client.Disconnect(context.Background())
		coll := client.Database(mapPath.GetDb()).Collection(mapPath.GetColl())
		if err := coll.FindOne(ctx, bson.M{}).Decode(&mapData); err != nil {
			log.Panicf("failed to download map from %s: %v", mapPath, err)
		}
	}
	return &mapData
}

func (s *GameServer) Close() {
	if err := s.saves.Close(); err != nil {
		log.Errorf("failed to close save store: %v", err)
	}
}

func (s *GameServer) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/nearest", s.handleNearest).Methods(http.MethodGet)
	api.HandleFunc("/draft", s.handleDraftRecompute).Methods(http.MethodPost)
	api.HandleFunc("/draft", s.handleDraftDiscard).Methods(http.MethodDelete)
	api.HandleFunc("/draft/commit", s.handleDraftCommit).Methods(http.MethodPost)
	api.HandleFunc("/routes", s.handleRouteList).Methods(http.MethodGet)
	api.HandleFunc("/routes/{id}", s.handleRouteDelete).Methods(http.MethodDelete)
	api.HandleFunc("/routes/{id}/edit", s.handleRouteEdit).Methods(http.MethodPost)
	api.HandleFunc("/coverage/distance", s.handleCoverageDistance).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/day/advance", s.handleAdvanceDay).Methods(http.MethodPost)
	api.HandleFunc("/saves", s.handleSaveList).Methods(http.MethodGet)
	api.HandleFunc("/saves/{slot}", s.handleSavePut).Methods(http.MethodPut)
	api.HandleFunc("/saves/{slot}/load", s.handleSaveLoad).Methods(http.MethodPost)
	return r
}

// 对UI输出的线路形态
type routeJSON struct {
	ID       string            `json:"id"`
	Color    string            `json:"color"`
	Nodes    []int64           `json:"nodes"`
	Stats    engine.RouteStats `json:"stats"`
	Polyline [][2]float64      `json:"polyline"`
}

func toRouteJSON(route *engine.Route) routeJSON {
	return routeJSON{
		ID:    route.ID,
		Color: route.Color,
		Nodes: route.Waypoints,
		Stats: route.Stats,
		Polyline: lo.Map(route.Polyline, func(p geometry.Point, _ int) [2]float64 {
			return [2]float64{p.X, p.Y}
		}),
	}
}

func (s *GameServer) handleNearest(w http.ResponseWriter, r *http.Request) {
	x, z, err := parseXZ(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, ok := s.engine.NearestNode(x, z)
	writeJSON(w, http.StatusOK, map[string]any{"nodeId": id, "found": ok})
}

type draftRequest struct {
	Waypoints []int64 `json:"waypoints"`
}

func (s *GameServer) handleDraftRecompute(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequest(err))
		return
	}
	stats, err := s.engine.RecomputeDraft(req.Waypoints)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *GameServer) handleDraftDiscard(w http.ResponseWriter, r *http.Request) {
	s.engine.DiscardDraft()
	w.WriteHeader(http.StatusNoContent)
}

type commitRequest struct {
	Color string `json:"color"`
}

func (s *GameServer) handleDraftCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequest(err))
		return
	}
	route, err := s.engine.CommitDraft(req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRouteJSON(route))
}

func (s *GameServer) handleRouteList(w http.ResponseWriter, r *http.Request) {
	routes := lo.Map(s.engine.Routes(), func(route *engine.Route, _ int) routeJSON {
		return toRouteJSON(route)
	})
	writeJSON(w, http.StatusOK, routes)
}

func (s *GameServer) handleRouteDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteRoute(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *GameServer) handleRouteEdit(w http.ResponseWriter, r *http.Request) {
	waypoints, err := s.engine.EditRoute(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"waypoints": waypoints})
}

func (s *GameServer) handleCoverageDistance(w http.ResponseWriter, r *http.Request) {
	x, z, err := parseXZ(r)
	if err != nil {
		writeError(w, err)
		return
	}
	distance := s.engine.DistanceToNearestService(x, z)
	// +Inf无法用JSON表示，以covered=false传达
	covered := !math.IsInf(distance, 1)
	resp := map[string]any{"covered": covered}
	if covered {
		resp["distance"] = distance
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *GameServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *GameServer) handleAdvanceDay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.AdvanceDay())
}

func (s *GameServer) handleSaveList(w http.ResponseWriter, r *http.Request) {
	slots, err := s.saves.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *GameServer) handleSavePut(w http.ResponseWriter, r *http.Request) {
	slot := mux.Vars(r)["slot"]
	if err := s.saves.Put(slot, s.engine.Snapshot()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *GameServer) handleSaveLoad(w http.ResponseWriter, r *http.Request) {
	slot := mux.Vars(r)["slot"]
	save, err := s.saves.Get(slot)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.Restore(save); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// helpers

type badRequestError struct {
	err error
}

func (e badRequestError) Error() string { return e.err.Error() }

func errBadRequest(err error) error { return badRequestError{err: err} }

func parseXZ(r *http.Request) (x, z float64, err error) {
	x, err = strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	if err != nil {
		return 0, 0, errBadRequest(errors.New("query parameter x is not a number"))
	}
	z, err = strconv.ParseFloat(r.URL.Query().Get("z"), 64)
	if err != nil {
		return 0, 0, errBadRequest(errors.New("query parameter z is not a number"))
	}
	return x, z, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var status int
	var bad badRequestError
	switch {
	case errors.Is(err, engine.ErrInsufficientFunds):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrRouteNotFound), errors.Is(err, store.ErrSlotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrDraftNotReady), errors.Is(err, engine.ErrUnknownWaypoint), errors.As(err, &bad):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		log.Errorf("internal error: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
