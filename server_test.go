package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testMapJSON = `{
	"nodes": {
		"1": {"x": 0, "y": 0},
		"2": {"x": 100, "y": 0, "pop": 50},
		"3": {"x": 100, "y": 100, "jobs": 50}
	},
	"edges": [
		{"u": 1, "v": 2, "length": 100, "points": [[0, 0], [100, 0]]},
		{"u": 2, "v": 3, "length": 100, "points": [[100, 0], [100, 100]]}
	]
}`

func newTestServer(t *testing.T) *httptest.Server {
	dir := t.TempDir()
	mapFile := filepath.Join(dir, "map.json")
	assert.NoError(t, os.WriteFile(mapFile, []byte(testMapJSON), 0o644))
	mapPath, err := NewPath(mapFile)
	assert.NoError(t, err)
	server := NewGameServer("", mapPath, filepath.Join(dir, "saves.db"))
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		ts.Close()
		server.Close()
	})
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, out any) *http.Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	assert.NoError(t, err)
	res, err := ts.Client().Do(req)
	assert.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		assert.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}

func TestServerDraftCommitFlow(t *testing.T) {
	ts := newTestServer(t)

	// 指针落点解析：世界坐标(100,-100)对应数据集节点3
	var nearest struct {
		NodeID int64 `json:"nodeId"`
		Found  bool  `json:"found"`
	}
	res := doJSON(t, ts, http.MethodGet, "/api/v1/nearest?x=100&z=-100", nil, &nearest)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, nearest.Found)
	assert.Equal(t, int64(3), nearest.NodeID)

	var stats struct {
		Length    float64 `json:"length"`
		Cost      float64 `json:"cost"`
		Ridership int64   `json:"ridership"`
	}
	res = doJSON(t, ts, http.MethodPost, "/api/v1/draft", map[string]any{"waypoints": []int64{1, 3}}, &stats)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 200.0, stats.Length)
	assert.Equal(t, int64(30), stats.Ridership)

	var route struct {
		ID    string  `json:"id"`
		Color string  `json:"color"`
		Nodes []int64 `json:"nodes"`
	}
	res = doJSON(t, ts, http.MethodPost, "/api/v1/draft/commit", map[string]any{"color": "#ff0000"}, &route)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "#ff0000", route.Color)
	assert.Equal(t, []int64{1, 3}, route.Nodes)

	var status struct {
		Day        int     `json:"day"`
		Budget     float64 `json:"budget"`
		Approval   int     `json:"approval"`
		RouteCount int     `json:"routeCount"`
	}
	res = doJSON(t, ts, http.MethodGet, "/api/v1/status", nil, &status)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, status.RouteCount)
	assert.Equal(t, 100, status.Approval)

	var coverage struct {
		Covered  bool    `json:"covered"`
		Distance float64 `json:"distance"`
	}
	res = doJSON(t, ts, http.MethodGet, "/api/v1/coverage/distance?x=100&z=0", nil, &coverage)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, coverage.Covered)
	assert.Equal(t, 0.0, coverage.Distance)
}

func TestServerSaveLoadRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	res := doJSON(t, ts, http.MethodPost, "/api/v1/draft", map[string]any{"waypoints": []int64{1, 3}}, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res = doJSON(t, ts, http.MethodPost, "/api/v1/draft/commit", map[string]any{"color": "#00ff00"}, nil)
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	res = doJSON(t, ts, http.MethodPut, "/api/v1/saves/slot1", nil, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	// 推进一天后载入存档，天数回到存档时刻
	var report struct {
		Day int `json:"day"`
	}
	res = doJSON(t, ts, http.MethodPost, "/api/v1/day/advance", nil, &report)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 2, report.Day)

	var status struct {
		Day        int `json:"day"`
		RouteCount int `json:"routeCount"`
	}
	res = doJSON(t, ts, http.MethodPost, "/api/v1/saves/slot1/load", nil, &status)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, status.Day)
	assert.Equal(t, 1, status.RouteCount)

	var slots []struct {
		Slot string `json:"slot"`
	}
	res = doJSON(t, ts, http.MethodGet, "/api/v1/saves", nil, &slots)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, slots, 1)
	assert.Equal(t, "slot1", slots[0].Slot)
}

func TestServerErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	// 不存在的线路
	res := doJSON(t, ts, http.MethodDelete, "/api/v1/routes/no-such-id", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	// 不存在的存档槽
	res = doJSON(t, ts, http.MethodPost, "/api/v1/saves/nope/load", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	// 未知途经点
	res = doJSON(t, ts, http.MethodPost, "/api/v1/draft", map[string]any{"waypoints": []int64{1, 42}}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// 草稿不足2个途经点时提交被拒
	res = doJSON(t, ts, http.MethodPost, "/api/v1/draft", map[string]any{"waypoints": []int64{1}}, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res = doJSON(t, ts, http.MethodPost, "/api/v1/draft/commit", map[string]any{"color": "#ffffff"}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// 坐标参数非法
	res = doJSON(t, ts, http.MethodGet, "/api/v1/nearest?x=abc&z=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
