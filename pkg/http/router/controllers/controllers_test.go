package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/julienschmidt/httprouter"
	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/engine/courier"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	helper "github.com/lintang-b-s/streetmap/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/streetmap/pkg/http/usecases"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRoutingService struct {
	route       usecases.Route
	err         error
	turnPenalty float64
	limit       int
}

func (f *fakeRoutingService) ShortestPath(origLat, origLon, dstLat, dstLon, turnPenalty float64) (usecases.Route, error) {
	f.turnPenalty = turnPenalty
	return f.route, f.err
}

func (f *fakeRoutingService) ClosestIntersection(lat, lon float64) (usecases.Intersection, error) {
	if f.err != nil {
		return usecases.Intersection{}, f.err
	}
	return usecases.Intersection{ID: 7, Name: "node/7", Position: geo.NewCoordinate(lat, lon)}, nil
}

func (f *fakeRoutingService) SearchStreets(prefix string, limit int) []usecases.Street {
	f.limit = limit
	return []usecases.Street{{ID: 3, Name: "Jalan " + prefix, Length: 120, NumIntersections: 2}}
}

type fakeCourierService struct {
	req   usecases.CourierRequest
	route usecases.CourierRoute
	err   error
	costs []float64
}

func (f *fakeCourierService) PlanRoute(ctx context.Context, req usecases.CourierRequest,
	onImprovement func(courier.Improvement)) (usecases.CourierRoute, error) {
	f.req = req
	if onImprovement != nil {
		for i, c := range f.costs {
			onImprovement(courier.Improvement{Chain: i, Cost: c, Elapsed: time.Duration(i) * time.Millisecond})
		}
	}
	return f.route, f.err
}

func newTestRouter(rs RoutingService, cs CourierService) (*httprouter.Router, *Hub) {
	router := httprouter.New()
	hub := NewHub(cs, zap.NewNop())
	New(rs, cs, hub, zap.NewNop()).Routes(helper.NewRouteGroup(router, "/api"))
	return router, hub
}

func serve(router http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestShortestPathHandler(t *testing.T) {
	testCases := []struct {
		name        string
		query       string
		err         error
		wantStatus  int
		turnPenalty float64
	}{
		{
			name:        "ok",
			query:       "origin_lat=-7.78&origin_lon=110.36&destination_lat=-7.79&destination_lon=110.37&turn_penalty=12",
			wantStatus:  http.StatusOK,
			turnPenalty: 12,
		},
		{
			name:       "equator and meridian are valid",
			query:      "origin_lat=0&origin_lon=0&destination_lat=0&destination_lon=0.01",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing destination",
			query:      "origin_lat=-7.78&origin_lon=110.36&destination_lat=-7.79",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "latitude out of range",
			query:      "origin_lat=-97.78&origin_lon=110.36&destination_lat=-7.79&destination_lon=110.37",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative turn penalty",
			query:      "origin_lat=-7.78&origin_lon=110.36&destination_lat=-7.79&destination_lon=110.37&turn_penalty=-1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no path",
			query:      "origin_lat=-7.78&origin_lon=110.36&destination_lat=-7.79&destination_lon=110.37",
			err:        util.WrapErrorf(usecases.ERRPATHNOTFOUND, util.ErrNotFound, "no path"),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unexpected error",
			query:      "origin_lat=-7.78&origin_lon=110.36&destination_lat=-7.79&destination_lon=110.37",
			err:        io.ErrUnexpectedEOF,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rs := &fakeRoutingService{
				err: tc.err,
				route: usecases.Route{
					TravelTime: 42,
					Distance:   300,
					Polyline:   "_p~iF~ps|U",
					Segments:   []da.StreetSegmentIdx{1, 2},
				},
			}
			router, _ := newTestRouter(rs, &fakeCourierService{})

			rec := serve(router, http.MethodGet, "/api/computeRoutes?"+tc.query, nil)
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tc.wantStatus != http.StatusOK {
				var resp struct {
					Error errorBody `json:"error"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, http.StatusText(tc.wantStatus), resp.Error.Code)
				return
			}

			var resp struct {
				Data shortestPathResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 42.0, resp.Data.Eta)
			assert.Equal(t, 300.0, resp.Data.Dist)
			assert.Equal(t, []da.StreetSegmentIdx{1, 2}, resp.Data.Segments)
			assert.Equal(t, tc.turnPenalty, rs.turnPenalty)
		})
	}
}

func TestClosestIntersectionHandler(t *testing.T) {
	router, _ := newTestRouter(&fakeRoutingService{}, &fakeCourierService{})

	rec := serve(router, http.MethodGet, "/api/intersections/closest?lat=-7.5&lon=110.25", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data intersectionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, da.IntersectionIdx(7), resp.Data.ID)
	assert.Equal(t, -7.5, resp.Data.Lat)

	rec = serve(router, http.MethodGet, "/api/intersections/closest?lat=abc&lon=110.25", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchStreetsHandler(t *testing.T) {
	testCases := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{name: "default limit", query: "prefix=mal", wantStatus: http.StatusOK, wantLimit: defaultStreetSearchLimit},
		{name: "explicit limit", query: "prefix=mal&limit=5", wantStatus: http.StatusOK, wantLimit: 5},
		{name: "limit too large", query: "prefix=mal&limit=1000", wantStatus: http.StatusBadRequest},
		{name: "limit not a number", query: "prefix=mal&limit=many", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rs := &fakeRoutingService{}
			router, _ := newTestRouter(rs, &fakeCourierService{})

			rec := serve(router, http.MethodGet, "/api/streets/search?"+tc.query, nil)
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, tc.wantLimit, rs.limit)
				assert.Contains(t, rec.Body.String(), "Jalan mal")
			}
		})
	}
}

func TestCourierRouteHandler(t *testing.T) {
	okRoute := usecases.CourierRoute{
		Depot:      4,
		TravelTime: 70,
		Legs: []usecases.CourierLeg{
			{StartIntersection: 4, EndIntersection: 5, Segments: []da.StreetSegmentIdx{9}, TravelTime: 70},
		},
		Stats: courier.Stats{Chains: 1, Iterations: 10},
	}

	testCases := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{
			name:       "ok",
			body:       `{"turn_penalty":5,"deliveries":[{"pick_up":1,"drop_off":2}],"depots":[4],"time_budget_ms":1500}`,
			wantStatus: http.StatusOK,
		},
		{name: "malformed json", body: `{"depots":[4]`, wantStatus: http.StatusBadRequest},
		{name: "no depots", body: `{"deliveries":[{"pick_up":1,"drop_off":2}],"depots":[]}`, wantStatus: http.StatusBadRequest},
		{name: "negative intersection", body: `{"deliveries":[{"pick_up":-1,"drop_off":2}],"depots":[4]}`, wantStatus: http.StatusBadRequest},
		{
			name:       "infeasible",
			body:       `{"deliveries":[{"pick_up":1,"drop_off":2}],"depots":[4]}`,
			err:        util.WrapErrorf(usecases.ERRINFEASIBLECOURIER, util.ErrUnprocessable, "infeasible"),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cs := &fakeCourierService{route: okRoute, err: tc.err}
			router, _ := newTestRouter(&fakeRoutingService{}, cs)

			rec := serve(router, http.MethodPost, "/api/courierRoute", strings.NewReader(tc.body))
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			if tc.wantStatus != http.StatusOK {
				return
			}

			assert.Equal(t, 1500*time.Millisecond, cs.req.TimeBudget)
			assert.Equal(t, 5.0, cs.req.TurnPenalty)
			assert.Equal(t, []courier.DeliveryInfo{{PickUp: 1, DropOff: 2}}, cs.req.Deliveries)
			assert.Equal(t, []da.IntersectionIdx{4}, cs.req.Depots)

			var resp struct {
				Data courierRouteResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, da.IntersectionIdx(4), resp.Data.Depot)
			require.Len(t, resp.Data.Legs, 1)
			assert.Equal(t, []da.StreetSegmentIdx{9}, resp.Data.Legs[0].Segments)
			assert.Equal(t, 10, resp.Data.Stats.Iterations)
		})
	}
}

func dialCourierStream(t *testing.T, srv *httptest.Server) io.ReadWriter {
	t.Helper()
	url := "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/api/courierRoute/ws"
	conn, br, _, err := ws.Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var r io.Reader = conn
	if br != nil {
		r = br
	}
	return struct {
		io.Reader
		io.Writer
	}{r, conn}
}

func readEvent(t *testing.T, rw io.ReadWriter) courierEvent {
	t.Helper()
	msg, err := wsutil.ReadServerText(rw)
	require.NoError(t, err)
	var ev courierEvent
	require.NoError(t, json.NewDecoder(bytes.NewReader(msg)).Decode(&ev))
	return ev
}

func TestCourierRouteStream(t *testing.T) {
	cs := &fakeCourierService{
		route: usecases.CourierRoute{Depot: 4, TravelTime: 55, Legs: []usecases.CourierLeg{}},
		costs: []float64{80, 55},
	}
	router, hub := newTestRouter(&fakeRoutingService{}, cs)
	srv := httptest.NewServer(router)
	defer srv.Close()

	rw := dialCourierStream(t, srv)
	require.NoError(t, wsutil.WriteClientText(rw,
		[]byte(`{"turn_penalty":3,"deliveries":[{"pick_up":1,"drop_off":2}],"depots":[4]}`)))

	first := readEvent(t, rw)
	assert.Equal(t, eventImprovement, first.Type)
	assert.Equal(t, 80.0, first.Cost)

	second := readEvent(t, rw)
	assert.Equal(t, eventImprovement, second.Type)
	assert.Equal(t, 55.0, second.Cost)
	assert.Equal(t, 1, second.Chain)

	result := readEvent(t, rw)
	assert.Equal(t, eventResult, result.Type)
	require.NotNil(t, result.Route)
	assert.Equal(t, 55.0, result.Route.TravelTime)

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

// waitingCourierService plans until its context is cancelled.
type waitingCourierService struct {
	cancelled chan bool
}

func (f *waitingCourierService) PlanRoute(ctx context.Context, req usecases.CourierRequest,
	onImprovement func(courier.Improvement)) (usecases.CourierRoute, error) {
	select {
	case <-ctx.Done():
		f.cancelled <- true
	case <-time.After(5 * time.Second):
		f.cancelled <- false
	}
	return usecases.CourierRoute{}, ctx.Err()
}

func TestCourierRouteStreamCancelsOnDisconnect(t *testing.T) {
	cs := &waitingCourierService{cancelled: make(chan bool, 1)}
	router, hub := newTestRouter(&fakeRoutingService{}, cs)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/api/courierRoute/ws"
	conn, _, _, err := ws.Dial(context.Background(), url)
	require.NoError(t, err)
	require.NoError(t, wsutil.WriteClientText(conn,
		[]byte(`{"turn_penalty":3,"deliveries":[{"pick_up":1,"drop_off":2}],"depots":[4]}`)))
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case cancelled := <-cs.cancelled:
		assert.True(t, cancelled)
	case <-time.After(3 * time.Second):
		t.Fatal("courier plan kept running after the client left")
	}
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCourierRouteStreamValidation(t *testing.T) {
	router, _ := newTestRouter(&fakeRoutingService{}, &fakeCourierService{})
	srv := httptest.NewServer(router)
	defer srv.Close()

	rw := dialCourierStream(t, srv)
	require.NoError(t, wsutil.WriteClientText(rw, []byte(`{"deliveries":[],"depots":[]}`)))

	ev := readEvent(t, rw)
	assert.Equal(t, eventError, ev.Type)
	require.NotNil(t, ev.Error)
	assert.Equal(t, http.StatusText(http.StatusBadRequest), ev.Error.Code)
}

func TestStatusCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "bad param", err: util.WrapErrorf(nil, util.ErrBadParamInput, "x"), want: http.StatusBadRequest},
		{name: "not found", err: util.WrapErrorf(nil, util.ErrNotFound, "x"), want: http.StatusNotFound},
		{name: "conflict", err: util.WrapErrorf(nil, util.ErrConflict, "x"), want: http.StatusConflict},
		{name: "unprocessable", err: util.WrapErrorf(nil, util.ErrUnprocessable, "x"), want: http.StatusUnprocessableEntity},
		{name: "internal", err: util.WrapErrorf(nil, util.ErrInternalServerError, "x"), want: http.StatusInternalServerError},
		{name: "plain error", err: io.EOF, want: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusCode(tc.err))
		})
	}
}
