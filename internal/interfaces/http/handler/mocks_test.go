package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apporder "github.com/pos/backend/internal/application/order"
	appreport "github.com/pos/backend/internal/application/report"
	appsync "github.com/pos/backend/internal/application/sync"
	"github.com/pos/backend/internal/domain/menu"
	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/domain/stock"
	"github.com/pos/backend/internal/interfaces/http/dto"
	"github.com/pos/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type MockOrderSubmitter struct {
	mock.Mock
}

func (m *MockOrderSubmitter) SubmitOrder(ctx context.Context, cmd apporder.SubmitOrderCommand) (*apporder.SubmitOrderResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.SubmitOrderResult), args.Error(1)
}

type MockOrderQueries struct {
	mock.Mock
}

func (m *MockOrderQueries) GetOrder(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

func (m *MockOrderQueries) ListOrders(ctx context.Context, filter apporder.OrderFilter) ([]apporder.OrderResponse, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apporder.OrderResponse), args.Error(1)
}

func (m *MockOrderQueries) CountPending(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockOrderMutations struct {
	mock.Mock
}

func (m *MockOrderMutations) MarkPlaced(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

func (m *MockOrderMutations) UpdateStatus(ctx context.Context, id uuid.UUID, rawStatus string) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, id, rawStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

func (m *MockOrderMutations) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// fakeSnapshots is a minimal OrderSnapshots that lets tests publish by hand.
type fakeSnapshots struct {
	mu        sync.Mutex
	current   appsync.Snapshot
	listeners map[int]appsync.Listener
	next      int
}

func newFakeSnapshots(s appsync.Snapshot) *fakeSnapshots {
	return &fakeSnapshots{current: s, listeners: map[int]appsync.Listener{}}
}

func (f *fakeSnapshots) Snapshot() appsync.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeSnapshots) Subscribe(l appsync.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.listeners[id] = l
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeSnapshots) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeSnapshots) publish(s appsync.Snapshot) {
	f.mu.Lock()
	f.current = s
	ls := make([]appsync.Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l(s)
	}
}

type MockMenuReader struct {
	mock.Mock
}

func (m *MockMenuReader) List(ctx context.Context, enabledOnly bool) ([]menu.Item, error) {
	args := m.Called(ctx, enabledOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]menu.Item), args.Error(1)
}

type MockStockViewer struct {
	mock.Mock
}

func (m *MockStockViewer) GetStockView(ctx context.Context, date time.Time) (stock.View, bool, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(stock.View), args.Bool(1), args.Error(2)
}

type MockReportReader struct {
	mock.Mock
	loc *time.Location
}

func (m *MockReportReader) BuildReport(ctx context.Context, q appreport.SalesReportQuery) (report.SalesReport, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(report.SalesReport), args.Error(1)
}

func (m *MockReportReader) DailySummaries(ctx context.Context, start, end time.Time) ([]appreport.DailySummaryResponse, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appreport.DailySummaryResponse), args.Error(1)
}

func (m *MockReportReader) Dashboard(ctx context.Context, date time.Time) (*appreport.DashboardFigures, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreport.DashboardFigures), args.Error(1)
}

func (m *MockReportReader) Location() *time.Location {
	return m.loc
}

type MockReportExporter struct {
	mock.Mock
}

func (m *MockReportExporter) Export(ctx context.Context, rep report.SalesReport, mode appreport.Mode, format appreport.Format, archive bool) (*appreport.ExportFile, error) {
	args := m.Called(ctx, rep, mode, format, archive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreport.ExportFile), args.Error(1)
}

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decode unmarshals the envelope and re-decodes its data field into out.
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return raw.Response
}
