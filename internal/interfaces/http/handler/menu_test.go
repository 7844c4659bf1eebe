package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/menu"
	"github.com/pos/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func menuRouter(reader MenuReader) *gin.Engine {
	r := gin.New()
	r.GET("/menu-items", NewMenuHandler(reader).List)
	return r
}

func TestMenuHandler_List(t *testing.T) {
	items := []menu.Item{
		{ID: uuid.New(), Name: "Idli", Price: decimal.NewFromInt(30), Category: "Breakfast", DailyStockQuantity: 50, Enabled: true},
		{ID: uuid.New(), Name: "Vada", Price: decimal.NewFromInt(25), DailyStockQuantity: 40, Enabled: false},
	}

	t.Run("enabled only by default", func(t *testing.T) {
		reader := new(MockMenuReader)
		reader.On("List", mock.Anything, true).Return(items[:1], nil)

		w := do(menuRouter(reader), http.MethodGet, "/menu-items", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var got []MenuItemResponse
		resp := decode(t, w, &got)
		assert.Equal(t, int64(1), resp.Meta.Total)
		assert.Equal(t, "Idli", got[0].Name)
		assert.True(t, got[0].Price.Equal(decimal.NewFromInt(30)))
		reader.AssertExpectations(t)
	})

	t.Run("all includes disabled", func(t *testing.T) {
		reader := new(MockMenuReader)
		reader.On("List", mock.Anything, false).Return(items, nil)

		w := do(menuRouter(reader), http.MethodGet, "/menu-items?all=true", "")

		var got []MenuItemResponse
		decode(t, w, &got)
		assert.Len(t, got, 2)
		assert.False(t, got[1].Enabled)
		reader.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		reader := new(MockMenuReader)
		reader.On("List", mock.Anything, true).Return(nil, errors.New("connection reset"))

		w := do(menuRouter(reader), http.MethodGet, "/menu-items", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeDependency)
	})
}
