package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
)

type divisionInvalidatorMock struct {
	err  error
	last string
}

func (m *divisionInvalidatorMock) InvalidateDivision(ctx context.Context, divisionID string) error {
	m.last = divisionID
	return m.err
}

func TestAdminHandlerInvalidateDivision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &divisionInvalidatorMock{}
	h := NewAdminHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/engine/cache/invalidate?divisionId=div-1", nil)
	h.InvalidateDivision(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "div-1", mockSvc.last)
}

func TestAdminHandlerInvalidateDivisionRequiresDivision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(&divisionInvalidatorMock{})

	c, w := newGinContext(http.MethodPost, "/engine/cache/invalidate", nil)
	h.InvalidateDivision(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandlerInvalidateDivisionServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &divisionInvalidatorMock{err: appErrors.Clone(appErrors.ErrInternal, "failed to invalidate division cache")}
	h := NewAdminHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/engine/cache/invalidate?divisionId=div-1", nil)
	h.InvalidateDivision(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
