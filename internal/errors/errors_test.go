package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

func TestFromStatErrMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      *staterr.Error
		category ErrorCategory
		status   int
	}{
		{"invalid input", staterr.InvalidInput("observe", "successes exceed trials", "successes", 5, "trials", 3), CategoryInvalidInput, http.StatusBadRequest},
		{"missing group", staterr.MissingGroup("risk_metrics", "B"), CategoryMissingGroup, http.StatusConflict},
		{"invalid state", staterr.InvalidState("sample", "group not observed", "group", "C"), CategoryInvalidState, http.StatusConflict},
		{"degenerate", staterr.Degenerate("chi_squared", "zero margin"), CategoryDegenerate, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromStatErr(tt.err)
			assert.Equal(t, tt.category, appErr.Category)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
			assert.Equal(t, tt.err.Msg, appErr.Response().Error)
			assert.Equal(t, tt.err.Op, appErr.Fields["operation"])
			assert.True(t, errors.Is(appErr, tt.err), "cause is preserved")
		})
	}
}

func TestFromStatErrCarriesFields(t *testing.T) {
	appErr := FromStatErr(staterr.InvalidInput("observe", "successes exceed trials", "successes", 5, "trials", 3))
	assert.Equal(t, 5, appErr.Fields["successes"])
	assert.Equal(t, 3, appErr.Fields["trials"])

	missing := FromStatErr(staterr.MissingGroup("risk_metrics", "A", "B"))
	assert.Equal(t, []string{"A", "B"}, missing.Fields["missing"])
}

func TestConfigurationError(t *testing.T) {
	cause := errors.New("MAX_SAMPLES below DEFAULT_SAMPLES")
	appErr := NewConfigurationError("invalid configuration", cause)
	assert.Equal(t, CategoryConfiguration, appErr.Category)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
	assert.True(t, errors.Is(appErr, cause))
}

func TestToAppError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", staterr.Degenerate("proportion_test", "zero standard error"))
	assert.Equal(t, CategoryDegenerate, ToAppError(wrapped).Category)

	assert.Equal(t, CategoryTimeout, ToAppError(context.Canceled).Category)
	assert.Equal(t, CategoryTimeout, ToAppError(fmt.Errorf("run: %w", context.DeadlineExceeded)).Category)

	internal := ToAppError(errors.New("boom"))
	assert.Equal(t, CategoryInternal, internal.Category)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.Equal(t, defaultInternalMessage, internal.Response().Error)

	existing := NewNotFoundError("test", "abc")
	assert.Same(t, existing, ToAppError(existing))
	assert.Nil(t, ToAppError(nil))
}

func TestAppErrorMessage(t *testing.T) {
	assert.Equal(t, "[INVALID_ARGUMENT] bad body", NewValidationError("bad body", nil).Error())
	assert.Equal(t, "[RATE_LIMIT_EXCEEDED] Rate limit exceeded", NewRateLimitError("60s").Error())
	assert.Equal(t, "[FAILED_PRECONDITION] required group not observed",
		FromStatErr(staterr.MissingGroup("op", "A")).Error())
}

func TestErrorHandlerRendersResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(staterr.MissingGroup("risk_metrics", "B"))
	})
	router.GET("/abort", func(c *gin.Context) {
		Abort(c, staterr.InvalidInput("observe", "trials must be positive", "trials", 0))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.Equal(t, http.StatusConflict, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "missing_group", body.Category)
	assert.Equal(t, []any{"B"}, body.Details["missing"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/abort", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_input", body.Category)
	assert.Equal(t, float64(0), body.Details["trials"])
}

func TestRecoveryHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryHandler())
	router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}
