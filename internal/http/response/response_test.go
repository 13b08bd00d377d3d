package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperr "github.com/yungbote/companion-backend/internal/pkg/errors"
)

func TestRespondAppErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[error]int{
		fmt.Errorf("x: %w", apperr.ErrInvalidArgument): http.StatusBadRequest,
		apperr.ErrUnauthorized:                         http.StatusUnauthorized,
		fmt.Errorf("x: %w", apperr.ErrNotFound):        http.StatusNotFound,
		apperr.ErrConflict:                             http.StatusConflict,
		apperr.ErrUnavailable:                          http.StatusServiceUnavailable,
		errors.New("db exploded"):                      http.StatusInternalServerError,
	}
	for err, status := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		RespondAppError(c, err)
		assert.Equal(t, status, rec.Code, err.Error())
		if status == http.StatusInternalServerError {
			assert.NotContains(t, rec.Body.String(), "db exploded")
		}
	}
}
