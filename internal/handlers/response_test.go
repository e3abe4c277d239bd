package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.SessionClosed("s", "completed"), http.StatusConflict},
		{apperr.Transition("created", "paid"), http.StatusConflict},
		{apperr.Incomplete("s"), http.StatusConflict},
		{fmt.Errorf("deliver: %w", apperr.ErrReportInProgress), http.StatusConflict},
		{apperr.Analysis("call", errors.New("timeout")), http.StatusBadGateway},
		{apperr.Payment("checkout", nil), http.StatusBadGateway},
		{apperr.Reporting("render", nil), http.StatusBadGateway},
		{apperr.Persistence("save", errors.New("disk")), http.StatusInternalServerError},
		{apperr.Configuration("missing key"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "REPORT_IN_PROGRESS", apperr.Code(fmt.Errorf("deliver: %w", apperr.ErrReportInProgress)))
	assert.Equal(t, "NOT_FOUND", apperr.Code(apperr.NotFound("x")))
	assert.Equal(t, "INTERNAL_ERROR", apperr.Code(errors.New("x")))
}
