package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lshigami/examflow/internal/recording"
	"github.com/lshigami/examflow/internal/service"
	"github.com/lshigami/examflow/internal/session"
)

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"missing user", service.ErrUserRequired, http.StatusUnauthorized},
		{"unknown session", service.ErrSessionNotFound, http.StatusNotFound},
		{"wrapped unknown test", fmt.Errorf("load: %w", service.ErrTestNotFound), http.StatusNotFound},
		{"second active session", service.ErrActiveSessionExists, http.StatusConflict},
		{"illegal transition", session.ErrInvalidTransition, http.StatusConflict},
		{"device busy", recording.ErrDeviceBusy, http.StatusConflict},
		{"invalid test", service.ErrInvalidTest, http.StatusBadRequest},
		{"no audio client", recording.ErrDeviceUnavailable, http.StatusPreconditionFailed},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusFor(tc.err); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireUser(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, UserID(ctx))
	})

	testCases := []struct {
		name       string
		url        string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "header", url: "/me", header: "user-1", wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "query param", url: "/me?user_id=user-2", wantStatus: http.StatusOK, wantBody: "user-2"},
		{name: "blank header", url: "/me", header: "   ", wantStatus: http.StatusUnauthorized},
		{name: "missing", url: "/me", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.header != "" {
				req.Header.Set(UserIDHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, w.Code)
			}
			if tc.wantBody != "" && w.Body.String() != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, w.Body.String())
			}
		})
	}
}
