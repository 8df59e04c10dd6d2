package events

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-webinar/coursestats/internal/middleware"
	"github.com/aura-webinar/coursestats/internal/models"
)

type fakeRecorder struct {
	views   []*models.ResourceView
	watches []*models.VideoWatch
	course  uuid.UUID
	err     error
}

func (f *fakeRecorder) InsertResourceView(_ context.Context, courseID uuid.UUID, ev *models.ResourceView) error {
	f.course = courseID
	f.views = append(f.views, ev)
	return f.err
}

func (f *fakeRecorder) InsertVideoWatch(_ context.Context, courseID uuid.UUID, ev *models.VideoWatch) error {
	f.course = courseID
	f.watches = append(f.watches, ev)
	return f.err
}

var testUserID = uuid.MustParse("0b8f2d55-4a1e-4f4e-8d2c-2f6a7c9e1b30")

func newTestRouter(rec Recorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(rec, nil)
	r := gin.New()
	authed := r.Group("/courses/:id/events", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, testUserID)
		c.Set(middleware.ContextUsername, "jdoe")
		c.Set(middleware.ContextUserRole, string(models.RoleStudent))
		c.Next()
	})
	authed.POST("/resource-views", h.RecordResourceView)
	authed.POST("/video-watches", h.RecordVideoWatch)
	r.POST("/anon/:id", h.RecordResourceView)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRecordResourceView(t *testing.T) {
	rec := &fakeRecorder{}
	r := newTestRouter(rec)
	course := uuid.New()

	w := post(r, "/courses/"+course.String()+"/events/resource-views",
		`{"resource_id":"r1","session_id":"s1","duration":12.5,"timestamp":"2024-03-01T10:00:00Z"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(rec.views) != 1 || rec.course != course {
		t.Fatalf("event not recorded for course")
	}
	ev := rec.views[0]
	if ev.User == nil || ev.User.ID != testUserID || ev.User.Username != "jdoe" {
		t.Fatalf("expected the authenticated user on the event, got %+v", ev.User)
	}
	if ev.Duration == nil || *ev.Duration != 12.5 || ev.Timestamp.IsZero() {
		t.Fatalf("unexpected event payload: %+v", ev.EventHeader)
	}
}

func TestRecordVideoWatch(t *testing.T) {
	rec := &fakeRecorder{}
	r := newTestRouter(rec)
	path := "/courses/" + uuid.NewString() + "/events/video-watches"

	w := post(r, path, `{"resource_id":"v1","session_id":"s1","duration":5,"max_duration":300,"video_end_time":42}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	ev := rec.watches[0]
	if ev.WatchType != models.WatchTypeWatch {
		t.Fatalf("expected default watch type, got %q", ev.WatchType)
	}
	if ev.MaxDuration == nil || *ev.MaxDuration != 300 || ev.VideoEndTime == nil || *ev.VideoEndTime != 42 {
		t.Fatalf("video fields not carried: %+v", ev)
	}
}

func TestRecordRejects(t *testing.T) {
	r := newTestRouter(&fakeRecorder{})
	course := uuid.NewString()

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"bad course id", "/courses/nope/events/resource-views", `{"resource_id":"r1","session_id":"s1"}`, http.StatusBadRequest},
		{"missing session", "/courses/" + course + "/events/resource-views", `{"resource_id":"r1"}`, http.StatusBadRequest},
		{"negative duration", "/courses/" + course + "/events/resource-views", `{"resource_id":"r1","session_id":"s1","duration":-1}`, http.StatusBadRequest},
		{"bad watch type", "/courses/" + course + "/events/video-watches", `{"resource_id":"v1","session_id":"s1","watch_type":"rewind"}`, http.StatusBadRequest},
		{"no user", "/anon/" + course, `{"resource_id":"r1","session_id":"s1"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := post(r, tt.path, tt.body); w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRecordStoreFailure(t *testing.T) {
	r := newTestRouter(&fakeRecorder{err: errors.New("db down")})
	w := post(r, "/courses/"+uuid.NewString()+"/events/resource-views", `{"resource_id":"r1","session_id":"s1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
