package gateway

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }

func tokenFromRequest(headers map[string]string, query string) string {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/ws"+query, nil)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return ExtractToken(c)
}

func TestExtractTokenPriority(t *testing.T) {
	gin.SetMode(gin.TestMode)

	if got := tokenFromRequest(map[string]string{"X-Auth-Token": "tok-a"}, ""); got != "tok-a" {
		t.Errorf("header token = %q", got)
	}
	if got := tokenFromRequest(map[string]string{"Authorization": "Bearer tok-b"}, ""); got != "tok-b" {
		t.Errorf("bearer token = %q", got)
	}
	if got := tokenFromRequest(nil, "?token=tok-c"); got != "tok-c" {
		t.Errorf("query token = %q", got)
	}

	// dedicated header wins over the other sources
	got := tokenFromRequest(map[string]string{
		"X-Auth-Token":  "tok-a",
		"Authorization": "Bearer tok-b",
	}, "?token=tok-c")
	if got != "tok-a" {
		t.Errorf("priority pick = %q, want tok-a", got)
	}

	// bearer beats query
	if got := tokenFromRequest(map[string]string{"Authorization": "Bearer tok-b"}, "?token=tok-c"); got != "tok-b" {
		t.Errorf("priority pick = %q, want tok-b", got)
	}

	// non-bearer authorization is ignored
	if got := tokenFromRequest(map[string]string{"Authorization": "Basic abc"}, ""); got != "" {
		t.Errorf("basic auth treated as token: %q", got)
	}
}

func TestHandleBroadcastDelivers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mgr := NewConnManager("gw-test")
	bcast := NewBroadcaster(mgr, NewFanout(0, 0), nil)
	s := NewServer("gw-test", nil, mgr, bcast, nil)

	c := newTestConn("c1", "u1", "org1", []string{"t1"}, []string{"coach"})
	mgr.Connect(c)
	drainEvents(t, c)

	r := gin.New()
	r.POST("/api/broadcast", s.HandleBroadcast)

	body := `{"target":"team","id":"t1","event":"calendar:event:created","data":{"eventId":"e1"}}`
	req := httptest.NewRequest("POST", "/api/broadcast", stringsReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	frames := drainEvents(t, c)
	if len(frames) != 1 || frames[0].Event != EvtCalendarCreated {
		t.Errorf("frames = %v", eventNames(frames))
	}

	// unknown target is a client error
	req = httptest.NewRequest("POST", "/api/broadcast", stringsReader(`{"target":"galaxy","id":"x","event":"e"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 400 {
		t.Errorf("unknown target status = %d", w.Code)
	}
}
