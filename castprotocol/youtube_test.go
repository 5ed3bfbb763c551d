package castprotocol

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

const loungeSessionBody = `[[0,["c","SID123","",8]],[1,["S","gsess456"]]]`

// loungeServer fakes the pairing and bind endpoints. Binds answer with
// a fixed session, numbered action posts get recorded.
type loungeServer struct {
	srv *httptest.Server

	tokenRequests []url.Values
	bindRequests  []*http.Request
	actionForms   []url.Values
	actionQueries []url.Values
	actionTokens  []string
}

func newLoungeServer(t *testing.T) *loungeServer {
	t.Helper()
	ls := &loungeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		ls.tokenRequests = append(ls.tokenRequests, r.PostForm)
		w.Write([]byte(`{"screens":[{"loungeToken":"tok-1"}]}`))
	})
	mux.HandleFunc("/bind", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse bind form: %v", err)
		}
		if r.PostFormValue("count") == "0" {
			ls.bindRequests = append(ls.bindRequests, r)
			w.Write([]byte(loungeSessionBody))
			return
		}
		ls.actionForms = append(ls.actionForms, r.PostForm)
		ls.actionQueries = append(ls.actionQueries, r.URL.Query())
		ls.actionTokens = append(ls.actionTokens, r.Header.Get(loungeIDHeader))
		w.Write([]byte(`{}`))
	})
	ls.srv = httptest.NewServer(mux)
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *loungeServer) session(screenID string) *loungeSession {
	s := newLoungeSession(screenID, ls.srv.Client())
	s.tokenURL = ls.srv.URL + "/token"
	s.bindURL = ls.srv.URL + "/bind"
	return s
}

func TestLoungeTokenFetch(t *testing.T) {
	assertions := require.New(t)

	ls := newLoungeServer(t)
	s := ls.session("screen-1")

	assertions.NoError(s.fetchLoungeToken())
	assertions.Equal("tok-1", s.loungeToken)
	assertions.Len(ls.tokenRequests, 1)
	assertions.Equal("screen-1", ls.tokenRequests[0].Get("screen_ids"))
}

func TestLoungeTokenFetchFailsWithoutScreens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"screens":[]}`))
	}))
	defer srv.Close()

	s := newLoungeSession("screen-1", srv.Client())
	s.tokenURL = srv.URL

	require.Error(t, s.fetchLoungeToken())
}

func TestLoungeBindExtractsSessionIDs(t *testing.T) {
	assertions := require.New(t)

	ls := newLoungeServer(t)
	s := ls.session("screen-1")

	assertions.NoError(s.start())
	assertions.Equal("SID123", s.sid)
	assertions.Equal("gsess456", s.gsessionID)
	assertions.True(s.inSession())

	bind := ls.bindRequests[0]
	query := bind.URL.Query()
	assertions.Equal("REMOTE_CONTROL", query.Get("device"))
	assertions.Equal("Castpilot", query.Get("name"))
	assertions.Equal("cast", query.Get("pairing_type"))
	assertions.Equal(loungeRemoteApp, query.Get("app"))
	assertions.NotEmpty(query.Get("id"))
}

func TestSetPlaylistStartsVideo(t *testing.T) {
	assertions := require.New(t)

	ls := newLoungeServer(t)
	s := ls.session("screen-1")

	assertions.NoError(s.setPlaylist("dQw4w9WgXcQ"))

	assertions.Len(ls.actionForms, 1)
	form := ls.actionForms[0]
	assertions.Equal("setPlaylist", form.Get("req1__sc"))
	assertions.Equal("dQw4w9WgXcQ", form.Get("req1_videoId"))
	assertions.Equal("0", form.Get("req1_currentTime"))
	assertions.Equal("-1", form.Get("req1_currentIndex"))

	query := ls.actionQueries[0]
	assertions.Equal("SID123", query.Get("SID"))
	assertions.Equal("gsess456", query.Get("gsessionid"))
	assertions.Equal("1", query.Get("RID"))

	assertions.Equal("tok-1", ls.actionTokens[0])
}

func TestQueueActionRebindsEstablishedSession(t *testing.T) {
	assertions := require.New(t)

	ls := newLoungeServer(t)
	s := ls.session("screen-1")

	assertions.NoError(s.setPlaylist("firstvideo0"))
	assertions.NoError(s.queueAction(loungeActionAdd, "secondvideo"))

	assertions.Len(ls.bindRequests, 2)
	assertions.Len(ls.actionForms, 2)
	form := ls.actionForms[1]
	assertions.Equal("addVideo", form.Get("req2__sc"))
	assertions.Equal("secondvideo", form.Get("req2_videoId"))
}

func TestLoungeGoneSessionForcesRebind(t *testing.T) {
	assertions := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := newLoungeSession("screen-1", srv.Client())
	s.bindURL = srv.URL
	s.sid = "SID123"
	s.gsessionID = "gsess456"
	s.loungeToken = "tok-1"

	assertions.Error(s.queueAction(loungeActionAdd, "somevideo00"))
	assertions.False(s.inSession())
}

func TestMdxStatusDeliversScreenID(t *testing.T) {
	assertions := require.New(t)

	c := newTestClient(newFakeConn())
	y := NewYouTubeController(c)

	c.handleMessage(castMessage(namespaceYouTubeMdx, "transport-5", `{"type":"mdxSessionStatus","data":{"screenId":"screen-77"}}`))

	select {
	case id := <-y.screenIDCh:
		assertions.Equal("screen-77", id)
	default:
		t.Fatal("no screen id delivered")
	}
}

func TestMdxIgnoresUnrelatedMessages(t *testing.T) {
	c := newTestClient(newFakeConn())
	y := NewYouTubeController(c)

	c.handleMessage(castMessage(namespaceYouTubeMdx, "transport-5", `{"type":"somethingElse","data":{"screenId":"screen-77"}}`))
	c.handleMessage(castMessage(namespaceYouTubeMdx, "transport-5", `{"type":"mdxSessionStatus","data":{}}`))

	select {
	case id := <-y.screenIDCh:
		t.Fatalf("unexpected screen id %q", id)
	default:
	}
}

func TestIsActiveTracksForegroundApp(t *testing.T) {
	assertions := require.New(t)

	c := newTestClient(newFakeConn())
	y := NewYouTubeController(c)

	assertions.False(y.IsActive())
	c.handleMessage(castMessage(namespaceRecv, defaultRecv, runningAppStatus))
	assertions.True(y.IsActive())
}
