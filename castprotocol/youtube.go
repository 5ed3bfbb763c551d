package castprotocol

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	pb "github.com/vishen/go-chromecast/cast/proto"

	"go2tv.app/castpilot/utils"
)

const (
	youtubeAppID        = "233637DE"
	namespaceYouTubeMdx = "urn:x-cast:com.google.youtube.mdx"

	youtubeBaseURL  = "https://www.youtube.com/"
	loungeTokenURL  = youtubeBaseURL + "api/lounge/pairing/get_lounge_token_batch"
	loungeBindURL   = youtubeBaseURL + "api/lounge/bc/bind"
	loungeIDHeader  = "X-YouTube-LoungeId-Token"
	loungeRemoteApp = "youtube-desktop"

	loungeActionSetPlaylist = "setPlaylist"
	loungeActionAdd         = "addVideo"
	loungeActionInsert      = "insertVideo"
	loungeActionRemove      = "removeVideo"
	loungeActionClear       = "clearPlaylist"

	screenIDTimeout = 10 * time.Second
)

var (
	loungeSIDRegexp      = regexp.MustCompile(`"c","(.*?)","`)
	loungeGSessionRegexp = regexp.MustCompile(`"S","(.*?)"]`)

	ErrNoScreenID = errors.New("youtube: no screen id from receiver")
)

// YouTubeController drives the YouTube receiver app through the lounge
// API. Transport control keeps going through the regular media channel,
// the lounge session only starts videos and manages the queue.
type YouTubeController struct {
	client *CastClient
	http   *http.Client

	mu       sync.Mutex
	screenID string
	session  *loungeSession

	screenIDCh chan string
}

// NewYouTubeController registers the mdx namespace handler on client and
// returns the controller.
func NewYouTubeController(client *CastClient) *YouTubeController {
	y := &YouTubeController{
		client:     client,
		http:       newRetryableHTTPClient(2),
		screenIDCh: make(chan string, 1),
	}
	client.RegisterHandler(namespaceYouTubeMdx, y.handleMessage)
	return y
}

func (y *YouTubeController) handleMessage(msg *pb.CastMessage) {
	var status struct {
		Type string `json:"type"`
		Data struct {
			ScreenID string `json:"screenId"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(msg.GetPayloadUtf8()), &status); err != nil {
		return
	}
	if status.Type != "mdxSessionStatus" || status.Data.ScreenID == "" {
		return
	}
	select {
	case y.screenIDCh <- status.Data.ScreenID:
	default:
	}
}

// IsActive reports whether the YouTube app currently runs on the device.
func (y *YouTubeController) IsActive() bool {
	return y.client.AppID() == youtubeAppID
}

// Launch brings the YouTube app to the foreground if it is not there.
func (y *YouTubeController) Launch() error {
	return y.client.LaunchApp(youtubeAppID)
}

// PlayVideo launches the app if needed and starts the given video,
// replacing the receiver queue.
func (y *YouTubeController) PlayVideo(videoID string) error {
	y.client.Log().Debug().Str("Method", "PlayVideo").Str("VideoID", videoID).Msg("starting video")

	y.mu.Lock()
	defer y.mu.Unlock()
	session, err := y.ensureSessionLocked()
	if err != nil {
		return err
	}
	if err := session.setPlaylist(videoID); err != nil {
		y.resetLocked()
		y.client.Log().Error().Str("Method", "PlayVideo").Err(err).Msg("failed")
		return err
	}
	return nil
}

// AddToQueue appends the given video to the receiver queue.
func (y *YouTubeController) AddToQueue(videoID string) error {
	return y.queueAction("AddToQueue", loungeActionAdd, videoID)
}

// PlayNext inserts the given video right after the current one.
func (y *YouTubeController) PlayNext(videoID string) error {
	return y.queueAction("PlayNext", loungeActionInsert, videoID)
}

// RemoveVideo removes the given video from the receiver queue.
func (y *YouTubeController) RemoveVideo(videoID string) error {
	return y.queueAction("RemoveVideo", loungeActionRemove, videoID)
}

// ClearQueue empties the receiver queue.
func (y *YouTubeController) ClearQueue() error {
	return y.queueAction("ClearQueue", loungeActionClear, "")
}

func (y *YouTubeController) queueAction(method, action, videoID string) error {
	y.client.Log().Debug().Str("Method", method).Str("VideoID", videoID).Msg("queue action")

	y.mu.Lock()
	defer y.mu.Unlock()
	session, err := y.ensureSessionLocked()
	if err != nil {
		return err
	}
	if err := session.queueAction(action, videoID); err != nil {
		y.resetLocked()
		y.client.Log().Error().Str("Method", method).Err(err).Msg("failed")
		return err
	}
	return nil
}

func (y *YouTubeController) ensureSessionLocked() (*loungeSession, error) {
	if y.session != nil && y.screenID != "" {
		return y.session, nil
	}

	screenID, err := y.requestScreenID()
	if err != nil {
		return nil, err
	}
	y.screenID = screenID
	y.session = newLoungeSession(screenID, y.http)
	return y.session, nil
}

func (y *YouTubeController) resetLocked() {
	y.screenID = ""
	y.session = nil
}

// requestScreenID launches the app and asks it for its lounge screen id
// over the mdx namespace.
func (y *YouTubeController) requestScreenID() (string, error) {
	if err := y.client.LaunchApp(youtubeAppID); err != nil {
		return "", err
	}
	tid, err := y.client.waitForTransport()
	if err != nil {
		return "", err
	}

	// Drop a stale id from an earlier request.
	select {
	case <-y.screenIDCh:
	default:
	}

	if err := y.client.send(&mdxStatusPayload{Type: "getMdxSessionStatus"}, tid, namespaceYouTubeMdx); err != nil {
		return "", fmt.Errorf("requestScreenID: %w", err)
	}

	timer := time.NewTimer(screenIDTimeout)
	defer timer.Stop()
	select {
	case id := <-y.screenIDCh:
		return id, nil
	case <-timer.C:
		return "", ErrNoScreenID
	}
}

// loungeSession is one bound remote control session against the lounge
// API. Queue actions ride the bind endpoint as numbered form posts.
type loungeSession struct {
	http     *http.Client
	screenID string
	tokenURL string
	bindURL  string

	loungeToken string
	sid         string
	gsessionID  string
	rid         int
	reqCount    int
}

func newLoungeSession(screenID string, httpClient *http.Client) *loungeSession {
	return &loungeSession{
		http:     httpClient,
		screenID: screenID,
		tokenURL: loungeTokenURL,
		bindURL:  loungeBindURL,
	}
}

func (s *loungeSession) inSession() bool {
	return s.gsessionID != "" && s.loungeToken != ""
}

func (s *loungeSession) start() error {
	if err := s.fetchLoungeToken(); err != nil {
		return err
	}
	return s.bind()
}

func (s *loungeSession) fetchLoungeToken() error {
	form := url.Values{"screen_ids": {s.screenID}}
	body, err := s.post(s.tokenURL, nil, form)
	if err != nil {
		return fmt.Errorf("fetchLoungeToken: %w", err)
	}

	var payload struct {
		Screens []struct {
			LoungeToken string `json:"loungeToken"`
		} `json:"screens"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("fetchLoungeToken: %w", err)
	}
	if len(payload.Screens) == 0 || payload.Screens[0].LoungeToken == "" {
		return fmt.Errorf("fetchLoungeToken: no lounge token for screen")
	}
	s.loungeToken = payload.Screens[0].LoungeToken
	return nil
}

func (s *loungeSession) bind() error {
	s.rid = 0
	s.reqCount++

	params := url.Values{
		"device":       {"REMOTE_CONTROL"},
		"id":           {randomLoungeID()},
		"name":         {"Castpilot"},
		"mdx-version":  {"3"},
		"pairing_type": {"cast"},
		"app":          {loungeRemoteApp},
	}
	form := url.Values{"count": {"0"}}

	body, err := s.post(s.bindURL, params, form)
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}

	sid := loungeSIDRegexp.FindSubmatch(body)
	gsession := loungeGSessionRegexp.FindSubmatch(body)
	if sid == nil || gsession == nil {
		return fmt.Errorf("bind: no session ids in response")
	}
	s.sid = string(sid[1])
	s.gsessionID = string(gsession[1])
	return nil
}

// setPlaylist replaces the receiver queue with one video and starts it.
// A fresh bind first, established sessions drift out of sync within
// seconds and rebinding resyncs them.
func (s *loungeSession) setPlaylist(videoID string) error {
	if err := s.start(); err != nil {
		return err
	}

	form := url.Values{"count": {"1"}}
	s.addSessionParams(form, map[string]string{
		"__sc":          loungeActionSetPlaylist,
		"_videoId":      videoID,
		"_listId":       "",
		"_currentTime":  "0",
		"_currentIndex": "-1",
		"_audioOnly":    "false",
	})

	if _, err := s.post(s.bindURL, s.sessionURLParams(), form); err != nil {
		return fmt.Errorf("setPlaylist: %w", err)
	}
	return nil
}

func (s *loungeSession) queueAction(action, videoID string) error {
	if !s.inSession() {
		if err := s.start(); err != nil {
			return err
		}
	} else if err := s.bind(); err != nil {
		return err
	}

	form := url.Values{"count": {"1"}}
	s.addSessionParams(form, map[string]string{
		"__sc":     action,
		"_videoId": videoID,
	})

	if _, err := s.post(s.bindURL, s.sessionURLParams(), form); err != nil {
		return fmt.Errorf("queueAction %s: %w", action, err)
	}
	return nil
}

// addSessionParams copies params into form, prefixing underscore keys
// with the current request number the way the web remote does.
func (s *loungeSession) addSessionParams(form url.Values, params map[string]string) {
	prefix := fmt.Sprintf("req%d", s.reqCount)
	for k, v := range params {
		if strings.HasPrefix(k, "_") {
			k = prefix + k
		}
		form.Set(k, v)
	}
}

func (s *loungeSession) sessionURLParams() url.Values {
	s.rid++
	return url.Values{
		"SID":        {s.sid},
		"gsessionid": {s.gsessionID},
		"RID":        {strconv.Itoa(s.rid)},
		"VER":        {"8"},
		"CVER":       {"1"},
	}
}

func (s *loungeSession) post(rawURL string, params, form url.Values) ([]byte, error) {
	u := rawURL
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequest(http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", youtubeBaseURL)
	if s.loungeToken != "" {
		req.Header.Set(loungeIDHeader, s.loungeToken)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		// Stale lounge session, force a rebind on the next action.
		s.sid = ""
		s.gsessionID = ""
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("lounge request: unexpected status %s", resp.Status)
	}
	return body, nil
}

func randomLoungeID() string {
	id, err := utils.RandomString()
	if err != nil {
		return "castpilot-remote"
	}
	return id
}
