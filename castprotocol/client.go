package castprotocol

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vishen/go-chromecast/cast"
	pb "github.com/vishen/go-chromecast/cast/proto"
	"golang.org/x/time/rate"
)

// DefaultPort is the TCP port cast devices listen on.
const DefaultPort = 8009

const (
	defaultSender = "sender-0"
	defaultRecv   = "receiver-0"

	namespaceConn      = "urn:x-cast:com.google.cast.tp.connection"
	namespaceHeartbeat = "urn:x-cast:com.google.cast.tp.heartbeat"
	namespaceRecv      = "urn:x-cast:com.google.cast.receiver"
	namespaceMedia     = "urn:x-cast:com.google.cast.media"

	defaultMediaReceiverAppID = "CC1AD845"

	requestTimeout = 10 * time.Second
)

var (
	ErrClientClosed   = errors.New("castclient: connection closed")
	ErrNoAppTransport = errors.New("castclient: no running application transport")
	ErrNoMediaSession = errors.New("castclient: no active media session")
	ErrNoCastStatus   = errors.New("castclient: no receiver status yet")
)

// Conn is the part of the go-chromecast connection the client drives.
// cast.NewConnection satisfies it, tests swap in a mock.
type Conn interface {
	Start(addr string, port int) error
	Close() error
	Send(requestID int, payload cast.Payload, sourceID, destinationID, namespace string) error
	MsgChan() chan *pb.CastMessage
}

var _ Conn = (cast.Conn)(nil)

// CastClient speaks the cast v2 channel protocol to a single device. It
// owns the message pump: heartbeats, status pushes and request replies
// all pass through one receive goroutine, and the stored statuses are
// swapped wholesale as messages land.
type CastClient struct {
	conn Conn

	mu          sync.RWMutex
	host        string
	port        int
	deviceName  string
	deviceUUID  string
	connected   bool
	castStatus  *CastStatus
	mediaStatus *MediaStatus
	transportID string
	handlers    map[string]func(*pb.CastMessage)
	listeners   []func()

	pendingMu sync.Mutex
	pending   map[int]chan *pb.CastMessage

	refreshLimiter *rate.Limiter
	done           chan struct{}
	closeOnce      sync.Once

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *CastClient) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// NewCastClient returns a client over a fresh cast connection. Call
// Start before anything else.
func NewCastClient() *CastClient {
	throttle := rate.Every(time.Second)

	return &CastClient{
		conn:           cast.NewConnection(),
		handlers:       make(map[string]func(*pb.CastMessage)),
		pending:        make(map[int]chan *pb.CastMessage),
		refreshLimiter: rate.NewLimiter(throttle, 1),
		done:           make(chan struct{}),
	}
}

// SetDeviceInfo attaches the discovered name and uuid so consumers can
// read them back without holding on to the discovery record.
func (c *CastClient) SetDeviceInfo(name, uuid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deviceName = name
	c.deviceUUID = uuid
}

// DeviceName returns the friendly name from discovery, if any.
func (c *CastClient) DeviceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceName
}

// DeviceUUID returns the device uuid from discovery, if any.
func (c *CastClient) DeviceUUID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceUUID
}

// Start connects to the device and blocks until the first receiver
// status lands. Once it returns the client is ready and keeps itself
// current in the background until Close.
func (c *CastClient) Start(host string, port int) error {
	if port <= 0 {
		port = DefaultPort
	}
	c.mu.Lock()
	c.host = host
	c.port = port
	c.mu.Unlock()

	c.Log().Debug().Str("Method", "Start").Str("Host", host).Int("Port", port).Msg("connecting")
	if err := c.conn.Start(host, port); err != nil {
		c.Log().Error().Str("Method", "Start").Err(err).Msg("connection failed")
		return fmt.Errorf("castclient start: %w", err)
	}

	go c.recvLoop()

	connect := cast.ConnectHeader
	if err := c.send(&connect, defaultRecv, namespaceConn); err != nil {
		return fmt.Errorf("castclient start: %w", err)
	}

	get := cast.GetStatusHeader
	if _, err := c.sendAndWait(&get, defaultRecv, namespaceRecv); err != nil {
		c.Log().Error().Str("Method", "Start").Err(err).Msg("no receiver status")
		return fmt.Errorf("castclient start: %w", err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.Log().Debug().Str("Method", "Start").Msg("connected successfully")
	return nil
}

func (c *CastClient) recvLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.conn.MsgChan():
			if !ok {
				return
			}
			c.handleMessage(msg)
		}
	}
}

func (c *CastClient) handleMessage(msg *pb.CastMessage) {
	payload := msg.GetPayloadUtf8()
	if payload == "" {
		return
	}

	var header cast.PayloadHeader
	if err := json.Unmarshal([]byte(payload), &header); err != nil {
		c.Log().Debug().Str("Method", "recv").Err(err).Msg("unparseable message")
		return
	}

	switch header.Type {
	case "PING":
		pong := cast.PongHeader
		dest := msg.GetSourceId()
		if dest == "" {
			dest = defaultRecv
		}
		if err := c.conn.Send(0, &pong, defaultSender, dest, namespaceHeartbeat); err != nil {
			c.Log().Debug().Str("Method", "recv").Err(err).Msg("pong failed")
		}
	case "RECEIVER_STATUS":
		c.handleReceiverStatus([]byte(payload))
	case "MEDIA_STATUS":
		c.handleMediaStatus([]byte(payload))
	case "CLOSE":
		c.handleClose(msg)
	case "LAUNCH_ERROR", "INVALID_REQUEST", "LOAD_FAILED", "ERROR":
		c.Log().Warn().Str("Method", "recv").Str("Type", header.Type).Str("Payload", payload).Msg("device reported error")
	default:
		c.mu.RLock()
		handler := c.handlers[msg.GetNamespace()]
		c.mu.RUnlock()
		if handler != nil {
			handler(msg)
		}
	}

	if header.RequestId != 0 {
		c.deliverPending(header.RequestId, msg)
	}
}

// handleReceiverStatus stores the new device status and follows the
// running application: a fresh transport id gets a virtual CONNECT plus
// a media status request when the app exposes the media namespace.
func (c *CastClient) handleReceiverStatus(payload []byte) {
	status, err := parseReceiverStatus(payload)
	if err != nil {
		c.Log().Error().Str("Method", "recv").Err(err).Msg("bad receiver status")
		return
	}

	var newTransport string
	if status.App != nil && !status.App.IsIdleScreen {
		newTransport = status.App.TransportID
	}

	c.mu.Lock()
	changed := newTransport != c.transportID
	c.castStatus = status
	c.transportID = newTransport
	if changed && newTransport == "" {
		c.mediaStatus = nil
	}
	c.mu.Unlock()

	if changed && newTransport != "" {
		c.Log().Debug().Str("Method", "recv").Str("TransportId", newTransport).Str("AppID", status.App.AppID).Msg("following new application")
		connect := cast.ConnectHeader
		if err := c.send(&connect, newTransport, namespaceConn); err != nil {
			c.Log().Error().Str("Method", "recv").Err(err).Msg("transport connect failed")
		}
		if status.App.HasNamespace(namespaceMedia) {
			get := cast.GetStatusHeader
			if err := c.send(&get, newTransport, namespaceMedia); err != nil {
				c.Log().Debug().Str("Method", "recv").Err(err).Msg("media status request failed")
			}
		}
	}

	c.notify()
}

func (c *CastClient) handleMediaStatus(payload []byte) {
	status, err := parseMediaStatus(payload)
	if err != nil {
		c.Log().Error().Str("Method", "recv").Err(err).Msg("bad media status")
		return
	}

	c.mu.Lock()
	c.mediaStatus = status
	c.mu.Unlock()

	c.notify()
}

func (c *CastClient) handleClose(msg *pb.CastMessage) {
	src := msg.GetSourceId()
	c.Log().Debug().Str("Method", "recv").Str("Source", src).Msg("close message")

	c.mu.Lock()
	if src == defaultRecv {
		c.connected = false
	}
	if src == "" || src != c.transportID {
		c.mu.Unlock()
		return
	}
	c.transportID = ""
	c.mediaStatus = nil
	c.mu.Unlock()

	c.notify()
}

func (c *CastClient) send(payload cast.Payload, destID, namespace string) error {
	requestID := nextRequestID()
	payload.SetRequestId(requestID)
	return c.conn.Send(requestID, payload, defaultSender, destID, namespace)
}

func (c *CastClient) sendAndWait(payload cast.Payload, destID, namespace string) (*pb.CastMessage, error) {
	requestID := nextRequestID()
	payload.SetRequestId(requestID)

	waiter := make(chan *pb.CastMessage, 1)
	c.pendingMu.Lock()
	c.pending[requestID] = waiter
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, requestID)
		c.pendingMu.Unlock()
	}()

	if err := c.conn.Send(requestID, payload, defaultSender, destID, namespace); err != nil {
		return nil, err
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()
	select {
	case msg := <-waiter:
		return msg, nil
	case <-timer.C:
		return nil, fmt.Errorf("sendAndWait: no reply within %s", requestTimeout)
	case <-c.done:
		return nil, ErrClientClosed
	}
}

// deliverPending runs after the message has been folded into the stored
// statuses, so a sendAndWait caller sees its own update applied.
func (c *CastClient) deliverPending(requestID int, msg *pb.CastMessage) {
	c.pendingMu.Lock()
	waiter := c.pending[requestID]
	c.pendingMu.Unlock()
	if waiter != nil {
		select {
		case waiter <- msg:
		default:
		}
	}
}

func (c *CastClient) notify() {
	c.mu.RLock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// OnStatusUpdate registers fn to run after every stored status change.
// Callbacks run on the receive goroutine, keep them quick.
func (c *CastClient) OnStatusUpdate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// RegisterHandler routes messages of the given namespace that the
// client does not consume itself to fn.
func (c *CastClient) RegisterHandler(namespace string, fn func(*pb.CastMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[namespace] = fn
}

// CastStatus returns the last receiver status, nil before the first one
// arrives. Statuses are replaced wholesale on updates, callers must
// treat the returned value as read only.
func (c *CastClient) CastStatus() *CastStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.castStatus
}

// MediaStatus returns the last media status, nil while no media session
// exists. Same read only contract as CastStatus.
func (c *CastClient) MediaStatus() *MediaStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mediaStatus
}

// AppID returns the id of the running application, empty when idle.
func (c *CastClient) AppID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.castStatus == nil || c.castStatus.App == nil {
		return ""
	}
	return c.castStatus.App.AppID
}

// AppDisplayName returns the name of the running application, empty
// when idle.
func (c *CastClient) AppDisplayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.castStatus == nil || c.castStatus.App == nil {
		return ""
	}
	return c.castStatus.App.DisplayName
}

func (c *CastClient) transport() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transportID
}

func (c *CastClient) mediaSession() (string, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.transportID == "" {
		return "", 0, ErrNoAppTransport
	}
	if c.mediaStatus == nil {
		return "", 0, ErrNoMediaSession
	}
	return c.transportID, c.mediaStatus.MediaSessionID, nil
}

// RequestStatusRefresh asks the device for fresh receiver and media
// statuses. Calls are rate limited to one per second and silently
// dropped above that, replies land through the usual status handling.
func (c *CastClient) RequestStatusRefresh() {
	if !c.refreshLimiter.Allow() {
		return
	}

	get := cast.GetStatusHeader
	if err := c.send(&get, defaultRecv, namespaceRecv); err != nil {
		c.Log().Debug().Str("Method", "RequestStatusRefresh").Err(err).Msg("receiver status request failed")
	}
	if tid := c.transport(); tid != "" {
		getMedia := cast.GetStatusHeader
		if err := c.send(&getMedia, tid, namespaceMedia); err != nil {
			c.Log().Debug().Str("Method", "RequestStatusRefresh").Err(err).Msg("media status request failed")
		}
	}
}

// Play resumes playback of the current media session.
func (c *CastClient) Play() error {
	c.Log().Debug().Str("Method", "Play").Msg("resuming playback")
	tid, session, err := c.mediaSession()
	if err != nil {
		c.Log().Error().Str("Method", "Play").Err(err).Msg("failed")
		return err
	}
	return c.send(&cast.MediaHeader{
		PayloadHeader:  cast.PlayHeader,
		MediaSessionId: session,
	}, tid, namespaceMedia)
}

// Pause pauses playback of the current media session.
func (c *CastClient) Pause() error {
	c.Log().Debug().Str("Method", "Pause").Msg("pausing playback")
	tid, session, err := c.mediaSession()
	if err != nil {
		c.Log().Error().Str("Method", "Pause").Err(err).Msg("failed")
		return err
	}
	return c.send(&cast.MediaHeader{
		PayloadHeader:  cast.PauseHeader,
		MediaSessionId: session,
	}, tid, namespaceMedia)
}

// StopMedia stops playback and tears down the media session. The
// receiver application keeps running.
func (c *CastClient) StopMedia() error {
	c.Log().Debug().Str("Method", "StopMedia").Msg("stopping playback")
	tid, session, err := c.mediaSession()
	if err != nil {
		c.Log().Error().Str("Method", "StopMedia").Err(err).Msg("failed")
		return err
	}
	return c.send(&cast.MediaHeader{
		PayloadHeader:  cast.StopHeader,
		MediaSessionId: session,
	}, tid, namespaceMedia)
}

// Seek jumps to an absolute position in seconds from the start.
func (c *CastClient) Seek(seconds int) error {
	c.Log().Debug().Str("Method", "Seek").Int("Seconds", seconds).Msg("seeking")
	if seconds < 0 {
		seconds = 0
	}
	tid, session, err := c.mediaSession()
	if err != nil {
		c.Log().Error().Str("Method", "Seek").Err(err).Msg("failed")
		return err
	}
	return c.send(&cast.MediaHeader{
		PayloadHeader:  cast.SeekHeader,
		MediaSessionId: session,
		CurrentTime:    float32(seconds),
		ResumeState:    "PLAYBACK_START",
	}, tid, namespaceMedia)
}

// QueueNext skips to the next item in the receiver queue.
func (c *CastClient) QueueNext() error {
	return c.queueJump("QueueNext", 1)
}

// QueuePrev goes back to the previous item in the receiver queue.
func (c *CastClient) QueuePrev() error {
	return c.queueJump("QueuePrev", -1)
}

func (c *CastClient) queueJump(method string, jump int) error {
	c.Log().Debug().Str("Method", method).Int("Jump", jump).Msg("queue jump")
	tid, session, err := c.mediaSession()
	if err != nil {
		c.Log().Error().Str("Method", method).Err(err).Msg("failed")
		return err
	}
	return c.send(&cast.QueueUpdate{
		PayloadHeader:  cast.QueueUpdateHeader,
		MediaSessionId: session,
		Jump:           jump,
	}, tid, namespaceMedia)
}

// LaunchApp starts the given receiver application unless it is already
// in the foreground, then waits for its transport to come up.
func (c *CastClient) LaunchApp(appID string) error {
	c.Log().Debug().Str("Method", "LaunchApp").Str("AppID", appID).Msg("launching application")
	if c.AppID() == appID {
		c.Log().Debug().Str("Method", "LaunchApp").Msg("application already running")
		return nil
	}

	launch := cast.LaunchRequest{
		PayloadHeader: cast.LaunchHeader,
		AppId:         appID,
	}
	if _, err := c.sendAndWait(&launch, defaultRecv, namespaceRecv); err != nil {
		c.Log().Error().Str("Method", "LaunchApp").Err(err).Msg("failed")
		return fmt.Errorf("launch app %s: %w", appID, err)
	}

	if _, err := c.waitForTransport(); err != nil {
		return err
	}
	return nil
}

// waitForTransport polls for the transport id of a freshly launched
// application. Receivers report it in a follow-up RECEIVER_STATUS push,
// sometimes seconds after the LAUNCH reply.
func (c *CastClient) waitForTransport() (string, error) {
	for i := 0; i < 8; i++ {
		if tid := c.transport(); tid != "" {
			return tid, nil
		}
		time.Sleep(time.Duration(i+1) * 250 * time.Millisecond)
	}
	if tid := c.transport(); tid != "" {
		return tid, nil
	}
	c.Log().Error().Str("Method", "waitForTransport").Msg("no transport ID after launch")
	return "", ErrNoAppTransport
}

// PlayMedia launches the default media receiver and loads the given URL
// with autoplay.
func (c *CastClient) PlayMedia(contentURL, contentType string) error {
	c.Log().Debug().Str("Method", "PlayMedia").Str("URL", contentURL).Str("ContentType", contentType).Msg("loading media")
	if err := c.LaunchApp(defaultMediaReceiverAppID); err != nil {
		return err
	}
	tid, err := c.waitForTransport()
	if err != nil {
		return err
	}

	load := cast.LoadMediaCommand{
		PayloadHeader: cast.LoadHeader,
		Media: cast.MediaItem{
			ContentId:   contentURL,
			ContentType: contentType,
			StreamType:  "BUFFERED",
		},
		Autoplay: true,
	}
	if err := c.send(&load, tid, namespaceMedia); err != nil {
		c.Log().Error().Str("Method", "PlayMedia").Err(err).Msg("failed")
		return fmt.Errorf("playMedia: %w", err)
	}
	return nil
}

// VolumeUp raises the device volume by delta on the 0 to 1 scale.
func (c *CastClient) VolumeUp(delta decimal.Decimal) error {
	c.Log().Debug().Str("Method", "VolumeUp").Str("Delta", delta.String()).Msg("raising volume")
	return c.adjustVolume(delta)
}

// VolumeDown lowers the device volume by delta on the 0 to 1 scale.
func (c *CastClient) VolumeDown(delta decimal.Decimal) error {
	c.Log().Debug().Str("Method", "VolumeDown").Str("Delta", delta.String()).Msg("lowering volume")
	return c.adjustVolume(delta.Neg())
}

func (c *CastClient) adjustVolume(delta decimal.Decimal) error {
	cs := c.CastStatus()
	if cs == nil {
		return ErrNoCastStatus
	}

	level := decimal.NewFromFloat(cs.Volume.Level).Add(delta)
	if level.IsNegative() {
		level = decimal.Zero
	}
	if one := decimal.NewFromInt(1); level.GreaterThan(one) {
		level = one
	}

	f, _ := level.Float64()
	if err := c.send(newSetVolumeLevel(f), defaultRecv, namespaceRecv); err != nil {
		return fmt.Errorf("adjustVolume: %w", err)
	}
	return nil
}

// SetVolumeMuted sets the device mute flag without touching the level.
func (c *CastClient) SetVolumeMuted(muted bool) error {
	c.Log().Debug().Str("Method", "SetVolumeMuted").Bool("Muted", muted).Msg("setting mute")
	if err := c.send(newSetVolumeMuted(muted), defaultRecv, namespaceRecv); err != nil {
		c.Log().Error().Str("Method", "SetVolumeMuted").Err(err).Msg("failed")
		return err
	}
	return nil
}

// QuitApp stops the running receiver application, returning the device
// to its idle screen.
func (c *CastClient) QuitApp() error {
	c.Log().Debug().Str("Method", "QuitApp").Msg("stopping application")
	stop := cast.StopHeader
	if err := c.send(&stop, defaultRecv, namespaceRecv); err != nil {
		c.Log().Error().Str("Method", "QuitApp").Err(err).Msg("failed")
		return err
	}
	return nil
}

// Close tears down the connection. Safe to call more than once.
func (c *CastClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.Log().Debug().Str("Method", "Close").Msg("closing connection")
		c.mu.Lock()
		c.connected = false
		tid := c.transportID
		c.mu.Unlock()

		if tid != "" {
			closeApp := cast.CloseHeader
			_ = c.send(&closeApp, tid, namespaceConn)
		}
		closeRecv := cast.CloseHeader
		_ = c.send(&closeRecv, defaultRecv, namespaceConn)

		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// IsConnected returns whether client is connected.
func (c *CastClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Host returns the hostname of the connected device.
func (c *CastClient) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.host
}
