// Package xdgportal drives the org.freedesktop.portal.ScreenCast and
// org.freedesktop.portal.Screenshot D-Bus interfaces exposed by
// xdg-desktop-portal. Every call that returns a request handle subscribes
// to that request's Response signal before issuing the method call, which
// is the only way to avoid losing a response that arrives faster than a
// post-call subscription would have been listening.
package xdgportal

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"screencap.dev/engine/internal/apis"
	"screencap.dev/engine/internal/convert"
	"screencap.dev/engine/internal/request"
	"screencap.dev/engine/internal/session"
)

// RequestTimeout bounds CreateSession, SelectSources, and
// OpenPipeWireRemote, which all complete as soon as the portal daemon
// itself responds with no human in the loop.
const RequestTimeout = 60 * time.Second

// StartTimeout bounds Start, which waits on the compositor's own source
// picker UI and therefore needs to tolerate a slow human, not just a slow
// daemon.
const StartTimeout = 120 * time.Second

const (
	screenCastInterface = apis.CallBaseName + ".ScreenCast"
	createSessionName   = screenCastInterface + ".CreateSession"
	selectSourcesName    = screenCastInterface + ".SelectSources"
	startName            = screenCastInterface + ".Start"
	openPipeWireRemote   = screenCastInterface + ".OpenPipeWireRemote"

	screenshotInterface = apis.CallBaseName + ".Screenshot"
	screenshotCallName  = screenshotInterface + ".Screenshot"
)

const (
	SourceTypeMonitor uint32 = 1
	SourceTypeWindow  uint32 = 2
	SourceTypeVirtual uint32 = 4
)

const (
	CursorModeHidden   uint32 = 1
	CursorModeEmbedded uint32 = 2
	CursorModeMetadata uint32 = 4
)

const (
	PersistModeNone       uint32 = 0
	PersistModeRunning    uint32 = 1
	PersistModePersistent uint32 = 2
)

func getUint32Property(iface, property string) (uint32, error) {
	value, err := apis.GetProperty(iface, property)
	if err != nil {
		return 0, err
	}

	result, ok := value.(uint32)
	if !ok {
		return 0, fmt.Errorf("property %s returned unexpected type %T", property, value)
	}
	return result, nil
}

func GetAvailableSourceTypes() (uint32, error) {
	return getUint32Property(screenCastInterface, "AvailableSourceTypes")
}

func GetAvailableCursorModes() (uint32, error) {
	return getUint32Property(screenCastInterface, "AvailableCursorModes")
}

func GetVersion() (uint32, error) {
	return getUint32Property(screenCastInterface, "version")
}

type Stream struct {
	NodeID     uint32
	Position   [2]int32
	Size       [2]int32
	SourceType uint32
	MappingID  string
	ID         string
}

type Session struct {
	Path         dbus.ObjectPath
	sessionToken string
}

type Options struct {
	HandleToken        string
	SessionHandleToken string
}

type SelectSourcesOptions struct {
	HandleToken  string
	Types        uint32
	Multiple     bool
	CursorMode   uint32
	RestoreToken string
	PersistMode  uint32
}

type StartOptions struct {
	HandleToken string
}

type OpenPipeWireRemoteOptions struct{}

// callWithResponse issues a portal method that returns a request handle
// and waits for its Response signal, subscribing before the call is made.
// The whole exchange, including the wait for Response, is bounded by ctx.
func callWithResponse(ctx context.Context, token string, callName string, callArgs ...any) (request.ResponseStatus, map[string]dbus.Variant, error) {
	expectedPath, err := request.ComputeExpectedPath(token)
	if err != nil {
		return request.Ended, nil, fmt.Errorf("compute request path: %w", err)
	}
	signal, err := request.Subscribe(expectedPath)
	if err != nil {
		return request.Ended, nil, fmt.Errorf("subscribe to request response: %w", err)
	}

	result, err := apis.Call(ctx, callName, callArgs...)
	if err != nil {
		return request.Ended, nil, err
	}

	// The portal may return a different request path than the one it
	// told us to compute (it falls back when a token collides); if so,
	// resubscribe to the one it actually returned.
	if actualPath, ok := result.(dbus.ObjectPath); ok && actualPath != expectedPath {
		signal, err = request.Subscribe(actualPath)
		if err != nil {
			return request.Ended, nil, fmt.Errorf("subscribe to actual request path: %w", err)
		}
	}

	return request.Await(ctx, signal)
}

func CreateSession(options *Options) (*Session, error) {
	token := session.GenerateToken()
	tokenStr := token.Value().(string)
	data := map[string]dbus.Variant{
		"handle_token":         token,
		"session_handle_token": token,
	}
	if options != nil {
		if options.HandleToken != "" {
			tokenStr = options.HandleToken
			data["handle_token"] = convert.FromString(options.HandleToken)
		}
		if options.SessionHandleToken != "" {
			data["session_handle_token"] = convert.FromString(options.SessionHandleToken)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	status, results, err := callWithResponse(ctx, tokenStr, createSessionName, data)
	if err != nil {
		return nil, err
	}
	if status >= request.Cancelled {
		return nil, nil
	}

	sessionHandle, ok := results["session_handle"]
	if !ok {
		return nil, fmt.Errorf("CreateSession response missing session_handle")
	}
	sessionPath, ok := sessionHandle.Value().(string)
	if !ok {
		return nil, fmt.Errorf("CreateSession session_handle has unexpected type %T", sessionHandle.Value())
	}
	return &Session{Path: dbus.ObjectPath(sessionPath), sessionToken: tokenStr}, nil
}

func (s *Session) SelectSources(options *SelectSourcesOptions) error {
	token := s.sessionToken
	data := map[string]dbus.Variant{}
	if options != nil {
		if options.HandleToken != "" {
			token = options.HandleToken
			data["handle_token"] = convert.FromString(options.HandleToken)
		} else if token != "" {
			data["handle_token"] = convert.FromString(token)
		}
		if options.Types != 0 {
			data["types"] = convert.FromUint32(options.Types)
		}
		if options.Multiple {
			data["multiple"] = convert.FromBool(options.Multiple)
		}
		if options.CursorMode != 0 {
			data["cursor_mode"] = convert.FromUint32(options.CursorMode)
		}
		if options.RestoreToken != "" {
			data["restore_token"] = convert.FromString(options.RestoreToken)
		}
		if options.PersistMode != 0 {
			data["persist_mode"] = convert.FromUint32(options.PersistMode)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	status, _, err := callWithResponse(ctx, token, selectSourcesName, s.Path, data)
	if err != nil {
		return err
	}
	if status >= request.Cancelled {
		return fmt.Errorf("SelectSources was cancelled")
	}
	return nil
}

func (s *Session) Start(parentWindow string, options *StartOptions) ([]Stream, error) {
	token := s.sessionToken
	data := map[string]dbus.Variant{}
	if options != nil && options.HandleToken != "" {
		token = options.HandleToken
		data["handle_token"] = convert.FromString(options.HandleToken)
	} else if token != "" {
		data["handle_token"] = convert.FromString(token)
	}

	// Start waits on the compositor's own picker UI, so it gets the
	// longer of the two timeouts: a human choosing a window or monitor
	// can easily take longer than a daemon round-trip.
	ctx, cancel := context.WithTimeout(context.Background(), StartTimeout)
	defer cancel()

	status, results, err := callWithResponse(ctx, token, startName, s.Path, parentWindow, data)
	if err != nil {
		return nil, err
	}
	if status >= request.Cancelled {
		return nil, nil
	}

	streams := []Stream{}

	streamVariant, ok := results["streams"]
	if !ok {
		return nil, nil
	}

	var rawStreams [][]any
	if rs, ok := streamVariant.Value().([][]any); ok {
		rawStreams = rs
	} else if rs, ok := streamVariant.Value().([]any); ok {
		rawStreams = make([][]any, len(rs))
		for i, r := range rs {
			if s, ok := r.([]any); ok {
				rawStreams[i] = s
			}
		}
	} else {
		return nil, nil
	}

	for _, streamSlice := range rawStreams {
		if len(streamSlice) < 2 {
			continue
		}

		stream := Stream{}

		nodeID, ok := streamSlice[0].(uint32)
		if ok {
			stream.NodeID = nodeID
		}

		props, ok := streamSlice[1].(map[string]dbus.Variant)
		if ok {
			if pos, ok := props["position"]; ok {
				if position, ok := parseInt32Pair(pos.Value()); ok {
					stream.Position = position
				}
			}
			if size, ok := props["size"]; ok {
				if parsedSize, ok := parseInt32Pair(size.Value()); ok {
					stream.Size = parsedSize
				}
			}
			if sourceType, ok := props["source_type"]; ok {
				if parsedType, ok := sourceType.Value().(uint32); ok {
					stream.SourceType = parsedType
				}
			}
			if mappingID, ok := props["mapping_id"]; ok {
				if parsedID, ok := mappingID.Value().(string); ok {
					stream.MappingID = parsedID
				}
			}
			if id, ok := props["id"]; ok {
				if parsedID, ok := id.Value().(string); ok {
					stream.ID = parsedID
				}
			}
		}

		streams = append(streams, stream)
	}

	if len(streams) == 0 {
		return nil, fmt.Errorf("screen cast start returned no streams")
	}
	return streams, nil
}

func (s *Session) OpenPipeWireRemote(options *OpenPipeWireRemoteOptions) (int, error) {
	_ = options
	data := map[string]dbus.Variant{}

	conn, err := dbus.SessionBus()
	if err != nil {
		return -1, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	obj := conn.Object(apis.ObjectName, apis.ObjectPath)
	call := obj.CallWithContext(ctx, openPipeWireRemote, 0, s.Path, data)
	if call.Err != nil {
		return -1, call.Err
	}

	var fd int
	err = call.Store(&fd)
	return fd, err
}

func parseInt32Pair(value any) ([2]int32, bool) {
	values, ok := value.([]any)
	if !ok || len(values) < 2 {
		return [2]int32{}, false
	}

	left, ok := values[0].(int32)
	if !ok {
		return [2]int32{}, false
	}
	right, ok := values[1].(int32)
	if !ok {
		return [2]int32{}, false
	}

	return [2]int32{left, right}, true
}

func (s *Session) Close() error {
	return session.Close(s.Path)
}

func (s *Session) OpenPipeWireRemoteReader() (io.Reader, error) {
	fd, err := s.OpenPipeWireRemote(nil)
	if err != nil {
		return nil, err
	}

	file := os.NewFile(uintptr(fd), "pipewire")
	return file, nil
}

// Screenshot drives the Screenshot portal for a one-shot capture,
// returning the local file path the portal wrote the image to. interactive
// requests the picker UI; when false the portal may answer immediately if
// policy permits.
func Screenshot(parentWindow string, interactive bool) (string, error) {
	token := session.GenerateToken()
	tokenStr := token.Value().(string)
	data := map[string]dbus.Variant{
		"handle_token": token,
		"interactive":  convert.FromBool(interactive),
	}

	// interactive requests show the same kind of picker UI Start does, so
	// they get StartTimeout; a non-interactive request can be answered
	// immediately by policy and gets RequestTimeout.
	timeout := RequestTimeout
	if interactive {
		timeout = StartTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	status, results, err := callWithResponse(ctx, tokenStr, screenshotCallName, parentWindow, data)
	if err != nil {
		return "", err
	}
	if status >= request.Cancelled {
		return "", fmt.Errorf("screenshot request was cancelled")
	}

	uriVariant, ok := results["uri"]
	if !ok {
		return "", fmt.Errorf("screenshot response missing uri")
	}
	uriStr, ok := uriVariant.Value().(string)
	if !ok {
		return "", fmt.Errorf("screenshot uri has unexpected type %T", uriVariant.Value())
	}

	return parseFileURI(uriStr)
}

// parseFileURI accepts only absolute file:// URIs with a clean path,
// rejecting relative paths and any "." or ".." path segment the portal
// should never produce but a malicious or buggy compositor might.
func parseFileURI(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("screenshot uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("screenshot uri: unsupported scheme %q", u.Scheme)
	}
	path := u.Path
	if path == "" || !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("screenshot uri: not an absolute path")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "." || seg == ".." {
			return "", fmt.Errorf("screenshot uri: rejected path segment %q", seg)
		}
	}
	return path, nil
}
