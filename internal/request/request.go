package request

import (
	"context"
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"

	"screencap.dev/engine/internal/apis"
)

var ErrUnexpectedResponse = errors.New("unexpected response from dbus")

const (
	interfaceName  = "org.freedesktop.portal.Request"
	responseMember = "Response"
	closeCallName  = interfaceName + ".Close"
	basePath       = "/org/freedesktop/portal/desktop/request"
)

type ResponseStatus = uint32

const (
	Success   ResponseStatus = 0
	Cancelled ResponseStatus = 1
	Ended     ResponseStatus = 2
)

func Close(path dbus.ObjectPath) error {
	return apis.CallOnObject(context.Background(), path, closeCallName)
}

// ComputeExpectedPath derives the request object path the portal will use
// for a call carrying handle_token, following the xdg-desktop-portal rule:
// /org/freedesktop/portal/desktop/request/SENDER/TOKEN, where SENDER is the
// caller's unique bus name with the leading colon stripped and every '.'
// replaced with '_'. Computing this before issuing the call lets the
// caller subscribe to its Response signal first, closing the race where
// the portal answers before a post-call subscription would have been
// listening.
func ComputeExpectedPath(token string) (dbus.ObjectPath, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return "", err
	}
	sender := strings.TrimPrefix(string(conn.Names()[0]), ":")
	sender = strings.ReplaceAll(sender, ".", "_")
	return dbus.ObjectPath(basePath + "/" + sender + "/" + token), nil
}

// Subscribe begins listening for the Response signal on path. Call this
// before issuing the portal method that will emit it.
func Subscribe(path dbus.ObjectPath) (chan *dbus.Signal, error) {
	return apis.ListenOnSignal(path, interfaceName, responseMember)
}

// Await blocks on a channel obtained from Subscribe and decodes the
// Response signal's payload, bounded by ctx. If ctx is cancelled or its
// deadline elapses first, Await returns ctx.Err() so the caller can
// distinguish a timeout/cancellation from a malformed response.
func Await(ctx context.Context, signal chan *dbus.Signal) (ResponseStatus, map[string]dbus.Variant, error) {
	var response *dbus.Signal
	select {
	case response = <-signal:
	case <-ctx.Done():
		return Ended, nil, ctx.Err()
	}
	if len(response.Body) != 2 {
		return Ended, nil, ErrUnexpectedResponse
	}

	status, ok := response.Body[0].(ResponseStatus)
	if !ok {
		return Ended, nil, ErrUnexpectedResponse
	}
	results, ok := response.Body[1].(map[string]dbus.Variant)
	if !ok {
		return Ended, nil, ErrUnexpectedResponse
	}
	return status, results, nil
}
