// Package clientinfo extracts the client metadata recorded on session rows:
// originating IP and a coarse device/browser/OS breakdown of the User-Agent.
package clientinfo

import (
	"net"
	"net/http"
	"strings"

	"github.com/mileusna/useragent"
)

const unknown = "Unknown"

// Info is the client metadata stored alongside a session.
type Info struct {
	IP         string
	DeviceName string
	Browser    string
	OS         string
}

// FromRequest derives Info from the request's X-Forwarded-For / remote
// address and User-Agent header. Missing pieces degrade to "Unknown"
// ("Desktop" for the device) rather than failing login.
func FromRequest(r *http.Request) Info {
	return Info{
		IP:         clientIP(r),
		DeviceName: deviceName(r.UserAgent()),
		Browser:    browser(r.UserAgent()),
		OS:         osName(r.UserAgent()),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deviceName(uaString string) string {
	ua := useragent.Parse(uaString)
	if ua.Device != "" {
		return ua.Device
	}
	// Browsers on desktop OSes rarely advertise a device model.
	return "Desktop"
}

func browser(uaString string) string {
	ua := useragent.Parse(uaString)
	if ua.Name == "" {
		return unknown
	}
	return ua.Name
}

func osName(uaString string) string {
	ua := useragent.Parse(uaString)
	if ua.OS == "" {
		return unknown
	}
	return ua.OS
}
