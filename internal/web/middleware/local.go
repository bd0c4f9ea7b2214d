package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// LocalOnly rejects requests that did not come from a page served by this
// machine. The Host header must name a loopback address, which blocks DNS
// rebinding. Requests carrying an Origin header must also come from a
// loopback origin, which blocks cross-site form posts.
func LocalOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackHost(r.Host) {
			slog.Warn("local: foreign host header",
				"path", r.URL.Path,
				"method", r.Method,
				"host", r.Host,
			)
			http.Error(w, `{"error":"forbidden host","code":"AUTH_FOREIGN_HOST"}`, http.StatusForbidden)
			return
		}

		if origin := r.Header.Get("Origin"); origin != "" && !isLoopbackOrigin(origin) {
			slog.Warn("local: cross-origin request",
				"path", r.URL.Path,
				"method", r.Method,
				"origin", origin,
			)
			http.Error(w, `{"error":"cross-origin request","code":"AUTH_FOREIGN_ORIGIN"}`, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isLoopbackHost reports whether a host or host:port names this machine.
func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return isLoopbackHost(u.Host)
}
