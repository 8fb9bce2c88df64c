// Package rtc holds the WebRTC settings handed to browsers. Media flows
// peer to peer, so the server never opens a PeerConnection itself.
package rtc

import (
	"github.com/dkeye/Soundroom/internal/config"
	"github.com/pion/webrtc/v4"
)

var defaultICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
}

// ICEServers converts the configured servers, falling back to a public STUN
// server when none are set. Entries without URLs are skipped.
func ICEServers(cfg []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(cfg))
	for _, s := range cfg {
		if len(s.URLs) == 0 {
			continue
		}
		srv := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, srv)
	}
	if len(out) == 0 {
		return append(out, defaultICEServers...)
	}
	return out
}

// Configuration is the RTCConfiguration a client should build its peer
// connections with.
func Configuration(servers []webrtc.ICEServer) webrtc.Configuration {
	return webrtc.Configuration{ICEServers: servers}
}
