package peer_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu sync.Mutex

	local      *webrtc.SessionDescription
	remote     *webrtc.SessionDescription
	candidates []string
	closed     int

	// remoteErr is returned by SetRemoteDescription when set.
	remoteErr error
}

func (f *fakeConn) CreateOffer(*webrtc.OfferOptions) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer\r\n"}, nil
}

func (f *fakeConn) CreateAnswer(*webrtc.AnswerOptions) (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.remote == nil {
		return webrtc.SessionDescription{}, errors.New("no remote description")
	}

	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer\r\n"}, nil
}

func (f *fakeConn) SetLocalDescription(desc webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.local = &desc

	return nil
}

func (f *fakeConn) SetRemoteDescription(desc webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.remoteErr != nil {
		return f.remoteErr
	}

	f.remote = &desc

	return nil
}

func (f *fakeConn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.remote == nil {
		return errors.New("remote description not set")
	}

	f.candidates = append(f.candidates, candidate.Candidate)

	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed++

	return nil
}

func (f *fakeConn) Candidates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.candidates...)
}

func (f *fakeConn) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

func sdp(t *testing.T, typ webrtc.SDPType, body string) json.RawMessage {
	t.Helper()

	b, err := json.Marshal(webrtc.SessionDescription{Type: typ, SDP: body})
	require.NoError(t, err)

	return b
}

func candidate(t *testing.T, c string) json.RawMessage {
	t.Helper()

	b, err := json.Marshal(webrtc.ICECandidateInit{Candidate: c})
	require.NoError(t, err)

	return b
}
