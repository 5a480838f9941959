// Package auth verifies the session token presented while a connection is
// being established and attaches an Identity to it.
package auth

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
)

// ErrUnauthorized is the only error Authenticate and Verify return. The
// concrete reason is logged but never told to the client.
var ErrUnauthorized = errors.New("unauthorized")

const (
	DefaultCookieName = "token"
	DefaultMaxAge     = 7 * 24 * time.Hour
)

// Claims are the signed contents of a session token.
type Claims struct {
	UserID    identifiers.UserID `json:"userId"`
	Username  string             `json:"username"`
	ExpiresAt int64              `json:"exp"`
}

type Params struct {
	Log        logger.Logger
	Secret     string
	CookieName string
	MaxAge     time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Gate signs and verifies session tokens.
type Gate struct {
	log        logger.Logger
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     time.Duration
	now        func() time.Time
}

func New(params Params) (*Gate, error) {
	if params.Secret == "" {
		return nil, errors.New("auth secret must not be empty")
	}

	if params.CookieName == "" {
		params.CookieName = DefaultCookieName
	}

	if params.MaxAge <= 0 {
		params.MaxAge = DefaultMaxAge
	}

	if params.Now == nil {
		params.Now = time.Now
	}

	codec := securecookie.New([]byte(params.Secret), nil).
		MaxAge(int(params.MaxAge / time.Second)).
		SetSerializer(securecookie.JSONEncoder{})

	return &Gate{
		log:        params.Log.WithNamespaceAppended("auth"),
		codec:      codec,
		cookieName: params.CookieName,
		maxAge:     params.MaxAge,
		now:        params.Now,
	}, nil
}

func (g *Gate) CookieName() string {
	return g.cookieName
}

// Issue returns a signed token for the user which expires after the
// configured max age.
func (g *Gate) Issue(userID identifiers.UserID, username string) (string, error) {
	claims := Claims{
		UserID:    userID,
		Username:  username,
		ExpiresAt: g.now().Add(g.maxAge).Unix(),
	}

	token, err := g.codec.Encode(g.cookieName, claims)

	return token, errors.Annotate(err, "issue token")
}

// Verify checks the signature and expiry of token.
func (g *Gate) Verify(token string) (Claims, error) {
	var claims Claims

	if token == "" {
		return claims, errors.Annotate(ErrUnauthorized, "missing token")
	}

	if err := g.codec.Decode(g.cookieName, token, &claims); err != nil {
		return Claims{}, errors.Annotatef(ErrUnauthorized, "decode token: %s", err)
	}

	if claims.ExpiresAt <= g.now().Unix() {
		return Claims{}, errors.Annotate(ErrUnauthorized, "token expired")
	}

	if claims.UserID == 0 || claims.Username == "" {
		return Claims{}, errors.Annotate(ErrUnauthorized, "incomplete claims")
	}

	return claims, nil
}

// Token extracts the session token from the request cookies.
func (g *Gate) Token(r *http.Request) string {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil {
		return ""
	}

	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return cookie.Value
	}

	return value
}

// Authenticate verifies the request's session cookie and returns a fresh
// Identity with a new connection id. No Identity is created on failure.
func (g *Gate) Authenticate(r *http.Request) (identifiers.Identity, error) {
	claims, err := g.Verify(g.Token(r))
	if err != nil {
		g.log.Info("Handshake rejected", logger.Ctx{
			"remote_addr": r.RemoteAddr,
			"reason":      err.Error(),
		})

		return identifiers.Identity{}, errors.Trace(err)
	}

	return identifiers.Identity{
		ConnID:   identifiers.NewConnID(),
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}
