package identifiers

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
)

// ConnID identifies a single live connection. One user may hold many.
type ConnID string

// UserID is the id of an authenticated user as carried by the session token.
type UserID int64

// ChannelID is the string-normalized key of a text or voice channel. Clients
// may send it as a JSON number or string; both decode to the same key.
type ChannelID string

// RoomKind distinguishes the two independent room namespaces.
type RoomKind int

const (
	RoomKindText RoomKind = iota + 1
	RoomKindVoice
)

// Identity is attached to a connection once its handshake was verified.
type Identity struct {
	ConnID   ConnID
	UserID   UserID
	Username string
}

// NewConnID returns a random connection id.
func NewConnID() ConnID {
	return ConnID(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

func (c ConnID) String() string {
	return string(c)
}

func (c ChannelID) String() string {
	return string(c)
}

func (u UserID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

func (k RoomKind) String() string {
	switch k {
	case RoomKindText:
		return "text"
	case RoomKindVoice:
		return "voice"
	default:
		return "unknown"
	}
}

var ErrInvalidChannelID = errors.New("invalid channel id")

// UnmarshalJSON accepts "9", 9 and 9.0 alike.
func (c *ChannelID) UnmarshalJSON(b []byte) error {
	var str string

	if err := json.Unmarshal(b, &str); err == nil {
		*c = ChannelID(strings.TrimSpace(str))

		return nil
	}

	var num json.Number

	if err := json.Unmarshal(b, &num); err != nil {
		return errors.Annotatef(ErrInvalidChannelID, "%s", b)
	}

	if i, err := num.Int64(); err == nil {
		*c = ChannelID(strconv.FormatInt(i, 10))

		return nil
	}

	f, err := num.Float64()
	if err != nil || f != float64(int64(f)) {
		return errors.Annotatef(ErrInvalidChannelID, "%s", b)
	}

	*c = ChannelID(strconv.FormatInt(int64(f), 10))

	return nil
}

type ConnIDs []ConnID

var _ sort.Interface = ConnIDs(nil)

func (c ConnIDs) Len() int {
	return len(c)
}

func (c ConnIDs) Less(i, j int) bool {
	return c[i] < c[j]
}

func (c ConnIDs) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
}
