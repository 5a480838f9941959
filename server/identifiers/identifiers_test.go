package identifiers_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxhall/voxhall/server/identifiers"
)

func TestChannelID_UnmarshalJSON(t *testing.T) {
	type testCase struct {
		input   string
		want    identifiers.ChannelID
		wantErr bool
	}

	for _, tc := range []testCase{
		{`"9"`, "9", false},
		{`9`, "9", false},
		{`9.0`, "9", false},
		{`" general "`, "general", false},
		{`9.5`, "", true},
		{`{}`, "", true},
		{`[1]`, "", true},
	} {
		var c identifiers.ChannelID

		err := json.Unmarshal([]byte(tc.input), &c)
		if tc.wantErr {
			assert.Error(t, err, "input: %s", tc.input)

			continue
		}

		assert.NoError(t, err, "input: %s", tc.input)
		assert.Equal(t, tc.want, c)
	}
}

func TestChannelID_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(identifiers.ChannelID("9"))
	assert.NoError(t, err)
	assert.Equal(t, `"9"`, string(b))
}

func TestNewConnID(t *testing.T) {
	a := identifiers.NewConnID()
	b := identifiers.NewConnID()

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestRoomKind_String(t *testing.T) {
	assert.Equal(t, "text", identifiers.RoomKindText.String())
	assert.Equal(t, "voice", identifiers.RoomKindVoice.String())
	assert.Equal(t, "unknown", identifiers.RoomKind(0).String())
}
