package logger

import (
	"fmt"
	"sort"
	"strings"
)

// Formatter serializes a Message before it is written.
type Formatter interface {
	Format(message Message) ([]byte, error)
}

// StringFormatter prints one line per message with sorted context keys.
type StringFormatter struct {
	params StringFormatterParams
}

type StringFormatterParams struct {
	// DateLayout is passed to time.Time.Format.
	DateLayout string

	DisableContextKeySorting bool
}

var _ Formatter = &StringFormatter{}

func NewStringFormatter(params StringFormatterParams) *StringFormatter {
	if params.DateLayout == "" {
		params.DateLayout = "2006-01-02T15:04:05.000000Z07:00"
	}

	return &StringFormatter{
		params: params,
	}
}

func (f *StringFormatter) Format(message Message) ([]byte, error) {
	keys := make([]string, 0, len(message.Ctx))

	for k := range message.Ctx {
		keys = append(keys, k)
	}

	if !f.params.DisableContextKeySorting {
		sort.Strings(keys)
	}

	var b strings.Builder

	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(fmt.Sprintf("%+v", message.Ctx[k]))
	}

	ret := fmt.Sprintf("%s %5s [%20s] %s%s\n",
		message.Timestamp.Format(f.params.DateLayout),
		message.Level,
		message.Namespace,
		message.Body,
		b.String(),
	)

	return []byte(ret), nil
}
