package logformatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/voxhall/voxhall/server/logger"
)

const (
	connIDKey     = "conn_id"
	timeLayout    = "2006-01-02T15:04:05.000000Z07:00"
	namespaceCols = 20
)

// LogFormatter formats console output and moves the connection id into its
// own column so that interleaved connections are easy to follow.
type LogFormatter struct{}

var _ logger.Formatter = &LogFormatter{}

func New() *LogFormatter {
	return &LogFormatter{}
}

func (f *LogFormatter) Format(message logger.Message) ([]byte, error) {
	ctx := message.Ctx

	keys := make([]string, 0, len(ctx))

	for k := range ctx {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var (
		b      strings.Builder
		connID string
	)

	for _, k := range keys {
		if k == connIDKey {
			connID = fmt.Sprintf("%s", ctx[k])

			continue
		}

		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(fmt.Sprintf("%+v", ctx[k]))
	}

	namespace := message.Namespace
	if len(namespace) > namespaceCols {
		namespace = namespace[len(namespace)-namespaceCols:]
	}

	prefix := fmt.Sprintf("%s %5s [%20s]",
		message.Timestamp.Format(timeLayout),
		message.Level,
		namespace,
	)

	if connID != "" {
		prefix += " [" + connID + "]"
	}

	ret := fmt.Sprintf("%s %s%s\n", prefix, strings.TrimRight(message.Body, "\n"), b.String())

	return []byte(ret), nil
}
