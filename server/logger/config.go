package logger

import (
	"strings"
)

// Config resolves the logging level of a namespace.
type Config interface {
	LevelForNamespace(namespace string) Level
}

// ConfigMap maps namespace patterns to levels. Patterns are colon separated
// and may contain "*" (exactly one section) and "**" (any number of
// sections). The empty key configures the root level.
type ConfigMap map[string]Level

// NewConfig builds a Config from ConfigMap. It returns nil for a nil map.
func NewConfig(configMap ConfigMap) Config {
	if configMap == nil {
		return nil
	}

	root := &node{level: LevelDisabled}

	for pattern, level := range configMap {
		root.add(pattern, level)
	}

	return root
}

// NewConfigFromString parses a comma separated list of pattern:level pairs,
// for example "**:dispatch:debug,:warn". A pattern without a known level
// suffix is enabled at LevelInfo. Returns nil for an empty string.
func NewConfigFromString(str string) Config {
	if str == "" {
		return nil
	}

	configMap := ConfigMap{}

	for _, entry := range strings.Split(str, ",") {
		level := LevelInfo

		if index := strings.LastIndex(entry, ":"); index > -1 {
			if parsed, ok := LevelFromString(entry[index+1:]); ok {
				level = parsed
				entry = entry[:index]
			}
		}

		configMap[entry] = level
	}

	return NewConfig(configMap)
}

type node struct {
	level    Level
	name     string
	children map[string]*node
}

var _ Config = &node{}

func (n *node) add(pattern string, level Level) {
	if pattern == "" {
		n.level = level

		return
	}

	parent := n

	for _, name := range strings.Split(pattern, ":") {
		child, ok := parent.children[name]
		if !ok {
			child = &node{level: LevelUnknown, name: name}

			if parent.children == nil {
				parent.children = map[string]*node{}
			}

			parent.children[name] = child
		}

		parent = child
	}

	parent.level = level
}

func (n *node) match(names []string) (Level, bool) {
	if len(names) == 0 {
		target := n

		if target.level == LevelUnknown {
			if child, ok := n.children["**"]; ok {
				target = child
			}
		}

		return target.level, target.level != LevelUnknown
	}

	if child, ok := n.children[names[0]]; ok {
		if level, ok := child.match(names[1:]); ok {
			return level, true
		}
	}

	// "**" consumes any number of sections before a named child matches.
	if n.name == "**" {
		for i := range names {
			if child, ok := n.children[names[i]]; ok {
				if level, ok := child.match(names[i+1:]); ok {
					return level, true
				}
			}
		}

		if n.level != LevelUnknown {
			return n.level, true
		}
	}

	if child, ok := n.children["*"]; ok {
		if level, ok := child.match(names[1:]); ok {
			return level, true
		}
	}

	if child, ok := n.children["**"]; ok {
		if level, ok := child.match(names); ok {
			return level, true
		}
	}

	return LevelDisabled, false
}

func (n *node) LevelForNamespace(namespace string) Level {
	if namespace == "" {
		return n.level
	}

	if level, ok := n.match(strings.Split(namespace, ":")); ok {
		return level
	}

	return n.level
}
