package logger

// Ctx holds the structured fields of a log entry.
type Ctx map[string]interface{}

// WithCtx merges newCtx into a copy of c. Keys from newCtx win.
func (c Ctx) WithCtx(newCtx Ctx) Ctx {
	if c == nil {
		return newCtx
	}

	if newCtx == nil {
		return c
	}

	ret := make(Ctx, len(c)+len(newCtx))

	for k, v := range c {
		ret[k] = v
	}

	for k, v := range newCtx {
		ret[k] = v
	}

	return ret
}
