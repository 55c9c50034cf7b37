// Package convert wraps the optional Traditional-to-Simplified Chinese
// converter. Availability is resolved once at construction; when the
// converter cannot be built, Convert is a logged passthrough.
package convert

import (
	"github.com/longbridgeapp/opencc"
	"github.com/rs/zerolog"
)

type Converter struct {
	cc  *opencc.OpenCC
	log zerolog.Logger
}

// New builds a t2s converter. A construction failure is downgraded to a
// warning; the returned Converter then passes text through unchanged.
func New(logger zerolog.Logger) *Converter {
	cc, err := opencc.New("t2s")
	if err != nil {
		logger.Warn().Err(err).Msg("opencc unavailable, serving unconverted text")
		cc = nil
	}
	return &Converter{cc: cc, log: logger}
}

// Disabled returns a Converter with no backing conversion, for wiring
// tests without OpenCC dictionaries.
func Disabled(logger zerolog.Logger) *Converter {
	return &Converter{log: logger}
}

func (c *Converter) Available() bool {
	return c.cc != nil
}

// Convert returns the simplified form of s, or s unchanged when the
// converter is unavailable or fails.
func (c *Converter) Convert(s string) string {
	if c.cc == nil {
		c.log.Warn().Msg("conversion requested but converter unavailable")
		return s
	}
	out, err := c.cc.Convert(s)
	if err != nil {
		c.log.Warn().Err(err).Msg("conversion failed, serving unconverted text")
		return s
	}
	return out
}
