package mqtt

import "strings"

// Topic suffixes under the device prefix.
// The device publishes on the first five and listens on SuffixCommand.
const (
	SuffixLight   = "light"
	SuffixSound   = "sound"
	SuffixMotion  = "motion"
	SuffixAck     = "ack"
	SuffixConfig  = "config"
	SuffixCommand = "cmd"
)

// Topics builds the device topics under a fixed prefix.
//
//	topics := mqtt.NewTopics("house/test_room")
//	topics.Light()   // "house/test_room/light"
//	topics.Command() // "house/test_room/cmd"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. A trailing slash is ignored.
func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.TrimRight(prefix, "/")}
}

// Prefix returns the device prefix without a trailing slash.
func (t Topics) Prefix() string {
	return t.prefix
}

func (t Topics) join(suffix string) string {
	return t.prefix + "/" + suffix
}

// Light returns the ambient light category topic.
func (t Topics) Light() string { return t.join(SuffixLight) }

// Sound returns the sound level category topic.
func (t Topics) Sound() string { return t.join(SuffixSound) }

// Motion returns the motion category topic.
func (t Topics) Motion() string { return t.join(SuffixMotion) }

// Ack returns the topic the device acknowledges commands on.
func (t Topics) Ack() string { return t.join(SuffixAck) }

// Config returns the topic the device reports its configuration on.
func (t Topics) Config() string { return t.join(SuffixConfig) }

// Command returns the topic the relay publishes commands to.
func (t Topics) Command() string { return t.join(SuffixCommand) }

// Inbound returns the five topics the relay subscribes to, in a fixed order.
func (t Topics) Inbound() []string {
	return []string{t.Light(), t.Sound(), t.Motion(), t.Ack(), t.Config()}
}
