package domain

import "math/rand/v2"

// OfflineResponses are served when no provider is configured, or when a
// provider is rate limited or too slow.
//
//nolint:gochecknoglobals // Static response pool
var OfflineResponses = []string{
	"I'm offline at the moment, but I'll be back soon. Try me again in a bit!",
	"Looks like I can't reach my thinking cap right now. Please try again shortly.",
	"I'm taking a quick breather. Send your message again in a minute or two!",
	"My connection to the cloud is a little shaky right now. Let's chat again soon.",
	"I'm not able to answer right now, but I appreciate your patience!",
}

// FallbackResponses are served when providers fail for any other reason.
//
//nolint:gochecknoglobals // Static response pool
var FallbackResponses = []string{
	"Hmm, something went sideways on my end. Could you try asking that again?",
	"Sorry, I couldn't come up with an answer just now. Mind trying once more?",
	"I hit a small snag while thinking about that. Please give it another go!",
	"That one tripped me up. Could you rephrase it or try again in a moment?",
}

// APIKeyIssueResponse is served when a provider rejects the configured credentials.
const APIKeyIssueResponse = "My AI brain is taking a break right now. " +
	"The team has been notified, please check back a little later!"

// RandomSelector picks pool entries uniformly at random.
type RandomSelector struct{}

// NewRandomSelector creates a selector backed by math/rand/v2.
func NewRandomSelector() *RandomSelector {
	return &RandomSelector{}
}

// Pick returns a random element of pool, or "" for an empty pool.
func (RandomSelector) Pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.IntN(len(pool))] //nolint:gosec // Not security sensitive
}
