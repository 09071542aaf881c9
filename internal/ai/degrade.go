package ai

import "strings"

// Local replies used when the text-generation provider cannot answer.
const (
	CakeReply     = "I'd be happy to help you with a birthday cake! We have several delicious options including chocolate, vanilla, and strawberry cakes. What size would you like and when do you need it?"
	NoodleReply   = "Great choice! We have a variety of noodle dishes including spaghetti, fettuccine, and ramen. Would you like to know about our pasta specials or specific noodle dishes?"
	MenuReply     = "I'd be happy to tell you about our menu! We offer a wide selection of appetizers, main courses, desserts, and beverages. What type of cuisine are you interested in?"
	OrderReply    = "I can help you place an order! What would you like to order today? I can tell you about our specials and help you customize your meal."
	GreetingReply = "Hello! Welcome to our restaurant! I'm here to help you with your order, answer questions about our menu, or assist with any special requests. How can I help you today?"
	HelpReply     = "Thank you for your message! I'm here to help you with your restaurant needs. I can assist with menu questions, take your order, or provide information about our services. What would you like to know?"
)

// TranscriptionUnavailable replaces the user's words when speech-to-text fails.
const TranscriptionUnavailable = "I had trouble understanding your voice message. Please try again."

// Rule maps keywords to a reply. Keywords match as case-insensitive substrings.
type Rule struct {
	Keywords []string
	Reply    string
}

// DefaultRules is the fixed priority table, first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{Keywords: []string{"birthday", "cake"}, Reply: CakeReply},
		{Keywords: []string{"noodle", "pasta"}, Reply: NoodleReply},
		{Keywords: []string{"menu", "food"}, Reply: MenuReply},
		{Keywords: []string{"order", "buy"}, Reply: OrderReply},
		{Keywords: []string{"hello", "hi"}, Reply: GreetingReply},
	}
}

// KeywordReplier is the deterministic tier-1 generator.
type KeywordReplier struct {
	rules      []Rule
	defaultMsg string
}

// NewKeywordReplier falls back to DefaultRules and HelpReply when rules or
// defaultMsg are empty.
func NewKeywordReplier(rules []Rule, defaultMsg string) *KeywordReplier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if strings.TrimSpace(defaultMsg) == "" {
		defaultMsg = HelpReply
	}

	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 || r.Reply == "" {
			continue
		}
		normalized = append(normalized, Rule{Keywords: kws, Reply: r.Reply})
	}

	return &KeywordReplier{rules: normalized, defaultMsg: defaultMsg}
}

// Reply never fails and never touches the network.
func (k *KeywordReplier) Reply(userText string) string {
	text := strings.ToLower(userText)
	for _, r := range k.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Reply
			}
		}
	}
	return k.defaultMsg
}
