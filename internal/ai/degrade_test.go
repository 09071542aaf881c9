package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordReplierPriorityTable(t *testing.T) {
	k := NewKeywordReplier(nil, "")

	cases := map[string]string{
		"Do you have a birthday cake?":       CakeReply,
		"Chocolate CAKE with noodles please": CakeReply,
		"any pasta tonight":                  NoodleReply,
		"I want noodles and a menu":          NoodleReply,
		"What food do you serve":             MenuReply,
		"can I order the menu special":       MenuReply,
		"I'd like to buy two":                OrderReply,
		"Hello there":                        GreetingReply,
		"HI":                                 GreetingReply,
		"where are you located?":             HelpReply,
		"":                                   HelpReply,
	}
	for in, want := range cases {
		assert.Equal(t, want, k.Reply(in), "input %q", in)
	}
}

func TestKeywordReplierIsDeterministic(t *testing.T) {
	k := NewKeywordReplier(nil, "")
	first := k.Reply("Is there pasta on the menu?")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, k.Reply("Is there pasta on the menu?"))
	}
}

func TestKeywordReplierCustomTable(t *testing.T) {
	k := NewKeywordReplier([]Rule{
		{Keywords: []string{" Vegan "}, Reply: "vegan options"},
		{Keywords: []string{""}, Reply: "ignored"},
	}, "custom default")

	assert.Equal(t, "vegan options", k.Reply("anything VEGAN?"))
	assert.Equal(t, "custom default", k.Reply("cake"))
}

func TestSystemPromptNamesChannel(t *testing.T) {
	assert.Contains(t, SystemPrompt("voice"), "This is a voice interaction.")
	assert.Contains(t, SystemPrompt(""), "This is a chat interaction.")
}
