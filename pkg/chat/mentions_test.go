package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/truffle/expertise-miner/pkg/model"
)

func TestReplaceUserMentions(t *testing.T) {
	users := map[string]model.ChatUser{
		"U123": {ExternalID: "U123", SlackName: "ada"},
	}

	got := ReplaceUserMentions("hey <@U123> can you help?", users)
	assert.Equal(t, "hey @ada[external_id:U123] can you help?", got)
}

func TestReplaceUserMentions_UnknownUserLeftUntouched(t *testing.T) {
	got := ReplaceUserMentions("hey <@U999>", map[string]model.ChatUser{})
	assert.Equal(t, "hey <@U999>", got)
}

func TestReplaceUserMentions_MultipleMentions(t *testing.T) {
	users := map[string]model.ChatUser{
		"U1": {ExternalID: "U1", SlackName: "ada"},
		"U2": {ExternalID: "U2", SlackName: "bob"},
	}
	got := ReplaceUserMentions("<@U1> and <@U2> should pair up", users)
	assert.Equal(t, "@ada[external_id:U1] and @bob[external_id:U2] should pair up", got)
}
