package chat

import (
	"fmt"
	"regexp"

	"github.com/truffle/expertise-miner/pkg/model"
)

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)>`)

// ReplaceUserMentions rewrites every <@ID> mention in text to
// @slack_name[external_id:ID], using users to resolve the display name.
// Mentions of unknown users are left untouched.
func ReplaceUserMentions(text string, users map[string]model.ChatUser) string {
	return mentionPattern.ReplaceAllStringFunc(text, func(match string) string {
		id := mentionPattern.FindStringSubmatch(match)[1]
		u, ok := users[id]
		if !ok {
			return match
		}
		return fmt.Sprintf("@%s[external_id:%s]", u.SlackName, id)
	})
}
