package botapi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/truffle/expertise-miner/pkg/storage"
)

func TestFormatExpertReply_NoResultsUsesFriendlyMessage(t *testing.T) {
	msg := formatExpertReply([]string{"rust"}, nil)
	assert.Contains(t, msg, "rust")
	assert.Contains(t, msg, "couldn't find")
}

func TestFormatExpertReply_RanksByBestScoreAcrossSkills(t *testing.T) {
	rows := []storage.ExpertResult{
		{UserExternalID: "U1", DisplayName: "Ada", ExpertiseScore: 0.5, EvidenceCount: 2},
		{UserExternalID: "U2", DisplayName: "Grace", ExpertiseScore: 0.9, EvidenceCount: 4},
	}
	msg := formatExpertReply([]string{"python"}, rows)
	assert.Contains(t, msg, "Grace")

	graceIdx := strings.Index(msg, "Grace")
	adaIdx := strings.Index(msg, "Ada")
	assert.True(t, graceIdx < adaIdx, "higher-scoring expert should be listed first")
}
