package expertapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type skillEntry struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	Aliases     []string `json:"aliases"`
	ExpertCount int      `json:"expert_count"`
}

type skillsResponse struct {
	Skills     []skillEntry `json:"skills"`
	TotalCount int          `json:"total_count"`
	Domains    []string     `json:"domains"`
}

func (s *Server) handleListSkills(c *gin.Context) {
	summaries, err := s.store.ListSkills(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	seenDomains := make(map[string]bool)
	var domains []string
	entries := make([]skillEntry, 0, len(summaries))
	for _, sum := range summaries {
		entries = append(entries, skillEntry{
			Key:         sum.Key,
			Name:        sum.Name,
			Domain:      sum.Domain,
			Aliases:     sum.Aliases,
			ExpertCount: sum.ExpertCount,
		})
		if !seenDomains[sum.Domain] {
			seenDomains[sum.Domain] = true
			domains = append(domains, sum.Domain)
		}
	}

	c.JSON(http.StatusOK, skillsResponse{
		Skills:     entries,
		TotalCount: len(entries),
		Domains:    domains,
	})
}
