package templates

import (
	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/shared/server/respond"
)

// Handler lists the template catalog.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/templates", h.list)
}

func (h *Handler) list(c *gin.Context) {
	all := All()
	out := make([]gin.H, 0, len(all))
	for _, t := range all {
		out = append(out, gin.H{
			"id":       t.ID,
			"name":     t.Name,
			"premium":  t.Premium,
			"price":    Dollars(ListPrice(t)),
			"audience": t.Audience,
			"accent":   t.Accent,
		})
	}
	respond.OK(c, gin.H{"templates": out})
}
