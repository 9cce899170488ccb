// Package meeting issues the opaque meeting references stored on
// appointments. The default generator is a URL template; a real
// video-conferencing integration can replace it without touching the
// booking transaction.
package meeting

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type TemplateGenerator struct {
	baseURL string
}

func NewTemplateGenerator(baseURL string) *TemplateGenerator {
	return &TemplateGenerator{baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *TemplateGenerator) Issue(appointmentID uuid.UUID) string {
	return fmt.Sprintf("%s/meet/%s", g.baseURL, appointmentID)
}
