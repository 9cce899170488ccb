package meeting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTemplateGeneratorIssue(t *testing.T) {
	id := uuid.MustParse("7b7e4b4e-9d38-4a6d-9d2a-6a2a34a1f001")

	g := NewTemplateGenerator("https://meet.telecare.example/")
	assert.Equal(t, "https://meet.telecare.example/meet/7b7e4b4e-9d38-4a6d-9d2a-6a2a34a1f001", g.Issue(id))
}
