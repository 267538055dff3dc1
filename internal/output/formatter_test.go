package output

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/julianshen/codearmor/internal/analysis"
)

func TestForFormat(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, ForFormat("json"))
	assert.IsType(t, &MarkdownFormatter{}, ForFormat("markdown"))
	assert.IsType(t, &MarkdownFormatter{}, ForFormat(""))
	assert.IsType(t, &MarkdownFormatter{}, ForFormat("unknown"))
}

func TestStatusEmoji(t *testing.T) {
	assert.Equal(t, "🟢", StatusEmoji(analysis.StatusSecure))
	assert.Equal(t, "🟡", StatusEmoji(analysis.StatusNeedsAttention))
	assert.Equal(t, "🔴", StatusEmoji(analysis.StatusCritical))
}
