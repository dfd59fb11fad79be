package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryStackPush(t *testing.T) {
	var stack RepositoryStack
	for i := 0; i < MaxRepositoryStackDepth; i++ {
		var err error
		stack, err = stack.Push(RepositoryId(i + 1))
		require.NoError(t, err)
	}
	assert.Equal(t, MaxRepositoryStackDepth, stack.Len())

	_, err := stack.Push(RepositoryId(99))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRepositoryStackOverflow)
}

func TestRepositoryStackInnermostOrder(t *testing.T) {
	var stack RepositoryStack
	stack, _ = stack.Push(1)
	stack, _ = stack.Push(2)
	stack, _ = stack.Push(3)

	var seen []RepositoryId
	for id := range stack.Innermost() {
		seen = append(seen, id)
	}
	assert.Equal(t, []RepositoryId{3, 2, 1}, seen)
}

func TestIdValidity(t *testing.T) {
	assert.False(t, RuleId(0).Valid())
	assert.True(t, RuleId(1).Valid())
	assert.False(t, RegexId(0).Valid())
	assert.False(t, PartialRegexId(0).Valid())
	assert.False(t, RepositoryId(0).Valid())
}
