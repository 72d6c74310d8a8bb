package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_ValidEdges(t *testing.T) {
	assert.True(t, CanTransition(StatusOpen, StatusApproved))
	assert.True(t, CanTransition(StatusOpen, StatusRejected))
	assert.True(t, CanTransition(StatusApproved, StatusMerged))
}

// a proposal reaches merged only through approved
func TestCanTransition_NoDirectMerge(t *testing.T) {
	assert.False(t, CanTransition(StatusOpen, StatusMerged))
}

func TestCanTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []ProposalStatus{StatusRejected, StatusMerged} {
		for _, target := range []ProposalStatus{StatusOpen, StatusApproved, StatusRejected, StatusMerged} {
			assert.False(t, CanTransition(terminal, target),
				"expected %s -> %s to be illegal", terminal, target)
		}
	}
}

func TestCanTransition_NoBackwardsEdges(t *testing.T) {
	assert.False(t, CanTransition(StatusApproved, StatusOpen))
	assert.False(t, CanTransition(StatusApproved, StatusRejected))
	assert.False(t, CanTransition(StatusOpen, StatusOpen))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusOpen))
	assert.True(t, ValidStatus(StatusMerged))
	assert.False(t, ValidStatus(ProposalStatus("draft")))
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusOpen.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusMerged.Terminal())
	assert.False(t, ProposalStatus("draft").Terminal())
}
