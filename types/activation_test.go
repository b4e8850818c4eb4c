package types_test

import (
	"testing"

	"code.emberchain.io/ember/types"

	"github.com/stretchr/testify/require"
)

func TestVote(t *testing.T) {
	var v types.Vote
	require.Equal(t, types.VoteAbsent, v)
	require.Equal(t, "absent", types.VoteAbsent.String())
	require.Equal(t, "aye", types.VoteAye.String())
	require.Equal(t, "nay", types.VoteNay.String())
	require.Equal(t, "unknown", types.Vote(42).String())
}

func TestRuntimeVersionCompare(t *testing.T) {
	ordered := []types.RuntimeVersion{
		types.NewRuntimeVersion(0, 0),
		types.NewRuntimeVersion(0, 1),
		types.NewRuntimeVersion(0, 10),
		types.NewRuntimeVersion(1, 0),
		types.NewRuntimeVersion(1, 5),
		types.NewRuntimeVersion(2, 0),
	}
	for i, lo := range ordered {
		require.Equal(t, 0, lo.Compare(lo))
		require.False(t, lo.Less(lo))
		for _, hi := range ordered[i+1:] {
			require.Equal(t, -1, lo.Compare(hi))
			require.Equal(t, 1, hi.Compare(lo))
			require.True(t, lo.Less(hi))
			require.False(t, hi.Less(lo))
		}
	}
}
