package addresses

import (
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestDelegationProgramID_MatchesAddr(t *testing.T) {
	require.Equal(t, DelegationProgramAddr, DelegationProgramID.String())
}

func TestFixedKeys(t *testing.T) {
	require.Equal(t, "SoLXmnP9JvL6vJ7TN1VqtTxqsc2izmPfF9CsMDEuRzJ", SubjectPubkey.String())
	require.Equal(t, "8k2V7EzQtNg38Gi9HK5ZtQYp1YpGKNGrMcuGa737gZX4", DelegatedPubkey.String())
	require.NotEqual(t, SubjectPubkey, DelegatedPubkey)
}

func TestPDAs_MatchFindProgramAddress(t *testing.T) {
	id := sol.NewWallet().PublicKey()
	tt := []struct {
		seed   string
		derive func(sol.PublicKey) (sol.PublicKey, uint8, error)
	}{
		{"delegation", DelegationPDA},
		{"buffer", BufferPDA},
		{"state-diff", StateDiffPDA},
		{"commit-state-record", CommitRecordPDA},
	}
	seen := map[sol.PublicKey]bool{}
	for _, tc := range tt {
		got, bump, err := tc.derive(id)
		require.NoError(t, err, tc.seed)

		want, wantBump, err := sol.FindProgramAddress([][]byte{[]byte(tc.seed), id.Bytes()}, DelegationProgramID)
		require.NoError(t, err)
		require.Equal(t, want, got, tc.seed)
		require.Equal(t, wantBump, bump, tc.seed)
		require.False(t, seen[got], "%s collides", tc.seed)
		seen[got] = true
	}
}

func TestBufferPDA_KnownDelegated(t *testing.T) {
	pda, _, err := BufferPDA(DelegatedPubkey)
	require.NoError(t, err)
	require.Equal(t, "E8NdkAGLLC3qnvphsXhqkjkXpRkdoiDpicSTTQJySVtG", pda.String())
}

func TestDelegationPDA_KnownBuffer(t *testing.T) {
	buffer := sol.MustPublicKeyFromBase58("E8NdkAGLLC3qnvphsXhqkjkXpRkdoiDpicSTTQJySVtG")
	pda, _, err := DelegationPDA(buffer)
	require.NoError(t, err)
	require.Equal(t, "FW2ndLLAaYS7hHmoegYWHUtn41R1Az6N13PxqVcceyk7", pda.String())
}

func TestCluster_URL(t *testing.T) {
	tt := []struct {
		c    Cluster
		want string
	}{
		{"", DevnetURL},
		{Devnet, DevnetURL},
		{Mainnet, MainnetURL},
		{Testnet, TestnetURL},
		{Development, DevelopmentURL},
		{Cluster("http://127.0.0.1:9899"), "http://127.0.0.1:9899"},
	}
	for _, tc := range tt {
		require.Equal(t, tc.want, tc.c.URL(), "cluster %q", tc.c)
	}
}
