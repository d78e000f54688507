package addresses

import (
	sol "github.com/gagliardetto/solana-go"
)

// SubjectPubkey is the account watched for changes by the subscription probe.
var SubjectPubkey = sol.MustPublicKeyFromBase58("SoLXmnP9JvL6vJ7TN1VqtTxqsc2izmPfF9CsMDEuRzJ")

// DelegatedPubkey is delegated to the ephemeral validator and receives test transfers.
var DelegatedPubkey = sol.MustPublicKeyFromBase58("8k2V7EzQtNg38Gi9HK5ZtQYp1YpGKNGrMcuGa737gZX4")

// DelegationProgramAddr must match DelegationProgramBytes.
const DelegationProgramAddr = "DELeGGvXpWV2fqJUhqcF5ZSYMS4JTLjteaAMARRSaeSh"

// DelegationProgramBytes are the raw bytes of the delegation program id.
var DelegationProgramBytes = [32]byte{
	181, 183, 0, 225, 242, 87, 58, 192, 204, 6, 34, 1, 52, 74, 207, 151, 184,
	53, 6, 235, 140, 229, 25, 152, 204, 98, 126, 24, 147, 128, 167, 62,
}

// DelegationProgramID is the program owning delegation records.
var DelegationProgramID = sol.PublicKeyFromBytes(DelegationProgramBytes[:])

// PDA seed prefixes used by the delegation program.
var (
	DelegationSeed   = []byte("delegation")
	BufferSeed       = []byte("buffer")
	StateDiffSeed    = []byte("state-diff")
	CommitRecordSeed = []byte("commit-state-record")
)

func pda(seed []byte, id sol.PublicKey) (sol.PublicKey, uint8, error) {
	return sol.FindProgramAddress([][]byte{seed, id.Bytes()}, DelegationProgramID)
}

// DelegationPDA derives the delegation record address for id.
func DelegationPDA(id sol.PublicKey) (sol.PublicKey, uint8, error) {
	return pda(DelegationSeed, id)
}

// BufferPDA derives the buffer holding a delegated account's original state.
func BufferPDA(id sol.PublicKey) (sol.PublicKey, uint8, error) {
	return pda(BufferSeed, id)
}

// StateDiffPDA derives the address where committed state is staged.
func StateDiffPDA(id sol.PublicKey) (sol.PublicKey, uint8, error) {
	return pda(StateDiffSeed, id)
}

// CommitRecordPDA derives the commit state record address.
func CommitRecordPDA(id sol.PublicKey) (sol.PublicKey, uint8, error) {
	return pda(CommitRecordSeed, id)
}
