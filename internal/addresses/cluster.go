package addresses

const (
	DevnetURL      = "https://api.devnet.solana.com"
	MainnetURL     = "https://api.mainnet-beta.solana.com"
	TestnetURL     = "https://api.testnet.solana.com"
	DevelopmentURL = "http://localhost:8899"
)

// Cluster names a well-known RPC cluster or a custom endpoint.
type Cluster string

const (
	Devnet      Cluster = "devnet"
	Mainnet     Cluster = "mainnet"
	Testnet     Cluster = "testnet"
	Development Cluster = "development"
)

// URL resolves c to an RPC endpoint. Anything that is not a known name is
// treated as a custom endpoint URL; the empty cluster is devnet.
func (c Cluster) URL() string {
	switch c {
	case "", Devnet:
		return DevnetURL
	case Mainnet:
		return MainnetURL
	case Testnet:
		return TestnetURL
	case Development:
		return DevelopmentURL
	default:
		return string(c)
	}
}
