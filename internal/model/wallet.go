package model

// Wallet is an account identity the engine iterates over. Key material is
// opaque to the engine, it is only handed to action implementations.
type Wallet struct {
	Address    string
	PrivateKey string
	Mnemonic   string
}

// WalletGroup is a named, ordered collection of wallets.
type WalletGroup struct {
	Name    string
	Wallets []Wallet
}
