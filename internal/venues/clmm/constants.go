package clmm

import "github.com/gagliardetto/solana-go"

// Raydium concentrated-liquidity program.
const programIDStr = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"

var ProgramID = solana.MustPublicKeyFromBase58(programIDStr)

const (
	// TickArraySize is the tick count per tick array account.
	TickArraySize = 60

	poolStateLen        = 1544
	personalPositionLen = 281
)

// PoolState field offsets (discriminator included).
const (
	offMintA        = 73
	offMintB        = 105
	offVaultA       = 137
	offVaultB       = 169
	offMintDecimA   = 233
	offMintDecimB   = 234
	offTickSpacing  = 235
	offLiquidity    = 237
	offSqrtPriceX64 = 253
	offTickCurrent  = 269
	offStatus       = 309
)

// PersonalPositionState field offsets.
const (
	posOffNftMint   = 9
	posOffPoolID    = 41
	posOffTickLower = 73
	posOffTickUpper = 77
	posOffLiquidity = 81
	posOffFeesOwedA = 129
	posOffFeesOwedB = 137
)

// Program error codes surfaced through simulation.
const (
	errPriceSlippage    = 6021
	errTooLittleOutput  = 6022
	errNotApproved      = 6016
	errPoolDisabled     = 6024
	errInvalidTickRange = 6007
)
