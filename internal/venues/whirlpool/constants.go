package whirlpool

import "github.com/gagliardetto/solana-go"

// Orca Whirlpool program.
const programIDStr = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"

var ProgramID = solana.MustPublicKeyFromBase58(programIDStr)

const (
	// TickArraySize is the number of initialized ticks per tick array.
	TickArraySize = 88

	// whirlpoolAccountLen / positionAccountLen are the on-chain account sizes.
	whirlpoolAccountLen = 653
	positionAccountLen  = 216
)

// Whirlpool account field offsets (after the 8-byte discriminator).
const (
	offTickSpacing      = 41
	offFeeRate          = 45
	offLiquidity        = 49
	offSqrtPrice        = 65
	offTickCurrentIndex = 81
	offTokenMintA       = 101
	offTokenVaultA      = 133
	offTokenMintB       = 181
	offTokenVaultB      = 213
)

// Position account field offsets.
const (
	posOffWhirlpool = 8
	posOffMint      = 40
	posOffLiquidity = 72
	posOffTickLower = 88
	posOffTickUpper = 92
	posOffFeeOwedA  = 112
	posOffFeeOwedB  = 136
)

// Program error codes surfaced through simulation.
const (
	errTokenMaxExceeded   = 6017
	errTokenMinSubceeded  = 6018
	errLiquidityZero      = 6013
	errInvalidTickIndex   = 6006
	errPoolPausedCode     = 6038
	errInsufficientFundsC = 1 // system-level insufficient lamports
)
