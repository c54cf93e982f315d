package dlmm

import "github.com/gagliardetto/solana-go"

// Meteora DLMM (lb_clmm) program.
const programIDStr = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"

var ProgramID = solana.MustPublicKeyFromBase58(programIDStr)

const (
	// BinsPerArray is the bin count per bin-array account, and also the
	// maximum width of a single position.
	BinsPerArray = 70

	lbPairAccountLen   = 904
	positionAccountLen = 8120
)

// LbPair field offsets (discriminator included).
const (
	offPairType   = 75
	offActiveID   = 76
	offBinStep    = 80
	offStatus     = 82
	offTokenXMint = 88
	offTokenYMint = 120
	offReserveX   = 152
	offReserveY   = 184
)

// PositionV2 field offsets. The per-bin arrays are sized BinsPerArray:
// liquidity shares (u128), reward infos (2×u128), fee infos
// (2×u128 + 2×u64 pending).
const (
	posOffLbPair          = 8
	posOffOwner           = 40
	posOffLiquidityShares = 72
	posOffFeeInfos        = 3432
	feeInfoLen            = 48
	feeInfoPendingXOff    = 32
	feeInfoPendingYOff    = 40
	posOffLowerBin        = 6792
	posOffUpperBin        = 6796
)

// Strategy types for add_liquidity_by_strategy.
const (
	strategySpotBalanced   uint8 = 0
	strategyCurveBalanced  uint8 = 1
	strategyBidAskBalanced uint8 = 2
)

// Program error codes surfaced through simulation.
const (
	errExceededAmountSlippage = 6004
	errExceededBinSlippage    = 6005
	errPairDisabled           = 6013
	errInvalidPosition        = 6030
)
